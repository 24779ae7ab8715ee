// Package remote implements domain.RemoteStore against the annotation
// service's REST API or directly against its database.
package remote

import (
	"fmt"
	"time"

	"annotator/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Store is a RemoteStore that can also hydrate an image's annotations.
type Store interface {
	domain.RemoteStore
	domain.AnnotationSource
}

// New creates the RemoteStore selected by conn.Driver.
// secret is the CSRF token for REST or the database password otherwise,
// and must be provided separately (from the SecretStore).
func New(conn *domain.RemoteConnection, secret string, timeout time.Duration) (domain.RemoteStore, error) {
	switch conn.Driver {
	case domain.RemoteDriverREST, "":
		if conn.BaseURL == "" {
			return nil, fmt.Errorf("%w: rest remote needs a base URL", domain.ErrValidation)
		}
		return NewRESTStore(conn.BaseURL, secret, timeout), nil
	case domain.RemoteDriverSQLite:
		return newSQLStore("sqlite", conn.Host+"?_busy_timeout=5000")
	case domain.RemoteDriverMySQL:
		return newSQLStore("mysql", buildMySQLDSN(conn, secret))
	case domain.RemoteDriverPostgres:
		return newSQLStore("postgres", buildPostgresDSN(conn, secret))
	case domain.RemoteDriverMongoDB:
		return newMongoStore(conn, secret)
	default:
		return nil, fmt.Errorf("unsupported remote driver: %s", conn.Driver)
	}
}

// OpenSQLite opens a SQLStore on a local SQLite file.
func OpenSQLite(path string) (*SQLStore, error) {
	return newSQLStore("sqlite", path+"?_busy_timeout=5000")
}

func buildMySQLDSN(conn *domain.RemoteConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		conn.Username, password, conn.Host, port, conn.Database,
	)
	if conn.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

func buildPostgresDSN(conn *domain.RemoteConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		conn.Host, port, conn.Username, password, conn.Database, sslMode,
	)
}
