package domain

import "context"

// RemoteDriver selects the RemoteStore backend.
type RemoteDriver string

const (
	RemoteDriverREST     RemoteDriver = "rest"
	RemoteDriverPostgres RemoteDriver = "postgres"
	RemoteDriverMySQL    RemoteDriver = "mysql"
	RemoteDriverSQLite   RemoteDriver = "sqlite"
	RemoteDriverMongoDB  RemoteDriver = "mongodb"
)

// RemoteConnection holds the settings for reaching the remote store.
// The password or CSRF token is stored separately in the SecretStore.
type RemoteConnection struct {
	Driver    RemoteDriver `json:"driver"`
	BaseURL   string       `json:"baseUrl"`  // rest only
	Host      string       `json:"host"`     // hostname, URI, or file path (sqlite)
	Port      int          `json:"port"`     // 0 for default
	Database  string       `json:"database"` // db name or empty for sqlite
	Username  string       `json:"username"`
	SSLMode   string       `json:"sslMode"`
	ExtraJSON string       `json:"extraJson"` // driver-specific options
}

// CalibrationRequest is the payload submitted when a calibration is accepted.
type CalibrationRequest struct {
	ImageID       int     `json:"imageId"`
	AveragePixels float64 `json:"averagePixels"`
	Mode          string  `json:"mode"`
}

// RemoteStore is the server of record for annotations.
// Every method fails with an error wrapping ErrNetworkFailure when the
// store is unreachable or rejects the request.
type RemoteStore interface {
	AddPoint(ctx context.Context, imageID int, p Point, requestID string) error
	RemovePoint(ctx context.Context, imageID int, p Point, requestID string) error
	// AddRect returns the server-assigned rect id when the backend reports one.
	AddRect(ctx context.Context, imageID int, r Rect, requestID string) (*int, error)
	RemoveRect(ctx context.Context, imageID int, r Rect, requestID string) error
	ToggleGridCell(ctx context.Context, imageID int, cell GridCell) error
	// Recalibrate returns the location the client should navigate to next.
	Recalibrate(ctx context.Context, req CalibrationRequest) (string, error)
	Close() error
}

// AnnotationSource loads the annotations already stored for an image.
type AnnotationSource interface {
	FetchAnnotations(ctx context.Context, imageID int) (*AnnotationSet, error)
}
