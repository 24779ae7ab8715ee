package remote

import (
	"errors"
	"strings"
	"testing"

	"annotator/internal/domain"
)

func TestBuildDSNs(t *testing.T) {
	conn := &domain.RemoteConnection{Host: "db.local", Database: "egg", Username: "lab"}

	if got := buildPostgresDSN(conn, "pw"); got != "host=db.local port=5432 user=lab password=pw dbname=egg sslmode=disable" {
		t.Errorf("unexpected postgres dsn %q", got)
	}
	if got := buildMySQLDSN(conn, "pw"); !strings.HasPrefix(got, "lab:pw@tcp(db.local:3306)/egg?") {
		t.Errorf("unexpected mysql dsn %q", got)
	}
	if got := buildMongoURI(conn, "pw"); got != "mongodb://lab:pw@db.local:27017" {
		t.Errorf("unexpected mongo uri %q", got)
	}
	atlas := &domain.RemoteConnection{Host: "mongodb+srv://lab:<password>@cluster0.example.net"}
	if got := buildMongoURI(atlas, "pw"); got != "mongodb+srv://lab:pw@cluster0.example.net" {
		t.Errorf("unexpected atlas uri %q", got)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driverName: "postgres"}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("unexpected rebind %q", got)
	}
	lite := &SQLStore{driverName: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("expected sqlite query untouched, got %q", got)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(&domain.RemoteConnection{Driver: domain.RemoteDriverREST}, "", 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing base URL, got %v", err)
	}
	if _, err := New(&domain.RemoteConnection{Driver: "oracle"}, "", 0); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	s, err := New(&domain.RemoteConnection{Driver: domain.RemoteDriverREST, BaseURL: "http://x"}, "t", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*RESTStore); !ok {
		t.Fatalf("expected *RESTStore, got %T", s)
	}
}
