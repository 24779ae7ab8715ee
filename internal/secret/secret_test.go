package secret

import "testing"

func TestEnvName(t *testing.T) {
	cases := map[string]string{
		"remote":        "ANNOTATOR_SECRET_REMOTE",
		"db:prod-1":     "ANNOTATOR_SECRET_DB_PROD_1",
		"csrf.token.v2": "ANNOTATOR_SECRET_CSRF_TOKEN_V2",
	}
	for key, want := range cases {
		if got := EnvName(key); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestEnvStoreReadsEnvironment(t *testing.T) {
	t.Setenv("ANNOTATOR_SECRET_REMOTE", " s3cret \n")
	s := NewEnvStore()

	got, err := Lookup(s, "remote")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("expected trimmed value, got %q", got)
	}

	missing, err := s.Get("absent")
	if err != nil || missing != nil {
		t.Errorf("missing key: got %q, %v", missing, err)
	}
}

func TestEnvStoreOverridesAndDelete(t *testing.T) {
	s := &EnvStore{
		overrides: map[string][]byte{},
		deleted:   map[string]bool{},
		lookup: func(name string) (string, bool) {
			if name == "ANNOTATOR_SECRET_REMOTE" {
				return "from-env", true
			}
			return "", false
		},
	}

	if err := s.Set("remote", []byte("runtime")); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Get("remote"); string(v) != "runtime" {
		t.Errorf("override not applied, got %q", v)
	}

	s.Delete("remote")
	if v, _ := s.Get("remote"); v != nil {
		t.Errorf("deleted key still visible: %q", v)
	}
}

func TestNewBackend(t *testing.T) {
	if s, err := New("env"); err != nil {
		t.Fatalf("env: %v", err)
	} else if _, ok := s.(*EnvStore); !ok {
		t.Errorf("expected *EnvStore, got %T", s)
	}
	if s, err := New("Keychain"); err != nil {
		t.Fatalf("keychain: %v", err)
	} else if _, ok := s.(*KeychainStore); !ok {
		t.Errorf("expected *KeychainStore, got %T", s)
	}
	if _, err := New("vault"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
