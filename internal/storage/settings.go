package storage

import (
	"database/sql"
	"fmt"
	"strconv"

	"annotator/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Session settings
// ─────────────────────────────────────────────────────────────
//
// Restores the editor mode and grid visibility per image between runs.
// Stored as key-value rows in app_settings.

// SettingsStore persists per-image session state.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a SettingsStore.
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func modeKey(imageID int) string { return "image:" + strconv.Itoa(imageID) + ":mode" }
func gridKey(imageID int) string { return "image:" + strconv.Itoa(imageID) + ":grid_visible" }

// LoadSession returns the saved state for imageID, or point mode with the grid hidden.
func (s *SettingsStore) LoadSession(imageID int) domain.SessionState {
	state := domain.SessionState{ImageID: imageID, Mode: domain.ModePoint}
	if s.db == nil {
		return state
	}
	if v, ok := s.get(modeKey(imageID)); ok {
		if m, err := domain.ParseMode(v); err == nil {
			state.Mode = m
		}
	}
	if v, ok := s.get(gridKey(imageID)); ok {
		state.GridVisible = v == "1"
	}
	return state
}

// SaveSession persists state.
func (s *SettingsStore) SaveSession(state domain.SessionState) error {
	if s.db == nil {
		return fmt.Errorf("session settings: no db")
	}
	if err := s.set(modeKey(state.ImageID), string(state.Mode)); err != nil {
		return err
	}
	grid := "0"
	if state.GridVisible {
		grid = "1"
	}
	return s.set(gridKey(state.ImageID), grid)
}

func (s *SettingsStore) get(key string) (string, bool) {
	var v string
	err := s.db.conn.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows || err != nil {
		return "", false
	}
	return v, true
}

func (s *SettingsStore) set(key, value string) error {
	_, err := s.db.conn.Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
