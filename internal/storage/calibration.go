package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"annotator/internal/domain"

	"github.com/google/uuid"
)

// CalibrationStore keeps a local history of submitted calibrations.
type CalibrationStore struct {
	db *DB
}

// NewCalibrationStore creates a new CalibrationStore.
func NewCalibrationStore(db *DB) *CalibrationStore {
	return &CalibrationStore{db: db}
}

func (s *CalibrationStore) SaveRun(run *domain.CalibrationRun) error {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now()
	polygons, err := json.Marshal(run.Polygons)
	if err != nil {
		return fmt.Errorf("marshal polygons: %w", err)
	}
	_, err = s.db.conn.Exec(
		`INSERT INTO calibration_runs (id, image_id, mode, polygons_json, average_pixels, redirect, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ImageID, run.Mode, string(polygons), run.AveragePixels, run.Redirect, run.CreatedAt,
	)
	return err
}

// ListRuns returns the runs for imageID, newest first.
func (s *CalibrationStore) ListRuns(imageID int) ([]domain.CalibrationRun, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, image_id, mode, polygons_json, average_pixels, redirect, created_at
		 FROM calibration_runs WHERE image_id = ? ORDER BY created_at DESC`, imageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.CalibrationRun
	for rows.Next() {
		var r domain.CalibrationRun
		var polygons string
		if err := rows.Scan(&r.ID, &r.ImageID, &r.Mode, &polygons, &r.AveragePixels, &r.Redirect, &r.CreatedAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(polygons), &r.Polygons)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
