package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"annotator/internal/domain"
)

// SQLStore writes annotations straight into the annotation service's
// relational tables. It backs Postgres, MySQL and SQLite deployments.
//
// Removal follows the service's rules: rows produced by the detector
// (is_original) are soft-deleted, user rows are deleted outright, and the
// image and batch egg totals move with every accepted mutation.
type SQLStore struct {
	driverName string
	db         *sql.DB
}

// newSQLStore opens a SQLStore. The caller owns closing it.
func newSQLStore(driverName, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	return &SQLStore{driverName: driverName, db: db}, nil
}

// Ping verifies connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(q string) string {
	if s.driverName != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EnsureSchema creates the annotation tables when they are missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	switch s.driverName {
	case "postgres":
		pk = "SERIAL PRIMARY KEY"
	case "mysql":
		pk = "INT AUTO_INCREMENT PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batch_details (
			id ` + pk + `,
			total_eggs INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS image_details (
			image_id ` + pk + `,
			batch_id INTEGER,
			img_type VARCHAR(10) NOT NULL DEFAULT 'MICRO',
			total_eggs INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS annotation_points (
			point_id ` + pk + `,
			image_id INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			is_original BOOLEAN NOT NULL DEFAULT FALSE,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS annotation_rects (
			rect_id ` + pk + `,
			image_id INTEGER NOT NULL,
			x_init INTEGER NOT NULL,
			y_init INTEGER NOT NULL,
			x_end INTEGER NOT NULL,
			y_end INTEGER NOT NULL,
			is_original BOOLEAN NOT NULL DEFAULT FALSE,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS verified_grids (
			image_id INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			PRIMARY KEY (image_id, x, y)
		)`,
		`CREATE TABLE IF NOT EXISTS image_calibrations (
			image_id INTEGER PRIMARY KEY,
			average_pixels REAL NOT NULL,
			mode VARCHAR(10) NOT NULL DEFAULT ''
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ── Mutations ──────────────────────────────────────────────

func (s *SQLStore) AddPoint(ctx context.Context, imageID int, p domain.Point, _ string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO annotation_points (image_id, x, y, is_original, is_deleted) VALUES (?, ?, ?, ?, ?)`),
			imageID, p.X, p.Y, false, false,
		); err != nil {
			return err
		}
		return s.adjustTotals(ctx, tx, imageID, 1)
	})
}

func (s *SQLStore) RemovePoint(ctx context.Context, imageID int, p domain.Point, _ string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var id int
		var original bool
		err := tx.QueryRowContext(ctx, s.rebind(
			`SELECT point_id, is_original FROM annotation_points
			 WHERE image_id = ? AND x = ? AND y = ? AND is_deleted = ?
			 ORDER BY point_id DESC`),
			imageID, p.X, p.Y, false,
		).Scan(&id, &original)
		if err == sql.ErrNoRows {
			return fmt.Errorf("point (%d,%d): %w", p.X, p.Y, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if original {
			_, err = tx.ExecContext(ctx, s.rebind(`UPDATE annotation_points SET is_deleted = ? WHERE point_id = ?`), true, id)
		} else {
			_, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM annotation_points WHERE point_id = ?`), id)
		}
		if err != nil {
			return err
		}
		return s.adjustTotals(ctx, tx, imageID, -1)
	})
}

func (s *SQLStore) AddRect(ctx context.Context, imageID int, r domain.Rect, _ string) (*int, error) {
	x1, y1, x2, y2 := r.Corners()
	var id int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		q := `INSERT INTO annotation_rects (image_id, x_init, y_init, x_end, y_end, is_original, is_deleted)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
		args := []any{imageID, x1, y1, x2, y2, false, false}
		if s.driverName == "postgres" {
			if err := tx.QueryRowContext(ctx, s.rebind(q+` RETURNING rect_id`), args...).Scan(&id); err != nil {
				return err
			}
		} else {
			res, err := tx.ExecContext(ctx, q, args...)
			if err != nil {
				return err
			}
			last, err := res.LastInsertId()
			if err != nil {
				return err
			}
			id = int(last)
		}
		return s.adjustTotals(ctx, tx, imageID, 1)
	})
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *SQLStore) RemoveRect(ctx context.Context, imageID int, r domain.Rect, _ string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var id int
		var original bool
		var err error
		if r.ID != nil {
			err = tx.QueryRowContext(ctx, s.rebind(
				`SELECT rect_id, is_original FROM annotation_rects
				 WHERE image_id = ? AND rect_id = ? AND is_deleted = ?`),
				imageID, *r.ID, false,
			).Scan(&id, &original)
		} else {
			x1, y1, x2, y2 := r.Corners()
			err = tx.QueryRowContext(ctx, s.rebind(
				`SELECT rect_id, is_original FROM annotation_rects
				 WHERE image_id = ? AND x_init = ? AND y_init = ? AND x_end = ? AND y_end = ? AND is_deleted = ?
				 ORDER BY rect_id DESC`),
				imageID, x1, y1, x2, y2, false,
			).Scan(&id, &original)
		}
		if err == sql.ErrNoRows {
			return fmt.Errorf("rect %+v: %w", r, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if original {
			_, err = tx.ExecContext(ctx, s.rebind(`UPDATE annotation_rects SET is_deleted = ? WHERE rect_id = ?`), true, id)
		} else {
			_, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM annotation_rects WHERE rect_id = ?`), id)
		}
		if err != nil {
			return err
		}
		return s.adjustTotals(ctx, tx, imageID, -1)
	})
}

// ToggleGridCell marks cell verified, or clears it when it already is.
// verified_grids stores the column in x and the row in y.
func (s *SQLStore) ToggleGridCell(ctx context.Context, imageID int, cell domain.GridCell) error {
	x, y := cell.Col, cell.Row
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(
			`DELETE FROM verified_grids WHERE image_id = ? AND x = ? AND y = ?`), imageID, x, y)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO verified_grids (image_id, x, y) VALUES (?, ?, ?)`), imageID, x, y)
		return err
	})
}

func (s *SQLStore) Recalibrate(ctx context.Context, req domain.CalibrationRequest) (string, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM image_calibrations WHERE image_id = ?`), req.ImageID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO image_calibrations (image_id, average_pixels, mode) VALUES (?, ?, ?)`),
			req.ImageID, req.AveragePixels, req.Mode,
		)
		return err
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/edit/%d/", req.ImageID), nil
}

// ── Hydration ──────────────────────────────────────────────

// FetchAnnotations loads the live points, rects and verified cells for imageID.
func (s *SQLStore) FetchAnnotations(ctx context.Context, imageID int) (*domain.AnnotationSet, error) {
	set := &domain.AnnotationSet{ImageID: imageID}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT x, y FROM annotation_points WHERE image_id = ? AND is_deleted = ? ORDER BY point_id`), imageID, false)
	if err != nil {
		return nil, fmt.Errorf("%w: load points: %v", domain.ErrNetworkFailure, err)
	}
	for rows.Next() {
		var p domain.Point
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			rows.Close()
			return nil, err
		}
		set.Points = append(set.Points, p)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, s.rebind(
		`SELECT rect_id, x_init, y_init, x_end, y_end FROM annotation_rects
		 WHERE image_id = ? AND is_deleted = ? ORDER BY rect_id`), imageID, false)
	if err != nil {
		return nil, fmt.Errorf("%w: load rects: %v", domain.ErrNetworkFailure, err)
	}
	for rows.Next() {
		var id, x1, y1, x2, y2 int
		if err := rows.Scan(&id, &x1, &y1, &x2, &y2); err != nil {
			rows.Close()
			return nil, err
		}
		r := domain.NormalizeRect(x1, y1, x2, y2)
		r.ID = &id
		set.Rects = append(set.Rects, r)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, s.rebind(
		`SELECT x, y FROM verified_grids WHERE image_id = ?`), imageID)
	if err != nil {
		return nil, fmt.Errorf("%w: load grid: %v", domain.ErrNetworkFailure, err)
	}
	for rows.Next() {
		var c domain.GridCell
		if err := rows.Scan(&c.Col, &c.Row); err != nil {
			rows.Close()
			return nil, err
		}
		set.VerifiedCells = append(set.VerifiedCells, c)
	}
	rows.Close()

	err = s.db.QueryRowContext(ctx, s.rebind(
		`SELECT total_eggs FROM image_details WHERE image_id = ?`), imageID).Scan(&set.TotalEggs)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return set, nil
}

// ── Helpers ────────────────────────────────────────────────

func (s *SQLStore) adjustTotals(ctx context.Context, tx *sql.Tx, imageID, delta int) error {
	if _, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE image_details SET total_eggs = total_eggs + ? WHERE image_id = ?`), delta, imageID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE batch_details SET total_eggs = total_eggs + ?
		 WHERE id = (SELECT batch_id FROM image_details WHERE image_id = ?)`), delta, imageID)
	return err
}

// inTx runs fn in a transaction. Failures to reach the database wrap
// domain.ErrNetworkFailure so the sync layer queues the operation.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrNetworkFailure, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %w", domain.ErrNetworkFailure, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrNetworkFailure, err)
	}
	return nil
}
