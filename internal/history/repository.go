package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ramaral11/slatescan/internal/runner"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run, results []runner.Result) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListResults(ctx context.Context, runID string) ([]*Result, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRun stores the run and all of its per-video results in one
// transaction.
func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run, results []runner.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, input_folder, output_folder, started_at, finished_at, total_scanned, slates_found)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.InputFolder, run.OutputFolder,
		run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339),
		run.TotalScanned, run.SlatesFound)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, video_path, slate_found, confidence, frame_number, timestamp, png_filename, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare results insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		_, err = stmt.ExecContext(ctx, run.ID, res.VideoPath, boolToInt(res.SlateFound),
			res.Confidence, res.FrameNumber, res.Timestamp,
			nullString(res.PNGFilename), nullString(res.Error))
		if err != nil {
			return fmt.Errorf("insert result for %s: %w", res.VideoPath, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, input_folder, output_folder, started_at, finished_at, total_scanned, slates_found
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, input_folder, output_folder, started_at, finished_at, total_scanned, slates_found
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt string
		if err := rows.Scan(&run.ID, &run.InputFolder, &run.OutputFolder,
			&startedAt, &finishedAt, &run.TotalScanned, &run.SlatesFound); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		run.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (r *SQLiteRepository) ListResults(ctx context.Context, runID string) ([]*Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, video_path, slate_found, confidence, frame_number, timestamp, png_filename, error
		FROM results WHERE run_id = ? ORDER BY video_path
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		var res Result
		var found int
		var pngFilename, errMsg sql.NullString
		if err := rows.Scan(&res.RunID, &res.VideoPath, &found, &res.Confidence,
			&res.FrameNumber, &res.Timestamp, &pngFilename, &errMsg); err != nil {
			return nil, err
		}
		res.SlateFound = found == 1
		res.PNGFilename = pngFilename.String
		res.Error = errMsg.String
		results = append(results, &res)
	}
	return results, rows.Err()
}

func scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var startedAt, finishedAt string
	err := row.Scan(&run.ID, &run.InputFolder, &run.OutputFolder,
		&startedAt, &finishedAt, &run.TotalScanned, &run.SlatesFound)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	run.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
