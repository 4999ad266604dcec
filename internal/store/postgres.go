package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andresmejia3/posture/internal/analysis"
)

// PGStore manages the PostgreSQL connection pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and ensures the schema is initialized.
func NewPostgres(ctx context.Context, connString string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initPGSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &PGStore{pool: pool}, nil
}

func initPGSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			analyzed_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS feedback (
			subject_id TEXT PRIMARY KEY,
			video_id TEXT,
			center_score INT NOT NULL,
			up_count INT NOT NULL,
			down_count INT NOT NULL,
			left_score INT NOT NULL,
			right_score INT NOT NULL,
			total_gestures INT NOT NULL,
			first_half_gestures INT NOT NULL,
			second_half_gestures INT NOT NULL,
			first_half_feedback TEXT NOT NULL,
			second_half_feedback TEXT NOT NULL,
			frame_count INT NOT NULL,
			frames_decoded INT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS report_charts (
			subject_id TEXT NOT NULL REFERENCES feedback(subject_id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			path TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (subject_id, kind)
		);
		CREATE INDEX IF NOT EXISTS feedback_video_id_idx ON feedback (video_id);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

// Close terminates the pool.
func (s *PGStore) Close(ctx context.Context) {
	s.pool.Close()
}

func (s *PGStore) EnsureVideo(ctx context.Context, videoID, path string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO videos (id, path, analyzed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET analyzed_at = NOW(), path = EXCLUDED.path
	`, videoID, path)
	return err
}

// Save upserts the report for subjectID.
func (s *PGStore) Save(ctx context.Context, subjectID string, r analysis.SessionReport) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback (
			subject_id, video_id, center_score, up_count, down_count, left_score, right_score,
			total_gestures, first_half_gestures, second_half_gestures,
			first_half_feedback, second_half_feedback, frame_count, frames_decoded, updated_at
		)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (subject_id) DO UPDATE SET
			video_id = EXCLUDED.video_id,
			center_score = EXCLUDED.center_score,
			up_count = EXCLUDED.up_count,
			down_count = EXCLUDED.down_count,
			left_score = EXCLUDED.left_score,
			right_score = EXCLUDED.right_score,
			total_gestures = EXCLUDED.total_gestures,
			first_half_gestures = EXCLUDED.first_half_gestures,
			second_half_gestures = EXCLUDED.second_half_gestures,
			first_half_feedback = EXCLUDED.first_half_feedback,
			second_half_feedback = EXCLUDED.second_half_feedback,
			frame_count = EXCLUDED.frame_count,
			frames_decoded = EXCLUDED.frames_decoded,
			updated_at = NOW()
	`, subjectID, r.VideoID, r.Center, r.Up, r.Down, r.Left, r.Right,
		r.TotalGestures, r.FirstHalfGestures, r.SecondHalfGestures,
		r.FirstHalfFeedback, r.SecondHalfFeedback, r.FrameCount, r.FramesDecoded)
	return err
}

func (s *PGStore) AttachChart(ctx context.Context, subjectID, kind, path string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO report_charts (subject_id, kind, path, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (subject_id, kind) DO UPDATE SET path = EXCLUDED.path, created_at = NOW()
	`, subjectID, kind, path)
	return err
}

const pgSelectReports = `
	SELECT subject_id, COALESCE(video_id, ''), center_score, up_count, down_count, left_score, right_score,
		total_gestures, first_half_gestures, second_half_gestures,
		first_half_feedback, second_half_feedback, frame_count, frames_decoded, updated_at
	FROM feedback`

func scanPGRecord(row pgx.Row) (Record, error) {
	var rec Record
	r := &rec.Report
	err := row.Scan(&rec.SubjectID, &r.VideoID, &r.Center, &r.Up, &r.Down, &r.Left, &r.Right,
		&r.TotalGestures, &r.FirstHalfGestures, &r.SecondHalfGestures,
		&r.FirstHalfFeedback, &r.SecondHalfFeedback, &r.FrameCount, &r.FramesDecoded, &rec.UpdatedAt)
	return rec, err
}

func (s *PGStore) GetReport(ctx context.Context, subjectID string) (*Record, error) {
	rec, err := scanPGRecord(s.pool.QueryRow(ctx, pgSelectReports+" WHERE subject_id = $1", subjectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT kind, path FROM report_charts WHERE subject_id = $1", subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rec.Charts = map[string]string{}
	for rows.Next() {
		var kind, path string
		if err := rows.Scan(&kind, &path); err != nil {
			return nil, err
		}
		rec.Charts[kind] = path
	}
	return &rec, rows.Err()
}

func (s *PGStore) ListReports(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, pgSelectReports+" ORDER BY updated_at DESC, subject_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanPGRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Reset drops all application tables to clear the database state.
func (s *PGStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		DROP TABLE IF EXISTS report_charts CASCADE;
		DROP TABLE IF EXISTS feedback CASCADE;
		DROP TABLE IF EXISTS videos CASCADE;
	`)
	return err
}
