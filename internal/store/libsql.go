package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/andresmejia3/posture/internal/analysis"
)

// LiteStore keeps reports in a local libsql/SQLite file or a remote libsql
// server.
type LiteStore struct {
	db *sql.DB
}

// NewLite opens url with the libsql driver and ensures the schema.
func NewLite(ctx context.Context, url string) (*LiteStore, error) {
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; batch runs share this handle.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := initLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &LiteStore{db: db}, nil
}

var liteSchema = []string{
	`CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		analyzed_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		subject_id TEXT PRIMARY KEY,
		video_id TEXT,
		center_score INTEGER NOT NULL,
		up_count INTEGER NOT NULL,
		down_count INTEGER NOT NULL,
		left_score INTEGER NOT NULL,
		right_score INTEGER NOT NULL,
		total_gestures INTEGER NOT NULL,
		first_half_gestures INTEGER NOT NULL,
		second_half_gestures INTEGER NOT NULL,
		first_half_feedback TEXT NOT NULL,
		second_half_feedback TEXT NOT NULL,
		frame_count INTEGER NOT NULL,
		frames_decoded INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS report_charts (
		subject_id TEXT NOT NULL REFERENCES feedback(subject_id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		path TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (subject_id, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS feedback_video_id_idx ON feedback (video_id)`,
}

func initLiteSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range liteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// tsLayout is fixed-width so text ordering matches time ordering.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() string { return time.Now().UTC().Format(tsLayout) }

func (s *LiteStore) Close(ctx context.Context) {
	s.db.Close()
}

func (s *LiteStore) EnsureVideo(ctx context.Context, videoID, path string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (id, path, analyzed_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET analyzed_at = excluded.analyzed_at, path = excluded.path
	`, videoID, path, now())
	return err
}

// Save upserts the report for subjectID.
func (s *LiteStore) Save(ctx context.Context, subjectID string, r analysis.SessionReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (
			subject_id, video_id, center_score, up_count, down_count, left_score, right_score,
			total_gestures, first_half_gestures, second_half_gestures,
			first_half_feedback, second_half_feedback, frame_count, frames_decoded, updated_at
		)
		VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject_id) DO UPDATE SET
			video_id = excluded.video_id,
			center_score = excluded.center_score,
			up_count = excluded.up_count,
			down_count = excluded.down_count,
			left_score = excluded.left_score,
			right_score = excluded.right_score,
			total_gestures = excluded.total_gestures,
			first_half_gestures = excluded.first_half_gestures,
			second_half_gestures = excluded.second_half_gestures,
			first_half_feedback = excluded.first_half_feedback,
			second_half_feedback = excluded.second_half_feedback,
			frame_count = excluded.frame_count,
			frames_decoded = excluded.frames_decoded,
			updated_at = excluded.updated_at
	`, subjectID, r.VideoID, r.Center, r.Up, r.Down, r.Left, r.Right,
		r.TotalGestures, r.FirstHalfGestures, r.SecondHalfGestures,
		r.FirstHalfFeedback, r.SecondHalfFeedback, r.FrameCount, r.FramesDecoded, now())
	return err
}

func (s *LiteStore) AttachChart(ctx context.Context, subjectID, kind, path string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_charts (subject_id, kind, path, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (subject_id, kind) DO UPDATE SET path = excluded.path, created_at = excluded.created_at
	`, subjectID, kind, path, now())
	return err
}

const liteSelectReports = `
	SELECT subject_id, COALESCE(video_id, ''), center_score, up_count, down_count, left_score, right_score,
		total_gestures, first_half_gestures, second_half_gestures,
		first_half_feedback, second_half_feedback, frame_count, frames_decoded, updated_at
	FROM feedback`

type scanner interface {
	Scan(dest ...any) error
}

func scanLiteRecord(row scanner) (Record, error) {
	var rec Record
	var updated string
	r := &rec.Report
	if err := row.Scan(&rec.SubjectID, &r.VideoID, &r.Center, &r.Up, &r.Down, &r.Left, &r.Right,
		&r.TotalGestures, &r.FirstHalfGestures, &r.SecondHalfGestures,
		&r.FirstHalfFeedback, &r.SecondHalfFeedback, &r.FrameCount, &r.FramesDecoded, &updated); err != nil {
		return rec, err
	}
	t, err := time.Parse(tsLayout, updated)
	if err != nil {
		return rec, fmt.Errorf("bad updated_at %q: %w", updated, err)
	}
	rec.UpdatedAt = t
	return rec, nil
}

func (s *LiteStore) GetReport(ctx context.Context, subjectID string) (*Record, error) {
	rec, err := scanLiteRecord(s.db.QueryRowContext(ctx, liteSelectReports+" WHERE subject_id = ?", subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, path FROM report_charts WHERE subject_id = ?", subjectID)
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

func (s *LiteStore) ListReports(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, liteSelectReports+" ORDER BY updated_at DESC, subject_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *LiteStore) Reset(ctx context.Context) error {
	for _, table := range []string{"report_charts", "feedback", "videos"} {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return err
		}
	}
	return nil
}
