// Package store persists session reports keyed by subject. Reports are
// upserted, so re-analyzing a subject overwrites the previous result.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/andresmejia3/posture/internal/analysis"
)

// ErrNotFound is returned when a subject has no stored report.
var ErrNotFound = errors.New("report not found")

// Record is a stored report with its bookkeeping.
type Record struct {
	SubjectID string
	Report    analysis.SessionReport
	UpdatedAt time.Time
	Charts    map[string]string // kind -> path
}

// Store is implemented by the Postgres and libsql backends.
type Store interface {
	analysis.ReportSink

	// EnsureVideo registers an analyzed video. Re-registering updates the timestamp.
	EnsureVideo(ctx context.Context, videoID, path string) error
	AttachChart(ctx context.Context, subjectID, kind, path string) error
	GetReport(ctx context.Context, subjectID string) (*Record, error)
	ListReports(ctx context.Context) ([]Record, error)
	// Reset drops every table. The schema is recreated on the next Open.
	Reset(ctx context.Context) error
	Close(ctx context.Context)
}

// Open picks the backend from the URL scheme: postgres:// or postgresql://
// for Postgres, anything else (file:, libsql://, http://) for libsql.
func Open(ctx context.Context, url string) (Store, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return NewPostgres(ctx, url)
	}
	return NewLite(ctx, url)
}
