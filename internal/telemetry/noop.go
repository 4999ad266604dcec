package telemetry

import (
	"context"

	"github.com/andresmejia3/posture/internal/analysis"
)

// NoOp drops every record. Used when telemetry is disabled.
type NoOp struct{}

func (NoOp) RecordSession(context.Context, analysis.SessionStats) {}

func (NoOp) Close(context.Context) error { return nil }
