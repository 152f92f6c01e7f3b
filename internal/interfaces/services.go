package interfaces

import (
	"context"

	"github.com/mhorvat/xapiport/internal/models"
)

// ExportService runs the export pipeline: definitions refresh, endpoint
// invocation, dataset expansion, and shaping for the file writers.
type ExportService interface {
	// EnsureFresh recompiles the definitions when they are older than the
	// configured freshness window
	EnsureFresh(ctx context.Context) error

	// Refresh unconditionally fetches the PBX OpenAPI document and recompiles
	Refresh(ctx context.Context) error

	// Endpoints lists the compiled endpoint names
	Endpoints() ([]string, error)

	// FieldVisibility reports which request fields each endpoint binds
	FieldVisibility() (map[string][]string, error)

	// Run executes one export request end to end
	Run(ctx context.Context, req *models.ExportRequest) (*models.ExportResult, error)
}
