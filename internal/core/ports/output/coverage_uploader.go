package ports

import (
	"context"

	"forgeci/internal/core/domain"
)

// CoverageUploader pushes recorded coverage reports to the external
// reporting service.
type CoverageUploader interface {
	Upload(ctx context.Context, report *domain.CoverageReport) error

	// IsAvailable checks if the uploader integration is enabled and configured
	IsAvailable() bool
}
