package dto

import (
	"time"

	"github.com/google/uuid"

	"forgeci/internal/core/domain"
)

type RecordCoverageRequest struct {
	JobID   uuid.UUID `json:"job_id" binding:"required"`
	Percent float64   `json:"percent"`
	Payload string    `json:"payload"`
}

type CoverageResponse struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	RunID        uuid.UUID `json:"run_id"`
	JobID        uuid.UUID `json:"job_id"`
	Flag         string    `json:"flag"`
	Percent      float64   `json:"percent"`
	UploadStatus string    `json:"upload_status"`
}

type ListCoverageResponse struct {
	Items []CoverageResponse `json:"items"`
}

func ToCoverageResponse(report *domain.CoverageReport) CoverageResponse {
	return CoverageResponse{
		ID:           report.ID,
		CreatedAt:    report.CreatedAt,
		RunID:        report.RunID,
		JobID:        report.JobID,
		Flag:         report.Flag,
		Percent:      report.Percent,
		UploadStatus: string(report.UploadStatus),
	}
}
