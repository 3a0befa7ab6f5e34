package domain

import (
	"time"

	"github.com/google/uuid"
)

type UploadStatus string

const (
	UploadStatusPending  UploadStatus = "PENDING"
	UploadStatusUploaded UploadStatus = "UPLOADED"
	UploadStatusDisabled UploadStatus = "DISABLED"
)

// CoverageReport is a coverage result recorded by a job. Flag is the rendered
// job name, so reports from different matrix combinations stay distinguishable
// on the reporting side.
type CoverageReport struct {
	ID           uuid.UUID    `json:"id"`
	CreatedAt    time.Time    `json:"created_at"`
	RunID        uuid.UUID    `json:"run_id"`
	JobID        uuid.UUID    `json:"job_id"`
	Flag         string       `json:"flag"`
	Percent      float64      `json:"percent"`
	Payload      string       `json:"-"`
	UploadStatus UploadStatus `json:"upload_status"`
}
