package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
)

type CoverageService struct {
	repo     ports.CoverageRepository
	jobRepo  ports.JobRepository
	runRepo  ports.RunRepository
	uploader ports.CoverageUploader
}

func NewCoverageService(repo ports.CoverageRepository, jobRepo ports.JobRepository, runRepo ports.RunRepository, uploader ports.CoverageUploader) *CoverageService {
	return &CoverageService{repo: repo, jobRepo: jobRepo, runRepo: runRepo, uploader: uploader}
}

// Record stores a coverage report for a job, flagged with the rendered job
// name so every matrix combination stays distinguishable downstream, then
// attempts the external upload. An upload failure leaves the report pending;
// it never fails the recording itself.
func (s *CoverageService) Record(ctx context.Context, projectID uuid.UUID, jobID uuid.UUID, percent float64, payload string) (*domain.CoverageReport, error) {
	if percent < 0 || percent > 100 {
		return nil, domain.ErrInvalidCoverage
	}
	job, err := s.jobRepo.GetByID(ctx, projectID, jobID)
	if err != nil {
		return nil, err
	}

	report := &domain.CoverageReport{
		ID:           uuid.New(),
		CreatedAt:    time.Now(),
		RunID:        job.RunID,
		JobID:        job.ID,
		Flag:         job.Name,
		Percent:      percent,
		Payload:      payload,
		UploadStatus: domain.UploadStatusPending,
	}
	if s.uploader == nil || !s.uploader.IsAvailable() {
		report.UploadStatus = domain.UploadStatusDisabled
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, err
	}

	if report.UploadStatus == domain.UploadStatusPending {
		s.tryUpload(ctx, report)
	}
	return report, nil
}

func (s *CoverageService) ListByRun(ctx context.Context, projectID uuid.UUID, runID uuid.UUID) ([]*domain.CoverageReport, error) {
	if _, err := s.runRepo.GetByID(ctx, projectID, runID); err != nil {
		return nil, err
	}
	return s.repo.ListByRun(ctx, runID)
}

// RetryPending re-attempts uploads that failed earlier. Called periodically
// from a background loop.
func (s *CoverageService) RetryPending(ctx context.Context, limit int) error {
	if s.uploader == nil || !s.uploader.IsAvailable() {
		return nil
	}
	reports, err := s.repo.ListPendingUpload(ctx, limit)
	if err != nil {
		return err
	}
	for _, report := range reports {
		s.tryUpload(ctx, report)
	}
	return nil
}

func (s *CoverageService) tryUpload(ctx context.Context, report *domain.CoverageReport) {
	if err := s.uploader.Upload(ctx, report); err != nil {
		log.WithError(err).WithField("flag", report.Flag).Warn("coverage upload failed, report stays pending")
		return
	}
	if err := s.repo.UpdateUploadStatus(ctx, report.ID, domain.UploadStatusUploaded); err != nil {
		log.WithError(err).Error("mark coverage report uploaded failed")
		return
	}
	report.UploadStatus = domain.UploadStatusUploaded
}
