package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"forgeci/internal/core/domain"
	"forgeci/internal/testutil"
)

func newCoverageService(uploader *testutil.MockUploader) (*testutil.MockCoverageRepo, *testutil.MockJobRepo, *CoverageService) {
	repo := new(testutil.MockCoverageRepo)
	jobRepo := new(testutil.MockJobRepo)
	runRepo := new(testutil.MockRunRepo)
	if uploader == nil {
		return repo, jobRepo, NewCoverageService(repo, jobRepo, runRepo, nil)
	}
	return repo, jobRepo, NewCoverageService(repo, jobRepo, runRepo, uploader)
}

func TestCoverageService_Record_FlagIsJobName(t *testing.T) {
	uploader := new(testutil.MockUploader)
	repo, jobRepo, svc := newCoverageService(uploader)

	projectID := uuid.New()
	job := &domain.Job{
		ID:    uuid.New(),
		RunID: uuid.New(),
		Name:  "Test on ubuntu-latest, Python 3.8, OpenEye=true",
	}
	jobRepo.On("GetByID", mock.Anything, projectID, job.ID).Return(job, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.CoverageReport")).Return(nil)
	uploader.On("IsAvailable").Return(true)
	uploader.On("Upload", mock.Anything, mock.AnythingOfType("*domain.CoverageReport")).Return(nil)
	repo.On("UpdateUploadStatus", mock.Anything, mock.AnythingOfType("uuid.UUID"), domain.UploadStatusUploaded).Return(nil)

	report, err := svc.Record(context.Background(), projectID, job.ID, 84.5, "<xml/>")
	require.NoError(t, err)
	assert.Equal(t, job.Name, report.Flag)
	assert.Equal(t, job.RunID, report.RunID)
	assert.Equal(t, domain.UploadStatusUploaded, report.UploadStatus)
}

func TestCoverageService_Record_PercentBounds(t *testing.T) {
	repo, jobRepo, svc := newCoverageService(nil)

	_, err := svc.Record(context.Background(), uuid.New(), uuid.New(), -1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCoverage)

	_, err = svc.Record(context.Background(), uuid.New(), uuid.New(), 100.1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCoverage)

	jobRepo.AssertNotCalled(t, "GetByID")
	repo.AssertNotCalled(t, "Create")
}

func TestCoverageService_Record_UploaderUnavailable(t *testing.T) {
	uploader := new(testutil.MockUploader)
	repo, jobRepo, svc := newCoverageService(uploader)

	projectID := uuid.New()
	job := &domain.Job{ID: uuid.New(), RunID: uuid.New(), Name: "test"}
	jobRepo.On("GetByID", mock.Anything, projectID, job.ID).Return(job, nil)
	uploader.On("IsAvailable").Return(false)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.CoverageReport")).Return(nil)

	report, err := svc.Record(context.Background(), projectID, job.ID, 50, "")
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusDisabled, report.UploadStatus)
	uploader.AssertNotCalled(t, "Upload")
}

func TestCoverageService_Record_UploadFailureStaysPending(t *testing.T) {
	uploader := new(testutil.MockUploader)
	repo, jobRepo, svc := newCoverageService(uploader)

	projectID := uuid.New()
	job := &domain.Job{ID: uuid.New(), RunID: uuid.New(), Name: "test"}
	jobRepo.On("GetByID", mock.Anything, projectID, job.ID).Return(job, nil)
	uploader.On("IsAvailable").Return(true)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.CoverageReport")).Return(nil)
	uploader.On("Upload", mock.Anything, mock.AnythingOfType("*domain.CoverageReport")).Return(errors.New("upstream down"))

	report, err := svc.Record(context.Background(), projectID, job.ID, 50, "")
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusPending, report.UploadStatus)
	repo.AssertNotCalled(t, "UpdateUploadStatus")
}

func TestCoverageService_RetryPending(t *testing.T) {
	uploader := new(testutil.MockUploader)
	repo, _, svc := newCoverageService(uploader)

	pending := []*domain.CoverageReport{
		{ID: uuid.New(), Flag: "a", UploadStatus: domain.UploadStatusPending},
		{ID: uuid.New(), Flag: "b", UploadStatus: domain.UploadStatusPending},
	}
	uploader.On("IsAvailable").Return(true)
	repo.On("ListPendingUpload", mock.Anything, 50).Return(pending, nil)
	uploader.On("Upload", mock.Anything, mock.AnythingOfType("*domain.CoverageReport")).Return(nil)
	repo.On("UpdateUploadStatus", mock.Anything, pending[0].ID, domain.UploadStatusUploaded).Return(nil)
	repo.On("UpdateUploadStatus", mock.Anything, pending[1].ID, domain.UploadStatusUploaded).Return(nil)

	require.NoError(t, svc.RetryPending(context.Background(), 50))
	repo.AssertExpectations(t)
}

func TestCoverageService_RetryPending_Disabled(t *testing.T) {
	repo, _, svc := newCoverageService(nil)

	require.NoError(t, svc.RetryPending(context.Background(), 50))
	repo.AssertNotCalled(t, "ListPendingUpload")
}
