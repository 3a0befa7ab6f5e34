package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"forgeci/internal/core/domain"
	"forgeci/internal/core/services"
	"forgeci/internal/testutil"
)

const ciSource = "name: CI\non:\n  push:\n    branches: [main]\njobs:\n  test:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make test\n"

type apiFixture struct {
	workflowRepo *testutil.MockWorkflowRepo
	runRepo      *testutil.MockRunRepo
	jobRepo      *testutil.MockJobRepo
	secretRepo   *testutil.MockSecretRepo
	coverageRepo *testutil.MockCoverageRepo
	router       *gin.Engine
}

func newAPIFixture() *apiFixture {
	gin.SetMode(gin.TestMode)
	f := &apiFixture{
		workflowRepo: new(testutil.MockWorkflowRepo),
		runRepo:      new(testutil.MockRunRepo),
		jobRepo:      new(testutil.MockJobRepo),
		secretRepo:   new(testutil.MockSecretRepo),
		coverageRepo: new(testutil.MockCoverageRepo),
	}

	h := New(
		services.NewWorkflowService(f.workflowRepo, f.runRepo),
		services.NewRunService(f.workflowRepo, f.runRepo, f.jobRepo),
		services.NewJobService(f.jobRepo),
		services.NewSecretService(f.secretRepo),
		services.NewCoverageService(f.coverageRepo, f.jobRepo, f.runRepo, nil),
	)

	f.router = gin.New()
	h.RegisterRoutes(f.router.Group("/api/v1/forgeci"))
	return f
}

func (f *apiFixture) do(method, path string, body interface{}, projectID string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, "/api/v1/forgeci"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if projectID != "" {
		req.Header.Set("Project-ID", projectID)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAPI_MissingProjectID(t *testing.T) {
	f := newAPIFixture()

	for _, path := range []string{"/workflows", "/runs", "/secrets"} {
		w := f.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, domain.ErrMissingProjectID.Error(), decodeBody(t, w)["error"])
	}
}

func TestAPI_CreateWorkflow(t *testing.T) {
	f := newAPIFixture()
	projectID := uuid.New()

	stored := &domain.Workflow{ID: uuid.New(), ProjectID: projectID, Name: "CI", Source: ciSource, Active: true}
	f.workflowRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Workflow")).Return(nil)
	f.workflowRepo.On("GetByID", mock.Anything, projectID, mock.AnythingOfType("uuid.UUID")).Return(stored, nil)

	w := f.do(http.MethodPost, "/workflows", gin.H{"source": ciSource}, projectID.String())
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "CI", body["name"])
	assert.Equal(t, ciSource, body["source"])
}

func TestAPI_CreateWorkflow_InvalidSource(t *testing.T) {
	f := newAPIFixture()

	w := f.do(http.MethodPost, "/workflows", gin.H{"source": "name: broken\n"}, uuid.New().String())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.workflowRepo.AssertNotCalled(t, "Create")
}

func TestAPI_CreateWorkflow_NameConflict(t *testing.T) {
	f := newAPIFixture()

	f.workflowRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Workflow")).Return(domain.ErrWorkflowNameConflict)

	w := f.do(http.MethodPost, "/workflows", gin.H{"source": ciSource}, uuid.New().String())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_GetWorkflow_NotFound(t *testing.T) {
	f := newAPIFixture()
	projectID := uuid.New()
	id := uuid.New()

	f.workflowRepo.On("GetByID", mock.Anything, projectID, id).Return(nil, domain.ErrWorkflowNotFound)

	w := f.do(http.MethodGet, "/workflows/"+id.String(), nil, projectID.String())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_HandleEvent_CreatesRun(t *testing.T) {
	f := newAPIFixture()
	projectID := uuid.New()

	workflow := &domain.Workflow{ID: uuid.New(), ProjectID: projectID, Name: "CI", Source: ciSource, Active: true}
	f.workflowRepo.On("ListActiveByProject", mock.Anything, projectID).Return([]*domain.Workflow{workflow}, nil)
	f.runRepo.On("NextNumber", mock.Anything, workflow.ID).Return(7, nil)
	f.runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil)
	f.jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)
	f.jobRepo.On("CreateSteps", mock.Anything, mock.AnythingOfType("[]*domain.StepResult")).Return(nil)

	w := f.do(http.MethodPost, "/events", gin.H{"kind": "push", "branch": "main", "commit_sha": "abc123"}, projectID.String())
	require.Equal(t, http.StatusOK, w.Code)

	runs := decodeBody(t, w)["runs"].([]interface{})
	require.Len(t, runs, 1)
	run := runs[0].(map[string]interface{})
	assert.Equal(t, float64(7), run["number"])
	assert.Equal(t, "QUEUED", run["status"])
}

func TestAPI_HandleEvent_NoMatchIsEmptyList(t *testing.T) {
	f := newAPIFixture()
	projectID := uuid.New()

	f.workflowRepo.On("ListActiveByProject", mock.Anything, projectID).Return([]*domain.Workflow{}, nil)

	w := f.do(http.MethodPost, "/events", gin.H{"kind": "push", "branch": "main"}, projectID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["runs"])
}

func TestAPI_HandleEvent_MissingBranch(t *testing.T) {
	f := newAPIFixture()

	w := f.do(http.MethodPost, "/events", gin.H{"kind": "push"}, uuid.New().String())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_Dispatch_EmptyBody(t *testing.T) {
	f := newAPIFixture()
	projectID := uuid.New()
	id := uuid.New()

	workflow := &domain.Workflow{ID: id, ProjectID: projectID, Name: "CI", Source: ciSource, Active: true}
	f.workflowRepo.On("GetByID", mock.Anything, projectID, id).Return(workflow, nil)
	f.runRepo.On("NextNumber", mock.Anything, id).Return(1, nil)
	f.runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.WorkflowRun")).Return(nil)
	f.jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)
	f.jobRepo.On("CreateSteps", mock.Anything, mock.AnythingOfType("[]*domain.StepResult")).Return(nil)

	w := f.do(http.MethodPost, "/workflows/"+id.String()+"/dispatch", nil, projectID.String())
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "workflow_dispatch", body["event"].(map[string]interface{})["kind"])
}

func TestAPI_CancelRun_AlreadyFinished(t *testing.T) {
	f := newAPIFixture()
	projectID := uuid.New()
	runID := uuid.New()

	f.runRepo.On("GetByID", mock.Anything, projectID, runID).Return(&domain.WorkflowRun{ID: runID, Status: domain.RunStatusSucceeded}, nil)

	w := f.do(http.MethodPost, "/runs/"+runID.String()+"/cancel", nil, projectID.String())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_SetSecret_ValueNeverEchoed(t *testing.T) {
	f := newAPIFixture()
	projectID := uuid.New()

	f.secretRepo.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.Secret")).Return(nil)

	w := f.do(http.MethodPut, "/secrets", gin.H{"name": "OE_LICENSE", "value": "s3cret-value"}, projectID.String())
	require.Equal(t, http.StatusOK, w.Code)

	assert.NotContains(t, w.Body.String(), "s3cret-value")
	body := decodeBody(t, w)
	assert.Equal(t, "OE_LICENSE", body["name"])
	_, hasValue := body["value"]
	assert.False(t, hasValue)
}

func TestAPI_RecordCoverage_InvalidPercent(t *testing.T) {
	f := newAPIFixture()

	w := f.do(http.MethodPost, "/coverage", gin.H{"job_id": uuid.New().String(), "percent": 120.0}, uuid.New().String())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.coverageRepo.AssertNotCalled(t, "Create")
}

func TestAPI_GetJobLog_PlainText(t *testing.T) {
	f := newAPIFixture()
	projectID := uuid.New()
	jobID := uuid.New()

	f.jobRepo.On("GetByID", mock.Anything, projectID, jobID).Return(&domain.Job{ID: jobID}, nil)
	f.jobRepo.On("ListSteps", mock.Anything, jobID).Return([]*domain.StepResult{
		{Name: "Run tests", Status: domain.StepStatusSucceeded, Log: "all green\n"},
	}, nil)

	w := f.do(http.MethodGet, "/jobs/"+jobID.String()+"/log", nil, projectID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "### Run tests [SUCCEEDED]\nall green\n", w.Body.String())
}
