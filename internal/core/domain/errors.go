package domain

import "errors"

// ============================================================================
// Workflow Errors
// ============================================================================

var (
	ErrWorkflowNotFound      = errors.New("workflow not found")
	ErrWorkflowNameConflict  = errors.New("workflow with this name already exists in the project")
	ErrInvalidWorkflowName   = errors.New("workflow name is required")
	ErrInvalidDefinition     = errors.New("invalid workflow definition")
	ErrMissingProjectID      = errors.New("project ID is required (Project-ID header)")
	ErrWorkflowInactive      = errors.New("workflow is inactive")
	ErrWorkflowHasActiveRuns = errors.New("cannot delete workflow: runs are still queued or running")
)

// ============================================================================
// Run / Job Errors
// ============================================================================

// Not found errors
var (
	ErrRunNotFound  = errors.New("workflow run not found")
	ErrJobNotFound  = errors.New("job not found")
	ErrStepNotFound = errors.New("step not found")
)

// Validation errors
var (
	ErrInvalidEventKind = errors.New("unknown event kind")
	ErrInvalidRunID     = errors.New("run ID is required")
	ErrInvalidJobID     = errors.New("job ID is required")
	ErrMissingBranch    = errors.New("event branch is required")
)

// Business rule errors
var (
	ErrRunAlreadyFinished = errors.New("run has already finished")
	ErrRunNumberConflict  = errors.New("run number already taken for this workflow")
	ErrJobNotClaimable    = errors.New("no queued job available")
	ErrNoMatchingTrigger  = errors.New("no workflow trigger matches the event")
)

// ============================================================================
// Secret Errors
// ============================================================================

var (
	ErrSecretNotFound    = errors.New("secret not found")
	ErrInvalidSecretName = errors.New("secret name is required")
	ErrSecretConflict    = errors.New("secret with this name already exists in the project")
)

// ============================================================================
// Coverage Errors
// ============================================================================

var (
	ErrCoverageNotFound    = errors.New("coverage report not found")
	ErrInvalidCoverage     = errors.New("coverage percent must be between 0 and 100")
	ErrUploaderUnavailable = errors.New("coverage uploader is not available")
)
