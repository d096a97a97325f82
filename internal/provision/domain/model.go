package domain

import "time"

// Step is the workflow state visible to the presentation layer. It advances
// monotonically through the ordered values below and reverts to idle only
// when a step fails.
type Step string

const (
	StepIdle                  Step = "idle"
	StepCreatingProject       Step = "creating_project"
	StepCreatingAuthorization Step = "creating_authorization"
	StepCreatingStorage       Step = "creating_storage"
	StepConnectingStorage     Step = "connecting_storage"
	StepDeploying             Step = "deploying"
	StepFinished              Step = "finished"
)

// ProvisionRequest selects what to deploy: a template key from the registry
// or raw uploaded archive bytes (exactly one must be set).
type ProvisionRequest struct {
	TemplateKey string
	ArchiveData []byte
}

// ProvisionResult is the outcome of a completed workflow. All fields are
// non-empty on success.
type ProvisionResult struct {
	ProjectID     string `json:"project_id"`
	ProjectName   string `json:"project_name"`
	DeploymentURL string `json:"deployment_url"`
	ClaimCode     string `json:"claim_code"`
}

// Run records the progress of one provisioning workflow for observation by
// the presentation layer.
type Run struct {
	RunID       string           `json:"run_id"`
	Step        Step             `json:"step"`
	Error       string           `json:"error,omitempty"`
	FailedStep  Step             `json:"failed_step,omitempty"`
	Result      *ProvisionResult `json:"result,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// StepError tags a workflow failure with the single step that failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }
