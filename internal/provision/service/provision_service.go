package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/claim-deploy/claim-deploy-backend/internal/provision/domain"
	"github.com/claim-deploy/claim-deploy-backend/internal/provision/repository"
	"github.com/claim-deploy/claim-deploy-backend/internal/templates"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"
)

// secretTargets are the environments a generated secret is injected into.
var secretTargets = []string{"production", "preview", "development"}

// Defaults carries the integration identifiers applied when a workflow needs
// a managed database.
type Defaults struct {
	IntegrationID       string
	ProductID           string
	BillingPlanID       string
	Region              string
	IntegrationConfigID string
}

// Service runs the provisioning workflow: create project, optionally
// authorization + storage + connection, upload and deploy, wait for the
// deployment, then start the ownership transfer. Steps run strictly in
// order; a failed step aborts the rest and nothing is rolled back (the
// cleanup reaper deals with leftovers).
type Service struct {
	client   *vercel.Client
	registry *templates.Registry
	poller   *Poller
	runs     *repository.RunRepository // nil disables run tracking
	defaults Defaults
}

// NewService creates the provisioning orchestrator. runs may be nil when no
// run store is configured.
func NewService(client *vercel.Client, registry *templates.Registry, poller *Poller, runs *repository.RunRepository, defaults Defaults) *Service {
	return &Service{
		client:   client,
		registry: registry,
		poller:   poller,
		runs:     runs,
		defaults: defaults,
	}
}

// GetRun returns the recorded progress of a provisioning run.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	if s.runs == nil {
		return nil, domain.ErrRunNotFound
	}
	return s.runs.Get(ctx, runID)
}

// Provision executes the full workflow for the given selection. On failure
// the returned StepError names exactly the step that failed.
func (s *Service) Provision(ctx context.Context, req domain.ProvisionRequest) (*domain.ProvisionResult, string, *domain.StepError) {
	run := s.newRun(ctx)
	runID := ""
	if run != nil {
		runID = run.RunID
	}

	var tmpl templates.Template
	if req.TemplateKey != "" {
		var ok bool
		tmpl, ok = s.registry.Get(req.TemplateKey)
		if !ok {
			return nil, runID, s.fail(ctx, run, domain.StepCreatingProject,
				fmt.Errorf("unknown template %q", req.TemplateKey))
		}
	} else if len(req.ArchiveData) == 0 {
		return nil, runID, s.fail(ctx, run, domain.StepCreatingProject,
			fmt.Errorf("either a template or an uploaded archive is required"))
	}

	// Step 1: create the project under a fresh temporary name.
	s.advance(ctx, run, domain.StepCreatingProject)

	name, err := GenerateProjectName()
	if err != nil {
		return nil, runID, s.fail(ctx, run, domain.StepCreatingProject, err)
	}

	var envVars []vercel.EnvVar
	if tmpl.SecretEnvKey != "" {
		secret, err := GenerateSecret()
		if err != nil {
			return nil, runID, s.fail(ctx, run, domain.StepCreatingProject, err)
		}
		envVars = append(envVars, vercel.EnvVar{
			Key:    tmpl.SecretEnvKey,
			Value:  secret,
			Target: secretTargets,
			Type:   "encrypted",
		})
	}

	project, err := s.client.CreateProject(ctx, vercel.CreateProjectRequest{
		Name:                 name,
		EnvironmentVariables: envVars,
	})
	if err != nil {
		return nil, runID, s.fail(ctx, run, domain.StepCreatingProject,
			fmt.Errorf("failed to create project: %w", err))
	}

	// Steps 2-4 only apply to templates that need a managed database.
	if tmpl.NeedsDatabase {
		s.advance(ctx, run, domain.StepCreatingAuthorization)
		auth, err := s.client.CreateBillingAuthorization(ctx, vercel.CreateAuthorizationRequest{
			IntegrationIDOrSlug: s.defaults.IntegrationID,
			ProductID:           s.defaults.ProductID,
			BillingPlanID:       s.defaults.BillingPlanID,
			IntegrationConfigID: s.defaults.IntegrationConfigID,
			Region:              s.defaults.Region,
		})
		if err != nil {
			return nil, runID, s.fail(ctx, run, domain.StepCreatingAuthorization,
				fmt.Errorf("failed to create authorization: %w", err))
		}

		s.advance(ctx, run, domain.StepCreatingStorage)
		store, err := s.client.CreateStore(ctx, vercel.CreateStoreRequest{
			Name:                "prisma-postgres-" + project.Name,
			ProductID:           s.defaults.ProductID,
			AuthorizationID:     auth.ID,
			BillingPlanID:       s.defaults.BillingPlanID,
			IntegrationConfigID: s.defaults.IntegrationConfigID,
			Region:              s.defaults.Region,
		})
		if err != nil {
			return nil, runID, s.fail(ctx, run, domain.StepCreatingStorage,
				fmt.Errorf("failed to create storage store: %w", err))
		}

		s.advance(ctx, run, domain.StepConnectingStorage)
		_, err = s.client.ConnectStoreToProject(ctx,
			s.defaults.IntegrationConfigID, s.defaults.ProductID, store.ID, project.ID)
		if err != nil {
			return nil, runID, s.fail(ctx, run, domain.StepConnectingStorage,
				fmt.Errorf("failed to connect storage store to project: %w", err))
		}
	}

	// Step 5: upload the content-addressed artifact and deploy it.
	s.advance(ctx, run, domain.StepDeploying)

	data := req.ArchiveData
	digest := ""
	framework := "nextjs"
	if req.TemplateKey != "" {
		archive, err := s.registry.LoadArchive(ctx, req.TemplateKey)
		if err != nil {
			return nil, runID, s.fail(ctx, run, domain.StepDeploying, err)
		}
		data = archive.Data
		digest = archive.Digest
		framework = tmpl.Framework
	} else {
		digest = templates.DigestOf(data)
	}

	if err := s.client.UploadFile(ctx, data, digest); err != nil {
		return nil, runID, s.fail(ctx, run, domain.StepDeploying,
			fmt.Errorf("failed to upload file: %w", err))
	}

	deployment, err := s.client.CreateDeployment(ctx, vercel.CreateDeploymentRequest{
		Name:      fmt.Sprintf("deployment-%d", time.Now().UnixMilli()),
		Project:   project.Name,
		FileSHA:   digest,
		Framework: framework,
	})
	if err != nil {
		return nil, runID, s.fail(ctx, run, domain.StepDeploying,
			fmt.Errorf("failed to create deployment: %w", err))
	}

	wait, err := s.poller.AwaitReady(ctx, deployment.ID)
	if err != nil {
		return nil, runID, s.fail(ctx, run, domain.StepDeploying,
			fmt.Errorf("failed waiting for deployment: %w", err))
	}
	switch wait.Outcome {
	case OutcomeReady:
	case OutcomeTimedOut:
		msg := fmt.Errorf("deployment cancelled due to timeout")
		if wait.CancelErr != nil {
			msg = fmt.Errorf("deployment timed out and cancellation failed: %w", wait.CancelErr)
		}
		return nil, runID, s.fail(ctx, run, domain.StepDeploying, msg)
	case OutcomeCanceled:
		return nil, runID, s.fail(ctx, run, domain.StepDeploying,
			fmt.Errorf("deployment was cancelled"))
	default:
		return nil, runID, s.fail(ctx, run, domain.StepDeploying,
			fmt.Errorf("deployment failed"))
	}

	// Final step: start the ownership transfer and hand back the claim code.
	projectID := deployment.ProjectID
	if projectID == "" {
		projectID = project.ID
	}

	transfer, err := s.client.CreateTransferRequest(ctx, projectID)
	if err != nil {
		return nil, runID, s.fail(ctx, run, domain.StepFinished,
			fmt.Errorf("failed to start project transfer: %w", err))
	}
	if transfer.Code == "" {
		return nil, runID, s.fail(ctx, run, domain.StepFinished,
			fmt.Errorf("transfer response did not include a claim code"))
	}

	result := &domain.ProvisionResult{
		ProjectID:     projectID,
		ProjectName:   project.Name,
		DeploymentURL: wait.Deployment.URL,
		ClaimCode:     transfer.Code,
	}
	s.finish(ctx, run, result)

	return result, runID, nil
}

func (s *Service) newRun(ctx context.Context) *domain.Run {
	if s.runs == nil {
		return nil
	}
	run, err := s.runs.Create(ctx)
	if err != nil {
		log.Printf("[provision] failed to create run record: %v", err)
		return nil
	}
	return run
}

func (s *Service) advance(ctx context.Context, run *domain.Run, step domain.Step) {
	if run == nil {
		return
	}
	if err := s.runs.SetStep(ctx, run, step); err != nil {
		log.Printf("[provision] failed to record step %s: %v", step, err)
	}
}

func (s *Service) finish(ctx context.Context, run *domain.Run, result *domain.ProvisionResult) {
	if run == nil {
		return
	}
	if err := s.runs.Finish(ctx, run, result); err != nil {
		log.Printf("[provision] failed to record finished run: %v", err)
	}
}

func (s *Service) fail(ctx context.Context, run *domain.Run, step domain.Step, err error) *domain.StepError {
	if run != nil {
		if repoErr := s.runs.Fail(ctx, run, step, err.Error()); repoErr != nil {
			log.Printf("[provision] failed to record failed run: %v", repoErr)
		}
	}
	return &domain.StepError{Step: step, Err: err}
}
