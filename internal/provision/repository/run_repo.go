package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claim-deploy/claim-deploy-backend/internal/provision/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	runKeyPrefix = "provision:run:" // Key for run data: provision:run:{run_id}
	runTTL       = 24 * time.Hour   // Runs are short-lived observation records
)

// RunRepository stores provisioning run progress in Redis so the
// presentation layer can poll workflow state. The provisioning backend owns
// all authoritative resource state; this holds progress records only.
type RunRepository struct {
	client *redis.Client
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(client *redis.Client) *RunRepository {
	return &RunRepository{client: client}
}

// Create creates a new run record in the idle state.
func (r *RunRepository) Create(ctx context.Context) (*domain.Run, error) {
	now := time.Now().UTC()
	run := &domain.Run{
		RunID:     uuid.New().String(),
		Step:      domain.StepIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, runID string) (*domain.Run, error) {
	data, err := r.client.Get(ctx, runKeyPrefix+runID).Result()
	if err == redis.Nil {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run domain.Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run data: %w", err)
	}
	return &run, nil
}

// SetStep advances the run to the given workflow step.
func (r *RunRepository) SetStep(ctx context.Context, run *domain.Run, step domain.Step) error {
	run.Step = step
	return r.save(ctx, run)
}

// Finish marks the run finished with its result.
func (r *RunRepository) Finish(ctx context.Context, run *domain.Run, result *domain.ProvisionResult) error {
	now := time.Now().UTC()
	run.Step = domain.StepFinished
	run.Result = result
	run.CompletedAt = &now
	return r.save(ctx, run)
}

// Fail records the failed step and message and reverts the run to idle so
// the user can re-submit.
func (r *RunRepository) Fail(ctx context.Context, run *domain.Run, failed domain.Step, message string) error {
	run.Step = domain.StepIdle
	run.FailedStep = failed
	run.Error = message
	return r.save(ctx, run)
}

func (r *RunRepository) save(ctx context.Context, run *domain.Run) error {
	run.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run data: %w", err)
	}

	if err := r.client.Set(ctx, runKeyPrefix+run.RunID, data, runTTL).Err(); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}
