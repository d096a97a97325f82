package repository_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/claim-deploy/claim-deploy-backend/internal/provision/domain"
	"github.com/claim-deploy/claim-deploy-backend/internal/provision/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRunRepo(t *testing.T) *repository.RunRepository {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return repository.NewRunRepository(client)
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a run in the idle state", func(t *testing.T) {
		repo := setupRunRepo(t)

		run, err := repo.Create(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, run.RunID)
		assert.Equal(t, domain.StepIdle, run.Step)

		got, err := repo.Get(ctx, run.RunID)
		require.NoError(t, err)
		assert.Equal(t, run.RunID, got.RunID)
		assert.Equal(t, domain.StepIdle, got.Step)
	})

	t.Run("missing run maps to not found", func(t *testing.T) {
		repo := setupRunRepo(t)

		_, err := repo.Get(ctx, "no-such-run")
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("records step advancement", func(t *testing.T) {
		repo := setupRunRepo(t)

		run, err := repo.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.SetStep(ctx, run, domain.StepDeploying))

		got, err := repo.Get(ctx, run.RunID)
		require.NoError(t, err)
		assert.Equal(t, domain.StepDeploying, got.Step)
	})

	t.Run("failure reverts to idle and keeps the failed step", func(t *testing.T) {
		repo := setupRunRepo(t)

		run, err := repo.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.SetStep(ctx, run, domain.StepCreatingStorage))
		require.NoError(t, repo.Fail(ctx, run, domain.StepCreatingStorage, "payment required"))

		got, err := repo.Get(ctx, run.RunID)
		require.NoError(t, err)
		assert.Equal(t, domain.StepIdle, got.Step)
		assert.Equal(t, domain.StepCreatingStorage, got.FailedStep)
		assert.Equal(t, "payment required", got.Error)
	})

	t.Run("finish stores the result and completion time", func(t *testing.T) {
		repo := setupRunRepo(t)

		run, err := repo.Create(ctx)
		require.NoError(t, err)

		result := &domain.ProvisionResult{
			ProjectID:     "prj_1",
			ProjectName:   "temp-project-abc",
			DeploymentURL: "demo.example.app",
			ClaimCode:     "code-1",
		}
		require.NoError(t, repo.Finish(ctx, run, result))

		got, err := repo.Get(ctx, run.RunID)
		require.NoError(t, err)
		assert.Equal(t, domain.StepFinished, got.Step)
		require.NotNil(t, got.Result)
		assert.Equal(t, "code-1", got.Result.ClaimCode)
		assert.NotNil(t, got.CompletedAt)
	})
}
