package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claim-deploy/claim-deploy-backend/internal/provision/domain"
	"github.com/claim-deploy/claim-deploy-backend/internal/provision/service"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWaiter simulates the backend's long-lived deployment wait.
type fakeWaiter struct {
	deployment *vercel.Deployment
	waitErr    error
	block      bool // block until ctx is done, then return ctx.Err()

	cancelErr   error
	cancelCalls int32
	started     chan struct{} // closed when the first wait begins
}

func (f *fakeWaiter) WaitForDeployment(ctx context.Context, idOrURL string) (*vercel.Deployment, error) {
	if f.started != nil {
		select {
		case <-f.started:
		default:
			close(f.started)
		}
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return f.deployment, nil
}

func (f *fakeWaiter) CancelDeployment(ctx context.Context, idOrURL string) (*vercel.Deployment, error) {
	atomic.AddInt32(&f.cancelCalls, 1)
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &vercel.Deployment{ID: idOrURL, ReadyState: vercel.DeploymentStateCanceled}, nil
}

func TestPoller_AwaitReady(t *testing.T) {
	t.Run("returns ready when deployment succeeds", func(t *testing.T) {
		waiter := &fakeWaiter{deployment: &vercel.Deployment{ID: "dpl_1", ReadyState: vercel.DeploymentStateReady, URL: "demo.example.app"}}
		poller := service.NewPoller(waiter, time.Second)

		result, err := poller.AwaitReady(context.Background(), "dpl_1")
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeReady, result.Outcome)
		assert.Equal(t, "demo.example.app", result.Deployment.URL)
		assert.Zero(t, atomic.LoadInt32(&waiter.cancelCalls))
	})

	t.Run("classifies a failed deployment distinctly from a timeout", func(t *testing.T) {
		waiter := &fakeWaiter{deployment: &vercel.Deployment{ID: "dpl_1", ReadyState: vercel.DeploymentStateError}}
		poller := service.NewPoller(waiter, time.Second)

		result, err := poller.AwaitReady(context.Background(), "dpl_1")
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeFailed, result.Outcome)
		assert.Zero(t, atomic.LoadInt32(&waiter.cancelCalls))
	})

	t.Run("cancels exactly once when the budget elapses", func(t *testing.T) {
		waiter := &fakeWaiter{block: true}
		poller := service.NewPoller(waiter, 50*time.Millisecond)

		result, err := poller.AwaitReady(context.Background(), "dpl_1")
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeTimedOut, result.Outcome)
		assert.NoError(t, result.CancelErr)
		assert.Equal(t, int32(1), atomic.LoadInt32(&waiter.cancelCalls))
	})

	t.Run("carries the cancellation failure separately from the timeout", func(t *testing.T) {
		waiter := &fakeWaiter{block: true, cancelErr: errors.New("cancel rejected")}
		poller := service.NewPoller(waiter, 50*time.Millisecond)

		result, err := poller.AwaitReady(context.Background(), "dpl_1")
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeTimedOut, result.Outcome)
		require.Error(t, result.CancelErr)
		assert.Contains(t, result.CancelErr.Error(), "cancel rejected")
	})

	t.Run("caller abandoning the wait does not cancel the deployment", func(t *testing.T) {
		waiter := &fakeWaiter{block: true}
		poller := service.NewPoller(waiter, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		result, err := poller.AwaitReady(ctx, "dpl_1")
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeCanceled, result.Outcome)
		assert.Zero(t, atomic.LoadInt32(&waiter.cancelCalls))
	})

	t.Run("rejects a second concurrent wait for the same deployment", func(t *testing.T) {
		waiter := &fakeWaiter{block: true, started: make(chan struct{})}
		poller := service.NewPoller(waiter, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			poller.AwaitReady(ctx, "dpl_1")
		}()

		<-waiter.started
		_, err := poller.AwaitReady(context.Background(), "dpl_1")
		assert.ErrorIs(t, err, domain.ErrWaitInProgress)

		cancel()
		<-done
	})

	t.Run("a wait for a different deployment is not blocked", func(t *testing.T) {
		waiter := &fakeWaiter{deployment: &vercel.Deployment{ID: "dpl_2", ReadyState: vercel.DeploymentStateReady}}
		poller := service.NewPoller(waiter, time.Second)

		result, err := poller.AwaitReady(context.Background(), "dpl_2")
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeReady, result.Outcome)
	})
}
