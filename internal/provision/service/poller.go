package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/claim-deploy/claim-deploy-backend/internal/provision/domain"
	"github.com/claim-deploy/claim-deploy-backend/internal/vercel"
)

// DefaultDeployTimeout bounds how long a deployment wait may run before a
// cancellation is issued.
const DefaultDeployTimeout = 4 * time.Minute

const cancelRequestTimeout = 30 * time.Second

// WaitOutcome classifies how a deployment wait ended.
type WaitOutcome string

const (
	// OutcomeReady means the deployment reached READY.
	OutcomeReady WaitOutcome = "ready"
	// OutcomeFailed means the deployment itself reported ERROR, distinct
	// from the wait timing out.
	OutcomeFailed WaitOutcome = "failed"
	// OutcomeTimedOut means the budget elapsed; a cancellation was issued
	// and its result is in CancelErr.
	OutcomeTimedOut WaitOutcome = "timed_out"
	// OutcomeCanceled means the deployment was canceled, either upstream or
	// because the caller abandoned the wait.
	OutcomeCanceled WaitOutcome = "canceled"
)

// WaitResult is the outcome of AwaitReady.
type WaitResult struct {
	Outcome    WaitOutcome
	Deployment *vercel.Deployment
	// CancelErr reports the cancellation request's own failure after a
	// timeout. It is separate from the timeout itself.
	CancelErr error
}

// DeploymentWaiter is the slice of the provisioning client the poller needs.
type DeploymentWaiter interface {
	WaitForDeployment(ctx context.Context, idOrURL string) (*vercel.Deployment, error)
	CancelDeployment(ctx context.Context, idOrURL string) (*vercel.Deployment, error)
}

// Poller waits for deployments to reach a terminal state. The wait is one
// long-lived request to the backend, bounded by a fixed budget; on elapse a
// cancellation is issued exactly once.
type Poller struct {
	client  DeploymentWaiter
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewPoller creates a poller with the given wait budget (DefaultDeployTimeout
// when zero).
func NewPoller(client DeploymentWaiter, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = DefaultDeployTimeout
	}
	return &Poller{
		client:   client,
		timeout:  timeout,
		inflight: map[string]struct{}{},
	}
}

// AwaitReady waits until the deployment reaches a terminal state or the
// budget elapses. Only one outstanding wait per deployment is allowed; a
// concurrent second call returns domain.ErrWaitInProgress.
func (p *Poller) AwaitReady(ctx context.Context, idOrURL string) (*WaitResult, error) {
	p.mu.Lock()
	if _, busy := p.inflight[idOrURL]; busy {
		p.mu.Unlock()
		return nil, domain.ErrWaitInProgress
	}
	p.inflight[idOrURL] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inflight, idOrURL)
		p.mu.Unlock()
	}()

	waitCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	deployment, err := p.client.WaitForDeployment(waitCtx, idOrURL)
	if err != nil {
		if waitCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			// Budget elapsed: abandon the wait and cancel the deployment,
			// exactly once, under its own deadline.
			return &WaitResult{Outcome: OutcomeTimedOut, CancelErr: p.cancelDeployment(idOrURL)}, nil
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return &WaitResult{Outcome: OutcomeCanceled}, nil
		}
		return nil, err
	}

	switch deployment.ReadyState {
	case vercel.DeploymentStateReady:
		return &WaitResult{Outcome: OutcomeReady, Deployment: deployment}, nil
	case vercel.DeploymentStateCanceled:
		return &WaitResult{Outcome: OutcomeCanceled, Deployment: deployment}, nil
	default:
		// ERROR, or any unexpected non-terminal state the backend chose to
		// return the wait with.
		return &WaitResult{Outcome: OutcomeFailed, Deployment: deployment}, nil
	}
}

func (p *Poller) cancelDeployment(idOrURL string) error {
	cancelCtx, cancel := context.WithTimeout(context.Background(), cancelRequestTimeout)
	defer cancel()

	_, err := p.client.CancelDeployment(cancelCtx, idOrURL)
	return err
}
