// Package reconcile merges fresh detection results into the pending
// candidates already stored for a user.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cleared-dev/subscan/internal/model"
	"github.com/cleared-dev/subscan/internal/store"
)

// CandidateStore is the persistence the reconciler needs. FindPending
// returns store.ErrNotFound when the user has no pending candidate for key;
// InsertCandidate returns store.ErrDuplicatePending when one appeared
// concurrently.
type CandidateStore interface {
	FindPending(ctx context.Context, userID, merchantKey string) (*model.Candidate, error)
	InsertCandidate(ctx context.Context, c *model.Candidate) (int64, error)
	UpdateCandidate(ctx context.Context, c *model.Candidate) error
}

// Action says what reconciliation did with a result.
type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
)

// Outcome reports the candidate touched by Reconcile.
type Outcome struct {
	Action Action
	ID     int64
}

// Reconciler creates or refreshes pending candidates. Calls for the same
// user and merchant key are serialized; different keys run in parallel.
// The zero value is ready to use.
type Reconciler struct {
	mu    sync.Mutex
	locks map[lockKey]*keyLock
}

type lockKey struct{ user, merchant string }

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Reconcile stores result for userID. An existing pending candidate for the
// same merchant key is overwritten in place; otherwise a new pending
// candidate is created. Confirmed and ignored candidates are never touched.
func (r *Reconciler) Reconcile(ctx context.Context, cs CandidateStore, userID string, result model.DetectionResult) (Outcome, error) {
	unlock := r.lock(lockKey{userID, result.MerchantKey})
	defer unlock()

	out, err := r.reconcile(ctx, cs, userID, result)
	if errors.Is(err, store.ErrDuplicatePending) {
		// Another writer created the pending row between our lookup and
		// insert; the second pass finds it.
		out, err = r.reconcile(ctx, cs, userID, result)
	}
	return out, err
}

func (r *Reconciler) reconcile(ctx context.Context, cs CandidateStore, userID string, result model.DetectionResult) (Outcome, error) {
	existing, err := cs.FindPending(ctx, userID, result.MerchantKey)
	switch {
	case err == nil:
		existing.Apply(result)
		if err := cs.UpdateCandidate(ctx, existing); err != nil {
			return Outcome{}, fmt.Errorf("updating candidate %d: %w", existing.ID, err)
		}
		return Outcome{Action: Updated, ID: existing.ID}, nil
	case errors.Is(err, store.ErrNotFound):
	default:
		return Outcome{}, fmt.Errorf("finding pending candidate for %s: %w", result.MerchantKey, err)
	}

	c := &model.Candidate{
		UserID:      userID,
		MerchantKey: result.MerchantKey,
		Status:      model.CandidatePending,
	}
	c.Apply(result)
	id, err := cs.InsertCandidate(ctx, c)
	if err != nil {
		return Outcome{}, fmt.Errorf("creating candidate for %s: %w", result.MerchantKey, err)
	}
	return Outcome{Action: Created, ID: id}, nil
}

// lock acquires the per-key mutex and returns its release. Entries are
// dropped once no caller holds or waits on them.
func (r *Reconciler) lock(k lockKey) func() {
	r.mu.Lock()
	if r.locks == nil {
		r.locks = make(map[lockKey]*keyLock)
	}
	l, ok := r.locks[k]
	if !ok {
		l = &keyLock{}
		r.locks[k] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, k)
		}
		r.mu.Unlock()
	}
}
