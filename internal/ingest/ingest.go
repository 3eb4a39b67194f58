// Package ingest runs one CSV import end to end: parse, group charges by
// merchant, detect recurring patterns and reconcile them into candidates.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleared-dev/subscan/internal/importer"
	"github.com/cleared-dev/subscan/internal/logger"
	"github.com/cleared-dev/subscan/internal/model"
	"github.com/cleared-dev/subscan/internal/reconcile"
	"github.com/cleared-dev/subscan/internal/recurrence"
	"github.com/cleared-dev/subscan/internal/store"
)

var (
	// ErrEmptyPayload is returned for a payload with no content.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrMissingUser is returned when no user id is given.
	ErrMissingUser = errors.New("user id is required")
)

// Summary reports what one import did.
type Summary struct {
	BatchID           string
	Filename          string
	RowsAdded         int
	RowsSkipped       int
	CandidatesCreated int
	CandidatesUpdated int
	RowErrors         []importer.RowError
}

// Service imports payloads into a database.
type Service struct {
	db         *store.DB
	reconciler *reconcile.Reconciler
	newID      func() string
}

// NewService creates an ingest Service. Services sharing a database should
// share the Reconciler so same-merchant updates serialize.
func NewService(db *store.DB, r *reconcile.Reconciler) *Service {
	if r == nil {
		r = &reconcile.Reconciler{}
	}
	return &Service{db: db, reconciler: r, newID: uuid.NewString}
}

// Import parses payload for userID and stores the batch, its transactions
// and the resulting candidate changes in one database transaction. Rows that
// cannot be read are counted in RowsSkipped and never fail the import.
func (s *Service) Import(ctx context.Context, userID, filename string, payload []byte) (Summary, error) {
	if userID == "" {
		return Summary{}, ErrMissingUser
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return Summary{}, ErrEmptyPayload
	}
	log := logger.FromContext(ctx).With().Str("user", userID).Str("file", filename).Logger()

	parsed := importer.Parse(payload, userID)
	sum := Summary{
		BatchID:     s.newID(),
		Filename:    filename,
		RowsAdded:   parsed.Added,
		RowsSkipped: parsed.Skipped,
		RowErrors:   parsed.Errors,
	}
	for _, re := range parsed.Errors {
		log.Debug().Int("line", re.Line).Err(re.Err).Msg("skipped row")
	}

	histories := newAccumulator()
	for i := range parsed.Transactions {
		parsed.Transactions[i].BatchID = sum.BatchID
		histories.add(parsed.Transactions[i])
	}

	err := s.db.InTx(ctx, func(q *store.Queries) error {
		batch := &model.ImportBatch{
			ID:          sum.BatchID,
			UserID:      userID,
			Filename:    filename,
			RowsAdded:   sum.RowsAdded,
			RowsSkipped: sum.RowsSkipped,
		}
		if err := q.InsertBatch(ctx, batch); err != nil {
			return err
		}
		if err := q.InsertTransactions(ctx, parsed.Transactions); err != nil {
			return err
		}

		for _, h := range histories.ordered() {
			res := recurrence.Detect(h.key, h.display, h.charges)
			if res == nil {
				log.Debug().Str("merchant", h.key).Int("charges", len(h.charges)).Msg("no recurring pattern")
				continue
			}
			out, err := s.reconciler.Reconcile(ctx, q, userID, *res)
			if err != nil {
				return err
			}
			log.Debug().
				Str("merchant", h.key).
				Str("cadence", string(res.Cadence)).
				Float64("confidence", res.Confidence).
				Str("action", string(out.Action)).
				Int64("candidate", out.ID).
				Msg("recurring charge detected")

			switch out.Action {
			case reconcile.Created:
				sum.CandidatesCreated++
			case reconcile.Updated:
				sum.CandidatesUpdated++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, fmt.Errorf("importing %s: %w", filename, err)
	}

	log.Info().
		Str("batch", sum.BatchID).
		Int("added", sum.RowsAdded).
		Int("skipped", sum.RowsSkipped).
		Int("created", sum.CandidatesCreated).
		Int("updated", sum.CandidatesUpdated).
		Msg("import complete")
	return sum, nil
}
