package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/subscan/internal/model"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "subscan.db"))
	require.NoError(t, err)
	db.Now = func() time.Time { return fixedNow }
	t.Cleanup(func() { db.Close() })
	return db
}

func day(s string) time.Time {
	t, _ := time.Parse(dayFormat, s)
	return t
}

func pendingCandidate(user, key string) *model.Candidate {
	return &model.Candidate{
		UserID:        user,
		MerchantKey:   key,
		DisplayName:   key,
		AvgAmount:     decimal.RequireFromString("12.99"),
		CadenceGuess:  model.CadenceMonthly,
		Confidence:    0.8,
		LastSeen:      day("2026-05-01"),
		NextPredicted: day("2026-05-31"),
		Status:        model.CandidatePending,
	}
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "x.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, path, db.Path())

	// Reopening applies the schema again without error.
	db2, err := Open(path)
	require.NoError(t, err)
	db2.Close()
}

func TestBatchesAndTransactions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	q := db.Queries()

	b := &model.ImportBatch{ID: "b1", UserID: "u1", Filename: "bank.csv", RowsAdded: 2, RowsSkipped: 1}
	require.NoError(t, q.InsertBatch(ctx, b))
	assert.Equal(t, fixedNow, b.ImportedAt)

	txns := []model.Transaction{
		{UserID: "u1", BatchID: "b1", Date: day("2026-02-01"), MerchantRaw: "Spotify", MerchantKey: "SPOTIFY",
			Amount: decimal.RequireFromString("12.99"), IncludeInDetection: true},
		{UserID: "u1", BatchID: "b1", Date: day("2026-01-01"), MerchantRaw: "Payroll", MerchantKey: "PAYROLL",
			Amount: decimal.RequireFromString("2500"), IncludeInDetection: false},
	}
	require.NoError(t, q.InsertTransactions(ctx, txns))
	assert.NotZero(t, txns[0].ID)
	assert.NotEqual(t, txns[0].ID, txns[1].ID)

	got, err := q.ListTransactions(ctx, "u1", "b1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "PAYROLL", got[0].MerchantKey, "ordered by date")
	assert.False(t, got[0].IncludeInDetection)
	assert.Equal(t, "2500.00", got[0].Amount.StringFixed(2))
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("12.99")))
	assert.Equal(t, day("2026-02-01"), got[1].Date)

	other, err := q.ListTransactions(ctx, "u2", "")
	require.NoError(t, err)
	assert.Empty(t, other)

	gotBatch, err := q.GetBatch(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, "bank.csv", gotBatch.Filename)
	assert.Equal(t, 2, gotBatch.RowsAdded)
	assert.Equal(t, 1, gotBatch.RowsSkipped)

	_, err = q.GetBatch(ctx, "u2", "b1")
	assert.ErrorIs(t, err, ErrNotFound)

	batches, err := q.ListBatches(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestTransactionRequiresBatch(t *testing.T) {
	db := openTestDB(t)
	err := db.Queries().InsertTransactions(context.Background(), []model.Transaction{
		{UserID: "u1", BatchID: "missing", Date: day("2026-01-01"), MerchantRaw: "x", MerchantKey: "X",
			Amount: decimal.NewFromInt(1)},
	})
	assert.Error(t, err)
}

func TestCandidates_RoundTrip(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries()

	c := pendingCandidate("u1", "SPOTIFY")
	id, err := q.InsertCandidate(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)

	got, err := q.FindPending(ctx, "u1", "SPOTIFY")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "12.99", got.AvgAmount.StringFixed(2))
	assert.Equal(t, model.CadenceMonthly, got.CadenceGuess)
	assert.Equal(t, 0.8, got.Confidence)
	assert.Equal(t, day("2026-05-31"), got.NextPredicted)
	assert.Equal(t, fixedNow, got.CreatedAt)
	assert.Zero(t, got.ConfirmedSubscriptionID)

	_, err = q.FindPending(ctx, "u2", "SPOTIFY")
	assert.ErrorIs(t, err, ErrNotFound)

	got.Confidence = 0.95
	got.DisplayName = "Spotify USA"
	require.NoError(t, q.UpdateCandidate(ctx, got))

	again, err := q.GetCandidate(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, 0.95, again.Confidence)
	assert.Equal(t, "Spotify USA", again.DisplayName)

	_, err = q.GetCandidate(ctx, "u2", id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCandidates_OnePendingPerKey(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries()

	_, err := q.InsertCandidate(ctx, pendingCandidate("u1", "HULU"))
	require.NoError(t, err)

	_, err = q.InsertCandidate(ctx, pendingCandidate("u1", "HULU"))
	assert.ErrorIs(t, err, ErrDuplicatePending)

	// Other users and non-pending rows are unaffected.
	_, err = q.InsertCandidate(ctx, pendingCandidate("u2", "HULU"))
	require.NoError(t, err)

	ignored := pendingCandidate("u1", "HULU")
	ignored.Status = model.CandidateIgnored
	_, err = q.InsertCandidate(ctx, ignored)
	require.NoError(t, err)
}

func TestUpdateCandidate_MerchantKeyCollision(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries()

	_, err := q.InsertCandidate(ctx, pendingCandidate("u1", "HULU"))
	require.NoError(t, err)
	id, err := q.InsertCandidate(ctx, pendingCandidate("u1", "HULU PLUS"))
	require.NoError(t, err)

	c, err := q.GetCandidate(ctx, "u1", id)
	require.NoError(t, err)
	c.MerchantKey = "HULU"
	assert.ErrorIs(t, q.UpdateCandidate(ctx, c), ErrDuplicatePending)

	c.MerchantKey = "HULU LIVE"
	require.NoError(t, q.UpdateCandidate(ctx, c))
	got, err := q.GetCandidate(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "HULU LIVE", got.MerchantKey)
}

func TestListCandidates_ByConfidence(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries()

	for key, conf := range map[string]float64{"A": 0.6, "B": 0.9, "C": 0.75} {
		c := pendingCandidate("u1", key)
		c.Confidence = conf
		_, err := q.InsertCandidate(ctx, c)
		require.NoError(t, err)
	}
	ignored := pendingCandidate("u1", "D")
	ignored.Status = model.CandidateIgnored
	_, err := q.InsertCandidate(ctx, ignored)
	require.NoError(t, err)

	pending, err := q.ListCandidates(ctx, "u1", model.CandidatePending)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{"B", "C", "A"}, []string{pending[0].MerchantKey, pending[1].MerchantKey, pending[2].MerchantKey})

	all, err := q.ListCandidates(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDeleteCandidate(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries()

	id, err := q.InsertCandidate(ctx, pendingCandidate("u1", "HULU"))
	require.NoError(t, err)

	assert.ErrorIs(t, q.DeleteCandidate(ctx, "u2", id), ErrNotFound)
	require.NoError(t, q.DeleteCandidate(ctx, "u1", id))
	assert.ErrorIs(t, q.DeleteCandidate(ctx, "u1", id), ErrNotFound)
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries()

	sub := &model.Subscription{
		UserID:      "u1",
		Name:        "Netflix",
		MerchantKey: "NETFLIX",
		Amount:      decimal.RequireFromString("15.49"),
		Cadence:     model.CadenceMonthly,
		NextDueDate: day("2026-06-05"),
	}
	require.NoError(t, q.InsertSubscription(ctx, sub))
	assert.NotZero(t, sub.ID)
	assert.Equal(t, model.SubscriptionActive, sub.Status)

	got, err := q.GetSubscription(ctx, "u1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "15.49", got.Amount.StringFixed(2))
	assert.Equal(t, day("2026-06-05"), got.NextDueDate)

	got.Name = "Netflix Premium"
	got.MerchantKey = "NETFLIX PREMIUM"
	got.Amount = decimal.RequireFromString("22.99")
	got.NextDueDate = day("2026-07-05")
	got.Category = "Streaming"
	require.NoError(t, q.UpdateSubscription(ctx, got))
	edited, err := q.GetSubscription(ctx, "u1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Netflix Premium", edited.Name)
	assert.Equal(t, "NETFLIX PREMIUM", edited.MerchantKey)
	assert.Equal(t, "22.99", edited.Amount.StringFixed(2))
	assert.Equal(t, day("2026-07-05"), edited.NextDueDate)
	assert.Equal(t, "Streaming", edited.Category)

	foreign := *edited
	foreign.UserID = "u2"
	assert.ErrorIs(t, q.UpdateSubscription(ctx, &foreign), ErrNotFound)

	require.NoError(t, q.SetSubscriptionStatus(ctx, "u1", sub.ID, model.SubscriptionCanceled))
	active, err := q.ListSubscriptions(ctx, "u1", model.SubscriptionActive)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := q.ListSubscriptions(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, q.SetSubscriptionStatus(ctx, "u2", sub.ID, model.SubscriptionActive), ErrNotFound)
	assert.ErrorIs(t, q.DeleteSubscription(ctx, "u2", sub.ID), ErrNotFound)
	require.NoError(t, q.DeleteSubscription(ctx, "u1", sub.ID))
	_, err = q.GetSubscription(ctx, "u1", sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSubscription_UnlinksCandidate(t *testing.T) {
	ctx := context.Background()
	q := openTestDB(t).Queries()

	sub := &model.Subscription{UserID: "u1", Name: "Hulu", MerchantKey: "HULU",
		Amount: decimal.NewFromInt(8), Cadence: model.CadenceMonthly, NextDueDate: day("2026-06-01")}
	require.NoError(t, q.InsertSubscription(ctx, sub))

	c := pendingCandidate("u1", "HULU")
	c.Status = model.CandidateConfirmed
	c.ConfirmedSubscriptionID = sub.ID
	id, err := q.InsertCandidate(ctx, c)
	require.NoError(t, err)

	require.NoError(t, q.DeleteSubscription(ctx, "u1", sub.ID))
	got, err := q.GetCandidate(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateConfirmed, got.Status)
	assert.Zero(t, got.ConfirmedSubscriptionID)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	boom := errors.New("boom")

	err := db.InTx(ctx, func(q *Queries) error {
		if err := q.InsertBatch(ctx, &model.ImportBatch{ID: "b1", UserID: "u1", Filename: "a.csv"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.Queries().GetBatch(ctx, "u1", "b1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInTx_Commits(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	err := db.InTx(ctx, func(q *Queries) error {
		return q.InsertBatch(ctx, &model.ImportBatch{ID: "b1", UserID: "u1", Filename: "a.csv"})
	})
	require.NoError(t, err)

	_, err = db.Queries().GetBatch(ctx, "u1", "b1")
	assert.NoError(t, err)
}

func TestInTx_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	assert.Panics(t, func() {
		_ = db.InTx(ctx, func(q *Queries) error {
			_ = q.InsertBatch(ctx, &model.ImportBatch{ID: "b1", UserID: "u1", Filename: "a.csv"})
			panic("kaboom")
		})
	})

	_, err := db.Queries().GetBatch(ctx, "u1", "b1")
	assert.ErrorIs(t, err, ErrNotFound)

	// The panicking transaction gave up its turn.
	assert.NoError(t, db.InTx(ctx, func(q *Queries) error { return nil }))
}

func TestInTx_QueuesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- db.InTx(ctx, func(q *Queries) error {
			close(entered)
			<-release
			return q.InsertBatch(ctx, &model.ImportBatch{ID: "b1", UserID: "u1", Filename: "a.csv"})
		})
	}()
	<-entered

	secondDone := make(chan error, 1)
	go func() {
		secondDone <- db.InTx(ctx, func(q *Queries) error {
			// The first writer has committed by the time this one runs.
			if _, err := q.GetBatch(ctx, "u1", "b1"); err != nil {
				return err
			}
			return q.InsertBatch(ctx, &model.ImportBatch{ID: "b2", UserID: "u1", Filename: "b.csv"})
		})
	}()

	select {
	case err := <-secondDone:
		t.Fatalf("second transaction ran while the first was open: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	batches, err := db.Queries().ListBatches(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestInTx_WaitHonorsContext(t *testing.T) {
	db := openTestDB(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- db.InTx(context.Background(), func(q *Queries) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	called := false
	err := db.InTx(ctx, func(q *Queries) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, db.InTx(context.Background(), func(q *Queries) error { return nil }))
}
