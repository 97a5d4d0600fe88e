package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/audit"
)

func testFinding(table string) audit.Finding {
	return audit.Finding{
		ID:             uuid.New(),
		Table:          table,
		Statement:      "SELECT ...",
		ExpectedTenant: 1,
		Reason:         audit.ReasonMissingPredicate,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestAsyncWriter(t *testing.T) {
	t.Parallel()

	t.Run("findings reach storage in batches", func(t *testing.T) {
		t.Parallel()

		storage := audit.NewMemoryStorage()
		writer, closeFn, err := audit.NewAsyncWriter(storage, audit.AsyncOptions{
			BatchSize:    2,
			BatchTimeout: 10 * time.Millisecond,
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = closeFn(context.Background()) })

		for range 5 {
			writer.Submit(testFinding("leads"))
		}

		require.Eventually(t, func() bool {
			stored, err := storage.List(context.Background(), audit.ListFilter{})
			return err == nil && len(stored) == 5
		}, 3*time.Second, 10*time.Millisecond)
	})

	t.Run("close flushes buffered findings", func(t *testing.T) {
		t.Parallel()

		storage := audit.NewMemoryStorage()
		writer, closeFn, err := audit.NewAsyncWriter(storage, audit.AsyncOptions{
			BatchSize:    100,
			BatchTimeout: time.Minute,
		})
		require.NoError(t, err)

		for range 7 {
			writer.Submit(testFinding("leads"))
		}
		require.NoError(t, closeFn(context.Background()))

		stored, err := storage.List(context.Background(), audit.ListFilter{})
		require.NoError(t, err)
		assert.Len(t, stored, 7)
	})

	t.Run("submissions after close are dropped, not blocked", func(t *testing.T) {
		t.Parallel()

		storage := audit.NewMemoryStorage()
		writer, closeFn, err := audit.NewAsyncWriter(storage, audit.AsyncOptions{})
		require.NoError(t, err)
		require.NoError(t, closeFn(context.Background()))

		done := make(chan struct{})
		go func() {
			writer.Submit(testFinding("leads"))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("submit blocked after close")
		}
	})

	t.Run("nil storage is rejected", func(t *testing.T) {
		t.Parallel()

		_, _, err := audit.NewAsyncWriter(nil, audit.AsyncOptions{})
		require.ErrorIs(t, err, audit.ErrStorageNil)
	})
}

func TestMemoryStorageList(t *testing.T) {
	t.Parallel()

	storage := audit.NewMemoryStorage()
	ctx := context.Background()

	lead := testFinding("leads")
	campaign := testFinding("campaigns")
	campaign.Reason = audit.ReasonRawStatement
	require.NoError(t, storage.StoreBatch(ctx, []audit.Finding{lead, campaign}))

	byTable, err := storage.List(ctx, audit.ListFilter{Table: "leads"})
	require.NoError(t, err)
	require.Len(t, byTable, 1)
	assert.Equal(t, lead.ID, byTable[0].ID)

	byReason, err := storage.List(ctx, audit.ListFilter{Reason: audit.ReasonRawStatement})
	require.NoError(t, err)
	require.Len(t, byReason, 1)
	assert.Equal(t, campaign.ID, byReason[0].ID)

	limited, err := storage.List(ctx, audit.ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
