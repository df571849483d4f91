package auditlog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"padipay/core/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	store.nowFn = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return store
}

func TestAppendAndList(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Append(2, []*types.Event{
		{Type: "bank.transfer", Attributes: map[string]string{"amount": "100"}},
		{Type: "payments.sent", Attributes: map[string]string{"id": "1"}},
	}))
	require.NoError(t, store.Append(3, []*types.Event{{Type: "escrow.claimed"}}))
	require.NoError(t, store.Append(4, nil))

	all, err := store.List(0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, uint64(1), all[0].Seq)
	require.Equal(t, "payments.sent", all[1].Type)
	require.Equal(t, uint64(3), all[2].Height)
	require.Equal(t, "1", all[1].Attributes["id"])

	page, err := store.List(2, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, uint64(2), page[0].Seq)

	height, err := store.LastHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(3), height)
	count, err := store.Count()
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestAppendRejectsHeightRegression(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Append(5, []*types.Event{{Type: "bank.mint"}}))
	err := store.Append(4, []*types.Event{{Type: "bank.mint"}})
	require.True(t, errors.Is(err, ErrHeightRegression))
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(1, []*types.Event{{Type: "registry.registered"}}))
	require.NoError(t, store.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	records, err := reopened.List(0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "registry.registered", records[0].Type)
}
