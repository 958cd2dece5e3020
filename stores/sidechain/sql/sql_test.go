package sql

import (
	"context"
	"net/url"
	"testing"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQL {
	storeURL, err := url.Parse("sqlitememory:///sidechains")
	require.NoError(t, err)

	store, err := New(ulogger.TestLogger{}, settings.NewSettings(), storeURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	scA := &model.Sidechain{ID: model.TestScID(1), Version: 1, WithdrawalEpochLength: 100, CreationHeight: 220}
	scB := &model.Sidechain{ID: model.TestScID(2), Version: 2}

	t.Run("add and get", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, scA))
		require.NoError(t, store.Add(ctx, scB))

		got, err := store.Get(ctx, scA.ID)
		require.NoError(t, err)
		assert.Equal(t, *scA, *got)

		got, err = store.Get(ctx, scB.ID)
		require.NoError(t, err)
		assert.False(t, got.Ceasable())
	})

	t.Run("duplicate", func(t *testing.T) {
		require.ErrorIs(t, store.Add(ctx, scA), errors.ErrSidechainExists)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.Get(ctx, model.TestScID(77))
		require.ErrorIs(t, err, errors.ErrSidechainNotFound)

		exists, err := store.Exists(ctx, model.TestScID(77))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("list", func(t *testing.T) {
		list, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
	})

	t.Run("health", func(t *testing.T) {
		code, _, err := store.Health(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 200, code)
	})
}
