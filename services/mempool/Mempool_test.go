package mempool

import (
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/stores/sidechain/memory"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ceasingScID    = model.TestScID(1)
	nonCeasingScID = model.TestScID(2)
)

func newTestMempool(t *testing.T) *Mempool {
	t.Helper()

	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Add(ctx, &model.Sidechain{ID: ceasingScID, WithdrawalEpochLength: 10}))
	require.NoError(t, store.Add(ctx, &model.Sidechain{ID: nonCeasingScID}))

	return New(ulogger.TestLogger{}, settings.NewSettings(), store)
}

func TestAddTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted", func(t *testing.T) {
		m := newTestMempool(t)
		seq := m.Sequence()

		tx := model.NewTestTransaction(1, 50, ceasingScID)
		require.NoError(t, m.AddTransaction(ctx, tx))

		assert.Greater(t, m.Sequence(), seq)

		got, ok := m.GetTransaction(tx.Hash)
		require.True(t, ok)
		assert.Same(t, tx, got)
		assert.Equal(t, 1, m.Info().Transactions)
	})

	t.Run("duplicate", func(t *testing.T) {
		m := newTestMempool(t)

		require.NoError(t, m.AddTransaction(ctx, model.NewTestTransaction(1, 50)))

		seq := m.Sequence()
		require.ErrorIs(t, m.AddTransaction(ctx, model.NewTestTransaction(1, 50)), errors.ErrTxAlreadyExists)
		assert.Equal(t, seq, m.Sequence())
	})

	t.Run("forward transfer to unknown sidechain", func(t *testing.T) {
		m := newTestMempool(t)

		err := m.AddTransaction(ctx, model.NewTestTransaction(1, 50, model.TestScID(99)))
		require.ErrorIs(t, err, errors.ErrTxInvalid)
		require.ErrorIs(t, err, errors.ErrSidechainNotFound)
	})

	t.Run("pool full", func(t *testing.T) {
		m := newTestMempool(t)
		m.settings.Mempool.MaxTransactions = 1

		require.NoError(t, m.AddTransaction(ctx, model.NewTestTransaction(1, 50)))
		require.ErrorIs(t, m.AddTransaction(ctx, model.NewTestTransaction(2, 50)), errors.ErrThresholdExceeded)
	})

	t.Run("nil", func(t *testing.T) {
		m := newTestMempool(t)
		require.ErrorIs(t, m.AddTransaction(ctx, nil), errors.ErrTxInvalid)
	})
}

func TestAddCertificate(t *testing.T) {
	ctx := context.Background()

	t.Run("ceasing flag comes from the registry", func(t *testing.T) {
		m := newTestMempool(t)

		cert := model.NewTestCertificate(ceasingScID, 0, 1)
		require.NoError(t, m.AddCertificate(ctx, cert))

		pooled, ok := m.GetCertificate(cert.Hash())
		require.True(t, ok)
		assert.True(t, pooled.Ceasable)
		assert.False(t, cert.Ceasable)
	})

	t.Run("competing qualities on a ceasing sidechain", func(t *testing.T) {
		m := newTestMempool(t)

		require.NoError(t, m.AddCertificate(ctx, model.NewTestCertificate(ceasingScID, 0, 1)))
		require.NoError(t, m.AddCertificate(ctx, model.NewTestCertificate(ceasingScID, 0, 2)))
		assert.Equal(t, 2, m.Info().Certificates)
	})

	t.Run("same epoch and quality", func(t *testing.T) {
		m := newTestMempool(t)

		first := model.NewTestCertificate(ceasingScID, 0, 1)
		second := model.NewTestCertificate(ceasingScID, 0, 1)
		second.Fee = 999

		require.NoError(t, m.AddCertificate(ctx, first))
		require.ErrorIs(t, m.AddCertificate(ctx, second), errors.ErrCertAlreadyExists)
	})

	t.Run("same epoch on a non-ceasing sidechain", func(t *testing.T) {
		m := newTestMempool(t)

		require.NoError(t, m.AddCertificate(ctx, model.NewTestCertificate(nonCeasingScID, 0, 1)))
		require.ErrorIs(t, m.AddCertificate(ctx, model.NewTestCertificate(nonCeasingScID, 0, 2)), errors.ErrCertAlreadyExists)
		require.NoError(t, m.AddCertificate(ctx, model.NewTestCertificate(nonCeasingScID, 1, 2)))
	})

	t.Run("unknown sidechain", func(t *testing.T) {
		m := newTestMempool(t)

		err := m.AddCertificate(ctx, model.NewTestCertificate(model.TestScID(99), 0, 1))
		require.ErrorIs(t, err, errors.ErrCertInvalid)
		require.ErrorIs(t, err, errors.ErrSidechainNotFound)
	})

	t.Run("negative quality", func(t *testing.T) {
		m := newTestMempool(t)
		require.ErrorIs(t, m.AddCertificate(ctx, model.NewTestCertificate(ceasingScID, 0, -1)), errors.ErrCertInvalid)
	})
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	m := newTestMempool(t)

	require.NoError(t, m.AddTransaction(ctx, model.NewTestTransaction(3, 10)))
	require.NoError(t, m.AddTransaction(ctx, model.NewTestTransaction(1, 10)))
	require.NoError(t, m.AddTransaction(ctx, model.NewTestTransaction(2, 10, ceasingScID)))

	require.NoError(t, m.AddCertificate(ctx, model.NewTestCertificate(ceasingScID, 0, 2)))
	require.NoError(t, m.AddCertificate(ctx, model.NewTestCertificate(ceasingScID, 0, 1)))
	require.NoError(t, m.AddCertificate(ctx, model.NewTestCertificate(nonCeasingScID, 4, 1)))
	require.NoError(t, m.AddCertificate(ctx, model.NewTestCertificate(nonCeasingScID, 3, 7)))

	view, err := m.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, m.Sequence(), view.Sequence)
	assert.False(t, view.Empty())

	require.Len(t, view.Transactions, 3)

	for i, tx := range view.Transactions {
		assert.Equal(t, time.Unix(int64(i+1), 0), tx.ArrivalTime)
	}

	require.Len(t, view.Certificates, 3)

	var nonCeasing []*model.Certificate

	for _, cert := range view.Certificates {
		if cert.ScID == nonCeasingScID {
			nonCeasing = append(nonCeasing, cert)
		}
	}

	require.Len(t, nonCeasing, 1)
	assert.Equal(t, int32(3), nonCeasing[0].EpochNumber)

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := m.Snapshot(canceled)
		require.ErrorIs(t, err, errors.ErrContextCanceled)
	})
}

func TestRemoveMined(t *testing.T) {
	ctx := context.Background()
	m := newTestMempool(t)

	tx := model.NewTestTransaction(1, 10)
	require.NoError(t, m.AddTransaction(ctx, tx))
	require.NoError(t, m.AddTransaction(ctx, model.NewTestTransaction(2, 10)))

	low := model.NewTestCertificate(ceasingScID, 1, 1)
	mined := model.NewTestCertificate(ceasingScID, 1, 5)
	higher := model.NewTestCertificate(ceasingScID, 1, 9)
	older := model.NewTestCertificate(ceasingScID, 0, 9)

	for _, cert := range []*model.Certificate{low, mined, higher, older} {
		require.NoError(t, m.AddCertificate(ctx, cert))
	}

	seq := m.Sequence()

	m.RemoveMined(&model.Block{
		Header:       &model.BlockHeader{},
		Transactions: []*bt.Tx{tx.Tx},
		Certificates: []*model.Certificate{mined},
	})

	assert.Greater(t, m.Sequence(), seq)

	info := m.Info()
	assert.Equal(t, 1, info.Transactions)
	assert.Equal(t, 1, info.Certificates)

	_, ok := m.GetCertificate(higher.Hash())
	assert.True(t, ok)

	for _, cert := range []*model.Certificate{low, mined, older} {
		_, ok := m.GetCertificate(cert.Hash())
		assert.False(t, ok)
	}

	t.Run("superseded certificates are refused", func(t *testing.T) {
		require.ErrorIs(t, m.AddCertificate(ctx, model.NewTestCertificate(ceasingScID, 1, 3)), errors.ErrCertInvalid)
		require.ErrorIs(t, m.AddCertificate(ctx, model.NewTestCertificate(ceasingScID, 0, 50)), errors.ErrCertInvalid)
		require.NoError(t, m.AddCertificate(ctx, model.NewTestCertificate(ceasingScID, 1, 7)))
	})
}
