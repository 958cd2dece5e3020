package blockchain

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/blockassembly/merkle"
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

func newTestBlockchain(t *testing.T) *Blockchain {
	t.Helper()

	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Add(ctx, &model.Sidechain{ID: ceasingScID, WithdrawalEpochLength: 10}))
	require.NoError(t, store.Add(ctx, &model.Sidechain{ID: nonCeasingScID}))

	b := New(ulogger.TestLogger{}, settings.NewSettings(), store)
	require.NoError(t, b.Run(ctx))

	return b
}

// buildBlock assembles a block on the current tip with correct roots.
func buildBlock(t *testing.T, b *Blockchain, txs []*bt.Tx, certs []*model.Certificate) *model.Block {
	t.Helper()

	tip, err := b.GetBestBlock(context.Background())
	require.NoError(t, err)

	coinbase, err := model.CreateCoinbaseTx(tip.Height+1, 50e8, "/test/", make([]byte, 20))
	require.NoError(t, err)

	roots, err := merkle.ComputeRoots(coinbase, txs, certs)
	require.NoError(t, err)

	return &model.Block{
		Header: &model.BlockHeader{
			Version:         3,
			PreviousHash:    tip.Hash,
			MerkleRoot:      roots.MerkleTree,
			ScTxsCommitment: roots.ScTxsCommitment,
			Timestamp:       uint32(time.Now().Unix()), //nolint:gosec
			Bits:            0x207fffff,
		},
		CoinbaseTx:   coinbase,
		Transactions: txs,
		Certificates: certs,
	}
}

func TestAddBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("extends the tip", func(t *testing.T) {
		b := newTestBlockchain(t)

		genesis, err := b.GetBestBlock(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), genesis.Height)
		assert.Equal(t, *settings.NewSettings().ChainCfgParams.GenesisHash, genesis.Hash)

		block := buildBlock(t, b,
			[]*bt.Tx{model.NewTestTx(1, 100, ceasingScID)},
			[]*model.Certificate{
				model.NewTestCertificate(ceasingScID, 0, 1),
				model.NewTestCertificate(ceasingScID, 0, 2),
				model.NewTestCertificate(nonCeasingScID, 0, 9),
			},
		)

		require.NoError(t, b.AddBlock(ctx, block))

		tip, err := b.GetBestBlock(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), tip.Height)
		assert.Equal(t, block.Hash(), tip.Hash)

		hash := block.Hash()
		stored, height, err := b.GetBlock(ctx, &hash)
		require.NoError(t, err)
		assert.Same(t, block, stored)
		assert.Equal(t, uint32(1), height)

		require.ErrorIs(t, b.AddBlock(ctx, block), errors.ErrBlockExists)
	})

	t.Run("certificates out of order", func(t *testing.T) {
		b := newTestBlockchain(t)

		block := buildBlock(t, b, nil, []*model.Certificate{
			model.NewTestCertificate(ceasingScID, 0, 2),
			model.NewTestCertificate(ceasingScID, 0, 1),
		})

		err := b.AddBlock(ctx, block)
		require.ErrorIs(t, err, errors.ErrBlockInvalid)
		require.ErrorIs(t, err, errors.ErrCertOrder)
	})

	t.Run("two certificates for a non-ceasing sidechain", func(t *testing.T) {
		b := newTestBlockchain(t)

		block := buildBlock(t, b, nil, []*model.Certificate{
			model.NewTestCertificate(nonCeasingScID, 0, 1),
			model.NewTestCertificate(nonCeasingScID, 1, 1),
		})

		require.ErrorIs(t, b.AddBlock(ctx, block), errors.ErrCertOrder)
	})

	t.Run("wrong sidechain commitment", func(t *testing.T) {
		b := newTestBlockchain(t)

		block := buildBlock(t, b, nil, []*model.Certificate{model.NewTestCertificate(ceasingScID, 0, 1)})
		block.Header.ScTxsCommitment = model.TestScID(42)

		require.ErrorIs(t, b.AddBlock(ctx, block), errors.ErrBlockInvalid)
	})

	t.Run("wrong merkle root", func(t *testing.T) {
		b := newTestBlockchain(t)

		block := buildBlock(t, b, []*bt.Tx{model.NewTestTx(1, 100)}, nil)
		block.Header.MerkleRoot = model.TestScID(42)

		require.ErrorIs(t, b.AddBlock(ctx, block), errors.ErrBlockInvalid)
	})

	t.Run("unknown sidechain", func(t *testing.T) {
		b := newTestBlockchain(t)

		block := buildBlock(t, b, nil, []*model.Certificate{model.NewTestCertificate(model.TestScID(77), 0, 1)})

		err := b.AddBlock(ctx, block)
		require.ErrorIs(t, err, errors.ErrBlockInvalid)
		require.ErrorIs(t, err, errors.ErrSidechainNotFound)
	})

	t.Run("stale parent", func(t *testing.T) {
		b := newTestBlockchain(t)

		first := buildBlock(t, b, nil, nil)
		competing := buildBlock(t, b, []*bt.Tx{model.NewTestTx(5, 100)}, nil)

		require.NoError(t, b.AddBlock(ctx, first))
		require.ErrorIs(t, b.AddBlock(ctx, competing), errors.ErrBlockInvalid)
	})

	t.Run("duplicate transaction", func(t *testing.T) {
		b := newTestBlockchain(t)

		tx := model.NewTestTx(1, 100)
		block := buildBlock(t, b, []*bt.Tx{tx, tx}, nil)

		require.ErrorIs(t, b.AddBlock(ctx, block), errors.ErrBlockInvalid)
	})

	t.Run("idle chain state", func(t *testing.T) {
		b := newTestBlockchain(t)
		require.NoError(t, b.Stop(ctx))

		require.ErrorIs(t, b.AddBlock(ctx, buildBlock(t, b, nil, nil)), errors.ErrServiceNotStarted)
	})

	t.Run("block certificates are not written to", func(t *testing.T) {
		b := newTestBlockchain(t)

		ceasing := model.NewTestCertificate(ceasingScID, 0, 1)
		nonCeasing := model.NewTestCertificate(nonCeasingScID, 0, 1)
		nonCeasing.Ceasable = true

		block := buildBlock(t, b, nil, []*model.Certificate{ceasing, nonCeasing})
		require.NoError(t, b.AddBlock(ctx, block))

		assert.False(t, ceasing.Ceasable)
		assert.True(t, nonCeasing.Ceasable)
		assert.Same(t, ceasing, block.Certificates[0])
	})

	t.Run("ceasing flags come from the registry", func(t *testing.T) {
		b := newTestBlockchain(t)

		// flagged ceasable in the block, but the registry caps it at one certificate
		first := model.NewTestCertificate(nonCeasingScID, 0, 1)
		second := model.NewTestCertificate(nonCeasingScID, 0, 2)
		first.Ceasable = true
		second.Ceasable = true

		block := buildBlock(t, b, nil, []*model.Certificate{first, second})
		require.ErrorIs(t, b.AddBlock(ctx, block), errors.ErrCertOrder)
	})
}

func TestGetBlockNotFound(t *testing.T) {
	b := newTestBlockchain(t)

	hash := model.TestScID(5)
	_, _, err := b.GetBlock(context.Background(), &hash)
	require.ErrorIs(t, err, errors.ErrBlockNotFound)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	b := newTestBlockchain(t)

	status, _, err := b.Health(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	status, _, err = b.Health(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	require.NoError(t, b.Stop(ctx))

	status, _, err = b.Health(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
