package model

import (
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPubKeyHash = []byte{
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a,
	0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14,
}

func TestCertificate(t *testing.T) {
	scID := TestScID(1)

	t.Run("decode what was encoded", func(t *testing.T) {
		cert := NewTestCertificate(scID, 3, 42)
		cert.EndEpochCumScTxCommTreeRoot = chainhash.DoubleHashH([]byte("root"))

		decoded, err := NewCertificateFromString(cert.String())
		require.NoError(t, err)

		assert.Equal(t, cert.Hash(), decoded.Hash())
		assert.Equal(t, scID, decoded.ScID)
		assert.Equal(t, int32(3), decoded.EpochNumber)
		assert.Equal(t, int64(42), decoded.Quality)
		assert.Equal(t, uint64(1000), decoded.TotalBackwardTransfers())
		assert.False(t, decoded.Ceasable, "ceasable is pool state, not wire data")
	})

	t.Run("quality changes the hash", func(t *testing.T) {
		assert.NotEqual(t, NewTestCertificate(scID, 3, 1).Hash(), NewTestCertificate(scID, 3, 2).Hash())
	})

	t.Run("truncated", func(t *testing.T) {
		raw := NewTestCertificate(scID, 0, 0).Bytes()

		_, err := NewCertificateFromBytes(raw[:40])
		require.ErrorIs(t, err, errors.ErrCertInvalid)
	})

	t.Run("validate", func(t *testing.T) {
		require.NoError(t, NewTestCertificate(scID, 0, 0).Validate())
		require.ErrorIs(t, NewTestCertificate(scID, -1, 0).Validate(), errors.ErrCertInvalid)
		require.ErrorIs(t, NewTestCertificate(scID, 0, -1).Validate(), errors.ErrCertInvalid)
	})
}

func TestForwardTransfers(t *testing.T) {
	scA := TestScID(1)
	scB := TestScID(2)

	tx := NewTestTransaction(7, 10, scA, scB)

	fts := tx.ForwardTransfers()
	require.Len(t, fts, 2)

	assert.Equal(t, scA, fts[0].ScID)
	assert.Equal(t, uint32(1), fts[0].OutIndex)
	assert.Equal(t, scB, fts[1].ScID)
	assert.Equal(t, tx.Hash, fts[1].TxHash)
	assert.NotEqual(t, fts[0].Hash(), fts[1].Hash())

	assert.Empty(t, NewTestTransaction(8, 10).ForwardTransfers())

	_, ok := ParseForwardTransferScript([]byte{0x00, 0x6a})
	assert.False(t, ok)
}

func TestNewTransaction(t *testing.T) {
	tx := NewTestTx(1, 500)

	pooled, err := NewTransactionFromBytes(tx.Bytes(), 5, time.Now())
	require.NoError(t, err)
	assert.Equal(t, *tx.TxIDChainHash(), pooled.Hash)

	coinbase, err := CreateCoinbaseTx(1, 100, "/test/", testPubKeyHash)
	require.NoError(t, err)

	_, err = NewTransaction(coinbase, 0, time.Now())
	require.ErrorIs(t, err, errors.ErrTxInvalid)

	_, err = NewTransactionFromBytes([]byte{0x01}, 0, time.Now())
	require.ErrorIs(t, err, errors.ErrTxInvalid)
}

func TestCoinbase(t *testing.T) {
	for _, height := range []uint32{0, 1, 127, 128, 255, 256, 70000, 16777216} {
		coinbase, err := CreateCoinbaseTx(height, 625_000_000, "/sctemplate/", testPubKeyHash)
		require.NoError(t, err)
		require.True(t, coinbase.IsCoinbase())

		extracted, err := ExtractCoinbaseHeight(coinbase)
		require.NoError(t, err)
		assert.Equal(t, height, extracted)

		require.Len(t, coinbase.Outputs, 1)
		assert.Equal(t, uint64(625_000_000), coinbase.Outputs[0].Satoshis)
	}

	_, err := CreateCoinbaseTx(1, 1, "", []byte{1})
	require.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = DecodePubKeyHash("zz")
	require.ErrorIs(t, err, errors.ErrConfiguration)

	_, err = DecodePubKeyHash("abcd")
	require.ErrorIs(t, err, errors.ErrConfiguration)

	pkh, err := DecodePubKeyHash("00112233445566778899aabbccddeeff00112233")
	require.NoError(t, err)
	assert.Len(t, pkh, 20)
}

func TestCalcBlockSubsidy(t *testing.T) {
	params := &chaincfg.Params{SubsidyReductionInterval: 150}

	assert.Equal(t, uint64(5_000_000_000), CalcBlockSubsidy(0, params))
	assert.Equal(t, uint64(2_500_000_000), CalcBlockSubsidy(150, params))
	assert.Equal(t, uint64(1_250_000_000), CalcBlockSubsidy(300, params))
	assert.Equal(t, uint64(0), CalcBlockSubsidy(150*64, params))

	// zero interval would divide by zero
	assert.Equal(t, uint64(5_000_000_000), CalcBlockSubsidy(1000, &chaincfg.Params{}))
}

func TestBlock(t *testing.T) {
	coinbase, err := CreateCoinbaseTx(101, 5000, "/t/", testPubKeyHash)
	require.NoError(t, err)

	template := &BlockTemplate{
		ID:           "t1",
		Version:      3,
		PreviousHash: chainhash.DoubleHashH([]byte("prev")),
		Height:       101,
		Bits:         0x207fffff,
		BuildTime:    time.Unix(1700000000, 0),
		Coinbase:     coinbase,
		Transactions: []*Transaction{NewTestTransaction(1, 1), NewTestTransaction(2, 1)},
		Certificates: []*Certificate{NewTestCertificate(TestScID(1), 0, 1)},
	}

	roots := &CommitmentRoots{
		MerkleTree:      chainhash.DoubleHashH([]byte("m")),
		ScTxsCommitment: chainhash.DoubleHashH([]byte("s")),
	}

	block := NewBlockFromTemplate(template, roots, 7)

	decoded, err := NewBlockFromString(block.String())
	require.NoError(t, err)

	assert.Equal(t, block.Hash(), decoded.Hash())
	assert.Equal(t, roots.MerkleTree, decoded.Header.MerkleRoot)
	assert.Equal(t, roots.ScTxsCommitment, decoded.Header.ScTxsCommitment)
	assert.Equal(t, *coinbase.TxIDChainHash(), *decoded.CoinbaseTx.TxIDChainHash())
	require.Len(t, decoded.Transactions, 2)
	require.Len(t, decoded.Certificates, 1)
	assert.Equal(t, template.Certificates[0].Hash(), decoded.Certificates[0].Hash())

	_, err = NewBlockFromBytes(append(block.Bytes(), 0x00))
	require.ErrorIs(t, err, errors.ErrBlockInvalid)
}

func TestBlockTemplate(t *testing.T) {
	prev := chainhash.DoubleHashH([]byte("prev"))
	txs := []*Transaction{NewTestTransaction(1, 3), NewTestTransaction(2, 4)}
	certs := []*Certificate{NewTestCertificate(TestScID(1), 0, 1)}

	template := &BlockTemplate{ID: "x", Transactions: txs, Certificates: certs}

	t.Run("with roots copies", func(t *testing.T) {
		withRoots := template.WithRoots(&CommitmentRoots{})
		assert.NotNil(t, withRoots.Roots)
		assert.Nil(t, template.Roots)
		assert.Equal(t, template.ID, withRoots.ID)
	})

	t.Run("fees", func(t *testing.T) {
		assert.Equal(t, uint64(107), template.TotalFees())
	})

	t.Run("fingerprint", func(t *testing.T) {
		fp := ContentFingerprint(prev, txs, certs)
		assert.Equal(t, fp, ContentFingerprint(prev, txs, certs))
		assert.NotEqual(t, fp, ContentFingerprint(prev, txs[:1], certs))
		assert.NotEqual(t, fp, ContentFingerprint(chainhash.Hash{}, txs, certs))
	})
}

func TestSidechainCeasable(t *testing.T) {
	assert.True(t, (&Sidechain{WithdrawalEpochLength: 10}).Ceasable())
	assert.False(t, (&Sidechain{}).Ceasable())
}
