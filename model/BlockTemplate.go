package model

import (
	"encoding/binary"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/cespare/xxhash"
)

// ChainTip identifies the block a template builds on.
type ChainTip struct {
	Hash   chainhash.Hash
	Height uint32
	Time   time.Time
}

// CommitmentRoots are the header commitments a miner needs to finish a block.
type CommitmentRoots struct {
	MerkleTree      chainhash.Hash
	ScTxsCommitment chainhash.Hash
}

// BlockTemplate is an immutable candidate block body. Once cached it is never
// modified; WithRoots hands out a copy.
type BlockTemplate struct {
	ID            string
	Version       int32
	PreviousHash  chainhash.Hash
	Height        uint32
	Bits          uint32
	BuildTime     time.Time
	Coinbase      *bt.Tx
	CoinbaseValue uint64
	Transactions  []*Transaction
	Certificates  []*Certificate
	Fingerprint   uint64

	// only set on copies handed to callers that asked for roots
	Roots *CommitmentRoots
}

// WithRoots returns a shallow copy of the template carrying roots.
func (t *BlockTemplate) WithRoots(roots *CommitmentRoots) *BlockTemplate {
	cp := *t
	cp.Roots = roots

	return &cp
}

// RawTransactions returns the go-bt transactions in template order, without the coinbase.
func (t *BlockTemplate) RawTransactions() []*bt.Tx {
	txs := make([]*bt.Tx, len(t.Transactions))
	for i, tx := range t.Transactions {
		txs[i] = tx.Tx
	}

	return txs
}

func (t *BlockTemplate) TotalFees() uint64 {
	var fees uint64

	for _, tx := range t.Transactions {
		fees += tx.Fee
	}

	for _, cert := range t.Certificates {
		fees += cert.Fee
	}

	return fees
}

// ContentFingerprint hashes the parent and the ordered transaction and certificate
// ids, so two builds over the same pool content collide.
func ContentFingerprint(prev chainhash.Hash, txs []*Transaction, certs []*Certificate) uint64 {
	buf := make([]byte, 0, chainhash.HashSize*(1+len(txs)+len(certs))+8)
	buf = append(buf, prev[:]...)

	for _, tx := range txs {
		buf = append(buf, tx.Hash[:]...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(certs))) //nolint:gosec

	for _, cert := range certs {
		h := cert.Hash()
		buf = append(buf, h[:]...)
	}

	return xxhash.Sum64(buf)
}
