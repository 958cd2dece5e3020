// Package merkle computes the commitment roots of a block template: the
// transaction merkle root and the sidechain transactions commitment.
package merkle

import (
	"bytes"
	"sort"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
)

// Root returns the double-SHA256 merkle root of hashes. Odd levels pair the last
// node with itself. An empty list has the zero hash as root.
func Root(hashes []chainhash.Hash) chainhash.Hash {
	if len(hashes) == 0 {
		return chainhash.Hash{}
	}

	level := make([]chainhash.Hash, len(hashes))
	copy(level, hashes)

	var pair [2 * chainhash.HashSize]byte

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		next := level[:0:0]
		for i := 0; i < len(level); i += 2 {
			copy(pair[:chainhash.HashSize], level[i][:])
			copy(pair[chainhash.HashSize:], level[i+1][:])
			next = append(next, chainhash.DoubleHashH(pair[:]))
		}

		level = next
	}

	return level[0]
}

// TransactionRoot is the block merkle root over the coinbase followed by txs.
func TransactionRoot(coinbase *bt.Tx, txs []*bt.Tx) (chainhash.Hash, error) {
	if coinbase == nil {
		return chainhash.Hash{}, errors.NewRootsError("merkle tree needs a coinbase")
	}

	hashes := make([]chainhash.Hash, 0, len(txs)+1)
	hashes = append(hashes, *coinbase.TxIDChainHash())

	for i, tx := range txs {
		if tx == nil {
			return chainhash.Hash{}, errors.NewRootsError("transaction %d is nil", i)
		}

		hashes = append(hashes, *tx.TxIDChainHash())
	}

	return Root(hashes), nil
}

type sidechainLeaves struct {
	scID  chainhash.Hash
	fts   []chainhash.Hash
	certs []chainhash.Hash
}

// ScTxsCommitment commits to every sidechain touched by the block. Each
// sidechain contributes H(scid || root(forward transfers) || root(certificates));
// the commitment is the merkle root of those leaves in ascending scid order.
// A block that touches no sidechain commits to the zero hash.
func ScTxsCommitment(txs []*bt.Tx, certs []*model.Certificate) (chainhash.Hash, error) {
	bySc := make(map[chainhash.Hash]*sidechainLeaves)

	get := func(scID chainhash.Hash) *sidechainLeaves {
		leaves, ok := bySc[scID]
		if !ok {
			leaves = &sidechainLeaves{scID: scID}
			bySc[scID] = leaves
		}

		return leaves
	}

	for i, tx := range txs {
		if tx == nil {
			return chainhash.Hash{}, errors.NewRootsError("transaction %d is nil", i)
		}

		for _, ft := range model.ExtractForwardTransfers(tx) {
			leaves := get(ft.ScID)
			leaves.fts = append(leaves.fts, ft.Hash())
		}
	}

	for i, cert := range certs {
		if cert == nil {
			return chainhash.Hash{}, errors.NewRootsError("certificate %d is nil", i)
		}

		leaves := get(cert.ScID)
		leaves.certs = append(leaves.certs, cert.Hash())
	}

	if len(bySc) == 0 {
		return chainhash.Hash{}, nil
	}

	sidechains := make([]*sidechainLeaves, 0, len(bySc))
	for _, leaves := range bySc {
		sidechains = append(sidechains, leaves)
	}

	sort.Slice(sidechains, func(i, j int) bool {
		return bytes.Compare(sidechains[i].scID[:], sidechains[j].scID[:]) < 0
	})

	var buf [3 * chainhash.HashSize]byte

	scHashes := make([]chainhash.Hash, len(sidechains))
	for i, sc := range sidechains {
		ftRoot := Root(sc.fts)
		certRoot := Root(sc.certs)

		copy(buf[:chainhash.HashSize], sc.scID[:])
		copy(buf[chainhash.HashSize:2*chainhash.HashSize], ftRoot[:])
		copy(buf[2*chainhash.HashSize:], certRoot[:])

		scHashes[i] = chainhash.DoubleHashH(buf[:])
	}

	return Root(scHashes), nil
}

// ComputeRoots is a pure function of the ordered block content.
func ComputeRoots(coinbase *bt.Tx, txs []*bt.Tx, certs []*model.Certificate) (*model.CommitmentRoots, error) {
	merkleTree, err := TransactionRoot(coinbase, txs)
	if err != nil {
		return nil, err
	}

	scTxsCommitment, err := ScTxsCommitment(txs, certs)
	if err != nil {
		return nil, err
	}

	return &model.CommitmentRoots{
		MerkleTree:      merkleTree,
		ScTxsCommitment: scTxsCommitment,
	}, nil
}

// ComputeTemplateRoots computes the roots over the fixed content of a template.
func ComputeTemplateRoots(t *model.BlockTemplate) (*model.CommitmentRoots, error) {
	if t == nil {
		return nil, errors.NewRootsError("no template")
	}

	return ComputeRoots(t.Coinbase, t.RawTransactions(), t.Certificates)
}

// ComputeRootsFromBytes decodes serialized transactions, the first being the
// coinbase, and serialized certificates, then computes their roots.
func ComputeRootsFromBytes(rawTxs [][]byte, rawCerts [][]byte) (*model.CommitmentRoots, error) {
	if len(rawTxs) == 0 {
		return nil, errors.NewRootsError("at least the coinbase transaction is required")
	}

	txs := make([]*bt.Tx, len(rawTxs))
	for i, raw := range rawTxs {
		tx, err := bt.NewTxFromBytes(raw)
		if err != nil {
			return nil, errors.NewTxInvalidError("failed to decode transaction %d", i, err)
		}

		txs[i] = tx
	}

	certs := make([]*model.Certificate, len(rawCerts))
	for i, raw := range rawCerts {
		cert, err := model.NewCertificateFromBytes(raw)
		if err != nil {
			return nil, err
		}

		certs[i] = cert
	}

	return ComputeRoots(txs[0], txs[1:], certs)
}
