package model

import (
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// TestScID derives a deterministic sidechain id from seed.
func TestScID(seed byte) chainhash.Hash {
	return chainhash.DoubleHashH([]byte{'s', 'c', seed})
}

// NewTestTx builds a spendable-looking transaction whose single input points at a
// fake outpoint derived from seed. Every forward transfer scid adds an output.
func NewTestTx(seed uint32, value uint64, forwardTransfers ...chainhash.Hash) *bt.Tx {
	prev := chainhash.DoubleHashH([]byte{byte(seed), byte(seed >> 8), byte(seed >> 16), byte(seed >> 24), 'p'})

	lockingScript := &bscript.Script{}
	_ = lockingScript.AppendOpcodes(bscript.OpTRUE)

	outputs := []*bt.Output{{Satoshis: value, LockingScript: lockingScript}}
	for _, scID := range forwardTransfers {
		outputs = append(outputs, &bt.Output{Satoshis: value, LockingScript: NewForwardTransferScript(scID)})
	}

	raw := BuildRawTx(1,
		[]RawInput{{PreviousTxID: prev, PreviousIndex: 0, UnlockingScript: []byte{0x51}, Sequence: 0xffffffff}},
		outputs,
		0,
	)

	tx, err := bt.NewTxFromBytes(raw)
	if err != nil {
		panic(err)
	}

	return tx
}

func NewTestTransaction(seed uint32, fee uint64, forwardTransfers ...chainhash.Hash) *Transaction {
	tx, err := NewTransaction(NewTestTx(seed, 1000, forwardTransfers...), fee, time.Unix(int64(seed), 0))
	if err != nil {
		panic(err)
	}

	return tx
}

func NewTestCertificate(scID chainhash.Hash, epoch int32, quality int64) *Certificate {
	return &Certificate{
		Version:     -5,
		ScID:        scID,
		EpochNumber: epoch,
		Quality:     quality,
		BackwardTransfers: []BackwardTransfer{
			{PubKeyHash: [20]byte{1, 2, 3}, Amount: 1000},
		},
		Fee:   100,
		Proof: []byte{0xde, 0xad, byte(epoch), byte(quality)},
	}
}
