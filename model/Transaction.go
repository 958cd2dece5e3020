package model

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/horizenofficial/sctemplate/errors"
)

const (
	// forward transfer locking script: OP_FALSE OP_RETURN <"sc"> <scid>
	forwardTransferScriptLen = 2 + 1 + 2 + 1 + chainhash.HashSize
)

var forwardTransferTag = []byte("sc")

// Transaction is a pending transaction together with the data the pool tracks about it.
type Transaction struct {
	Tx          *bt.Tx
	Hash        chainhash.Hash
	Fee         uint64
	ArrivalTime time.Time
}

// ForwardTransfer is a transaction output that moves coins into a sidechain.
type ForwardTransfer struct {
	ScID     chainhash.Hash
	Amount   uint64
	TxHash   chainhash.Hash
	OutIndex uint32
}

func NewTransaction(tx *bt.Tx, fee uint64, arrival time.Time) (*Transaction, error) {
	if tx == nil {
		return nil, errors.NewTxInvalidError("transaction is nil")
	}

	if tx.IsCoinbase() {
		return nil, errors.NewTxInvalidError("coinbase transactions cannot be pooled")
	}

	return &Transaction{
		Tx:          tx,
		Hash:        *tx.TxIDChainHash(),
		Fee:         fee,
		ArrivalTime: arrival,
	}, nil
}

func NewTransactionFromBytes(b []byte, fee uint64, arrival time.Time) (*Transaction, error) {
	tx, err := bt.NewTxFromBytes(b)
	if err != nil {
		return nil, errors.NewTxInvalidError("failed to decode transaction", err)
	}

	return NewTransaction(tx, fee, arrival)
}

func (t *Transaction) Bytes() []byte {
	return t.Tx.Bytes()
}

// ForwardTransfers returns the sidechain forward transfers carried by the transaction, in output order.
func (t *Transaction) ForwardTransfers() []ForwardTransfer {
	return ExtractForwardTransfers(t.Tx)
}

func ExtractForwardTransfers(tx *bt.Tx) []ForwardTransfer {
	var (
		fts    []ForwardTransfer
		txHash chainhash.Hash
	)

	for i, output := range tx.Outputs {
		if output == nil || output.LockingScript == nil {
			continue
		}

		scID, ok := ParseForwardTransferScript(*output.LockingScript)
		if !ok {
			continue
		}

		if fts == nil {
			txHash = *tx.TxIDChainHash()
		}

		fts = append(fts, ForwardTransfer{
			ScID:     scID,
			Amount:   output.Satoshis,
			TxHash:   txHash,
			OutIndex: uint32(i), //nolint:gosec
		})
	}

	return fts
}

// Hash commits to the funding outpoint, the destination and the amount.
func (ft ForwardTransfer) Hash() chainhash.Hash {
	buf := make([]byte, 0, 2*chainhash.HashSize+12)
	buf = append(buf, ft.TxHash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, ft.OutIndex)
	buf = append(buf, ft.ScID[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, ft.Amount)

	return chainhash.DoubleHashH(buf)
}

func NewForwardTransferScript(scID chainhash.Hash) *bscript.Script {
	s := &bscript.Script{}
	_ = s.AppendOpcodes(bscript.OpFALSE, bscript.OpRETURN)
	_ = s.AppendPushData(forwardTransferTag)
	_ = s.AppendPushData(scID[:])

	return s
}

func ParseForwardTransferScript(script []byte) (chainhash.Hash, bool) {
	var scID chainhash.Hash

	if len(script) != forwardTransferScriptLen {
		return scID, false
	}

	if script[0] != bscript.OpFALSE || script[1] != bscript.OpRETURN {
		return scID, false
	}

	if script[2] != byte(len(forwardTransferTag)) || !bytes.Equal(script[3:5], forwardTransferTag) {
		return scID, false
	}

	if script[5] != chainhash.HashSize {
		return scID, false
	}

	copy(scID[:], script[6:])

	return scID, true
}
