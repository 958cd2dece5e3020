package model

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-wire"
	"github.com/horizenofficial/sctemplate/errors"
)

const (
	BlockHeaderSize = 4 + 3*chainhash.HashSize + 12

	maxBlockItems = 1_000_000
	maxTxSize     = 10 * 1024 * 1024
)

type BlockHeader struct {
	Version         int32
	PreviousHash    chainhash.Hash
	MerkleRoot      chainhash.Hash
	ScTxsCommitment chainhash.Hash
	Timestamp       uint32
	Bits            uint32
	Nonce           uint32
}

func (bh *BlockHeader) Bytes() []byte {
	b := make([]byte, 0, BlockHeaderSize)
	b = binary.LittleEndian.AppendUint32(b, uint32(bh.Version)) //nolint:gosec
	b = append(b, bh.PreviousHash[:]...)
	b = append(b, bh.MerkleRoot[:]...)
	b = append(b, bh.ScTxsCommitment[:]...)
	b = binary.LittleEndian.AppendUint32(b, bh.Timestamp)
	b = binary.LittleEndian.AppendUint32(b, bh.Bits)
	b = binary.LittleEndian.AppendUint32(b, bh.Nonce)

	return b
}

func (bh *BlockHeader) Hash() chainhash.Hash {
	return chainhash.DoubleHashH(bh.Bytes())
}

func NewBlockHeaderFromBytes(headerBytes []byte) (*BlockHeader, error) {
	if len(headerBytes) != BlockHeaderSize {
		return nil, errors.NewBlockInvalidError("block header should be %d bytes long, got %d", BlockHeaderSize, len(headerBytes))
	}

	bh := &BlockHeader{
		Version: int32(binary.LittleEndian.Uint32(headerBytes[:4])), //nolint:gosec
	}

	copy(bh.PreviousHash[:], headerBytes[4:36])
	copy(bh.MerkleRoot[:], headerBytes[36:68])
	copy(bh.ScTxsCommitment[:], headerBytes[68:100])

	bh.Timestamp = binary.LittleEndian.Uint32(headerBytes[100:104])
	bh.Bits = binary.LittleEndian.Uint32(headerBytes[104:108])
	bh.Nonce = binary.LittleEndian.Uint32(headerBytes[108:112])

	return bh, nil
}

// Block is a mined template: header, coinbase, transactions and certificates in
// the order the template fixed.
type Block struct {
	Header       *BlockHeader
	CoinbaseTx   *bt.Tx
	Transactions []*bt.Tx
	Certificates []*Certificate
}

// NewBlockFromTemplate assembles the block body of t under the given roots.
func NewBlockFromTemplate(t *BlockTemplate, roots *CommitmentRoots, nonce uint32) *Block {
	header := &BlockHeader{
		Version:      t.Version,
		PreviousHash: t.PreviousHash,
		Timestamp:    uint32(t.BuildTime.Unix()), //nolint:gosec
		Bits:         t.Bits,
		Nonce:        nonce,
	}

	if roots != nil {
		header.MerkleRoot = roots.MerkleTree
		header.ScTxsCommitment = roots.ScTxsCommitment
	}

	return &Block{
		Header:       header,
		CoinbaseTx:   t.Coinbase,
		Transactions: t.RawTransactions(),
		Certificates: t.Certificates,
	}
}

func (b *Block) Hash() chainhash.Hash {
	return b.Header.Hash()
}

func (b *Block) Time() time.Time {
	return time.Unix(int64(b.Header.Timestamp), 0)
}

func (b *Block) Bytes() []byte {
	buf := bytes.NewBuffer(b.Header.Bytes())

	_ = wire.WriteVarInt(buf, 0, uint64(len(b.Transactions)+1))
	_ = wire.WriteVarBytes(buf, 0, b.CoinbaseTx.Bytes())

	for _, tx := range b.Transactions {
		_ = wire.WriteVarBytes(buf, 0, tx.Bytes())
	}

	_ = wire.WriteVarInt(buf, 0, uint64(len(b.Certificates)))
	for _, cert := range b.Certificates {
		_ = wire.WriteVarBytes(buf, 0, cert.Bytes())
	}

	return buf.Bytes()
}

func (b *Block) String() string {
	return hex.EncodeToString(b.Bytes())
}

func NewBlockFromString(s string) (*Block, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.NewBlockInvalidError("invalid block hex", err)
	}

	return NewBlockFromBytes(raw)
}

func NewBlockFromBytes(raw []byte) (*Block, error) {
	if len(raw) < BlockHeaderSize {
		return nil, errors.NewBlockInvalidError("block too short: %d bytes", len(raw))
	}

	header, err := NewBlockHeaderFromBytes(raw[:BlockHeaderSize])
	if err != nil {
		return nil, err
	}

	block := &Block{Header: header}
	r := bytes.NewReader(raw[BlockHeaderSize:])

	txCount, err := readCount(r, "transaction")
	if err != nil {
		return nil, err
	}

	if txCount == 0 {
		return nil, errors.NewBlockInvalidError("block has no coinbase")
	}

	for i := uint64(0); i < txCount; i++ {
		txBytes, err := wire.ReadVarBytes(r, 0, maxTxSize, "tx")
		if err != nil {
			return nil, errors.NewBlockInvalidError("failed to read transaction %d", i, err)
		}

		tx, err := bt.NewTxFromBytes(txBytes)
		if err != nil {
			return nil, errors.NewBlockInvalidError("failed to decode transaction %d", i, err)
		}

		if i == 0 {
			block.CoinbaseTx = tx
			continue
		}

		block.Transactions = append(block.Transactions, tx)
	}

	certCount, err := readCount(r, "certificate")
	if err != nil {
		return nil, err
	}

	for i := uint64(0); i < certCount; i++ {
		certBytes, err := wire.ReadVarBytes(r, 0, maxTxSize, "certificate")
		if err != nil {
			return nil, errors.NewBlockInvalidError("failed to read certificate %d", i, err)
		}

		cert, err := NewCertificateFromBytes(certBytes)
		if err != nil {
			return nil, errors.NewBlockInvalidError("failed to decode certificate %d", i, err)
		}

		block.Certificates = append(block.Certificates, cert)
	}

	if r.Len() != 0 {
		return nil, errors.NewBlockInvalidError("%d trailing bytes after block", r.Len())
	}

	return block, nil
}

func readCount(r io.Reader, what string) (uint64, error) {
	n, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return 0, errors.NewBlockInvalidError("failed to read %s count", what, err)
	}

	if n > maxBlockItems {
		return 0, errors.NewBlockInvalidError("too many %ss: %d", what, n)
	}

	return n, nil
}
