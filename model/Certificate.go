package model

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-wire"
	"github.com/horizenofficial/sctemplate/errors"
)

const (
	maxBackwardTransfers = 4096
	maxProofSize         = 1 << 20
)

type BackwardTransfer struct {
	PubKeyHash [20]byte
	Amount     uint64
}

// Certificate is a sidechain withdrawal certificate. Several certificates for the
// same sidechain and epoch compete on Quality.
type Certificate struct {
	Version                     int32
	ScID                        chainhash.Hash
	EpochNumber                 int32
	Quality                     int64
	EndEpochCumScTxCommTreeRoot chainhash.Hash
	BackwardTransfers           []BackwardTransfer
	Fee                         uint64
	Proof                       []byte

	// set by the pool at admission, not part of the serialized certificate
	Ceasable    bool
	ArrivalTime time.Time
}

func NewCertificateFromBytes(b []byte) (*Certificate, error) {
	cert, err := NewCertificateFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	return cert, nil
}

func NewCertificateFromString(s string) (*Certificate, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.NewCertInvalidError("invalid certificate hex", err)
	}

	return NewCertificateFromBytes(b)
}

func NewCertificateFromReader(r io.Reader) (*Certificate, error) {
	cert := &Certificate{}

	if err := binary.Read(r, binary.LittleEndian, &cert.Version); err != nil {
		return nil, errors.NewCertInvalidError("failed to read version", err)
	}

	if _, err := io.ReadFull(r, cert.ScID[:]); err != nil {
		return nil, errors.NewCertInvalidError("failed to read scid", err)
	}

	if err := binary.Read(r, binary.LittleEndian, &cert.EpochNumber); err != nil {
		return nil, errors.NewCertInvalidError("failed to read epoch number", err)
	}

	if err := binary.Read(r, binary.LittleEndian, &cert.Quality); err != nil {
		return nil, errors.NewCertInvalidError("failed to read quality", err)
	}

	if _, err := io.ReadFull(r, cert.EndEpochCumScTxCommTreeRoot[:]); err != nil {
		return nil, errors.NewCertInvalidError("failed to read end epoch commitment tree root", err)
	}

	btCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.NewCertInvalidError("failed to read backward transfer count", err)
	}

	if btCount > maxBackwardTransfers {
		return nil, errors.NewCertInvalidError("too many backward transfers: %d", btCount)
	}

	cert.BackwardTransfers = make([]BackwardTransfer, btCount)
	for i := range cert.BackwardTransfers {
		if _, err = io.ReadFull(r, cert.BackwardTransfers[i].PubKeyHash[:]); err != nil {
			return nil, errors.NewCertInvalidError("failed to read backward transfer %d", i, err)
		}

		if err = binary.Read(r, binary.LittleEndian, &cert.BackwardTransfers[i].Amount); err != nil {
			return nil, errors.NewCertInvalidError("failed to read backward transfer %d amount", i, err)
		}
	}

	if err = binary.Read(r, binary.LittleEndian, &cert.Fee); err != nil {
		return nil, errors.NewCertInvalidError("failed to read fee", err)
	}

	if cert.Proof, err = wire.ReadVarBytes(r, 0, maxProofSize, "proof"); err != nil {
		return nil, errors.NewCertInvalidError("failed to read proof", err)
	}

	return cert, nil
}

func (c *Certificate) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4+2*chainhash.HashSize+12+len(c.BackwardTransfers)*28+8+len(c.Proof)+9))

	_ = binary.Write(buf, binary.LittleEndian, c.Version)
	buf.Write(c.ScID[:])
	_ = binary.Write(buf, binary.LittleEndian, c.EpochNumber)
	_ = binary.Write(buf, binary.LittleEndian, c.Quality)
	buf.Write(c.EndEpochCumScTxCommTreeRoot[:])

	_ = wire.WriteVarInt(buf, 0, uint64(len(c.BackwardTransfers)))
	for _, bwt := range c.BackwardTransfers {
		buf.Write(bwt.PubKeyHash[:])
		_ = binary.Write(buf, binary.LittleEndian, bwt.Amount)
	}

	_ = binary.Write(buf, binary.LittleEndian, c.Fee)
	_ = wire.WriteVarBytes(buf, 0, c.Proof)

	return buf.Bytes()
}

func (c *Certificate) String() string {
	return hex.EncodeToString(c.Bytes())
}

func (c *Certificate) Hash() chainhash.Hash {
	return chainhash.DoubleHashH(c.Bytes())
}

// TotalBackwardTransfers sums the amounts withdrawn from the sidechain.
func (c *Certificate) TotalBackwardTransfers() uint64 {
	var total uint64
	for _, bwt := range c.BackwardTransfers {
		total += bwt.Amount
	}

	return total
}

// Validate checks the fields the ordering rules depend on.
func (c *Certificate) Validate() error {
	if c.EpochNumber < 0 {
		return errors.NewCertInvalidError("negative epoch number %d", c.EpochNumber)
	}

	if c.Quality < 0 {
		return errors.NewCertInvalidError("negative quality %d", c.Quality)
	}

	return nil
}
