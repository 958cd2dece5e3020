package model

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// Sidechain is the registry entry for a sidechain known to the node.
type Sidechain struct {
	ID                    chainhash.Hash
	Version               int32
	WithdrawalEpochLength uint32
	CreationHeight        uint32
}

// Ceasable reports whether the sidechain runs fixed withdrawal epochs. Ceasing
// sidechains accept competing certificates per epoch; non-ceasing ones accept a
// single certificate per block.
func (s *Sidechain) Ceasable() bool {
	return s.WithdrawalEpochLength > 0
}
