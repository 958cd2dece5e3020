// Package blockchain keeps the node's view of the best chain and accepts mined
// blocks built from block templates.
package blockchain

import (
	"context"
	"net/http"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/horizenofficial/sctemplate/model"
)

// ClientI defines the chain state operations other services depend on.
type ClientI interface {
	// Health checks the chain state. With checkLiveness only internal state is
	// checked, otherwise its dependencies are checked too.
	Health(ctx context.Context, checkLiveness bool) (int, string, error)

	// GetBestBlock returns the tip a block template builds on.
	GetBestBlock(ctx context.Context) (*model.ChainTip, error)

	// GetBlock returns a block and its height.
	GetBlock(ctx context.Context, blockHash *chainhash.Hash) (*model.Block, uint32, error)

	// AddBlock validates a mined block and makes it the new tip. A block whose
	// certificates are out of order or whose commitment roots do not match its
	// content is rejected with ERR_BLOCK_INVALID.
	AddBlock(ctx context.Context, block *model.Block) error

	GetFSMCurrentState(ctx context.Context) (FSMStateType, error)
	SendFSMEvent(ctx context.Context, event FSMEventType) error
}

// CheckFSM returns a health check that fails while the chain state is IDLE.
func CheckFSM(client ClientI) func(ctx context.Context, checkLiveness bool) (int, string, error) {
	return func(ctx context.Context, _ bool) (int, string, error) {
		state, err := client.GetFSMCurrentState(ctx)
		if err != nil {
			return http.StatusServiceUnavailable, "failed to get chain state", err
		}

		if state == FSMStateIDLE {
			return http.StatusServiceUnavailable, "chain state is idle", nil
		}

		return http.StatusOK, state.String(), nil
	}
}
