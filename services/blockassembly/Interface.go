// Package blockassembly serves block templates built from the pending pool.
//
// Templates are cached and only rebuilt when the chain tip moves or the cached
// template is older than the configured minimum refresh interval. Commitment
// roots are computed on request only and never change the cached template.
package blockassembly

import (
	"context"

	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/mempool"
)

// ClientI defines the block assembly operations other services depend on.
type ClientI interface {
	// Health checks the health status of the block assembly service.
	Health(ctx context.Context, checkLiveness bool) (int, string, error)

	// GetBlockTemplate returns the current block template. Roots is only set
	// when requestRoots is true.
	GetBlockTemplate(ctx context.Context, params *TemplateRequest, requestRoots bool) (*model.BlockTemplate, error)

	// GetBlockMerkleRoots computes the commitment roots of serialized block
	// content, the first transaction being the coinbase.
	GetBlockMerkleRoots(ctx context.Context, rawTxs [][]byte, rawCerts [][]byte) (*model.CommitmentRoots, error)

	// SubmitBlock hands a mined block to the chain state and removes its
	// content from the pool.
	SubmitBlock(ctx context.Context, block *model.Block) error
}

// Pool is the part of the pending pool the assembler reads and updates.
type Pool interface {
	Snapshot(ctx context.Context) (*mempool.View, error)
	Sequence() uint64
	RemoveMined(block *model.Block)
}

// TemplateRequest carries the optional getblocktemplate parameters. Only the
// template mode is supported; the remaining fields are accepted and ignored.
type TemplateRequest struct {
	Mode         string   `json:"mode,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	LongPollID   string   `json:"longpollid,omitempty"`
}

const (
	TemplateModeTemplate = "template"
)
