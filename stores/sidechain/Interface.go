package sidechain

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/horizenofficial/sctemplate/model"
)

// Store is the registry of sidechains the node accepts certificates and forward
// transfers for.
type Store interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	Add(ctx context.Context, sc *model.Sidechain) error
	Get(ctx context.Context, scID chainhash.Hash) (*model.Sidechain, error)
	Exists(ctx context.Context, scID chainhash.Hash) (bool, error)
	List(ctx context.Context) ([]*model.Sidechain, error)
	Close() error
}
