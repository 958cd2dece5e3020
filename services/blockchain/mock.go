package blockchain

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/stretchr/testify/mock"
)

// Mock implements the blockchain.ClientI interface for testing purposes
type Mock struct {
	mock.Mock
}

func (m *Mock) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	args := m.Called(ctx, checkLiveness)

	return args.Int(0), args.String(1), args.Error(2)
}

func (m *Mock) GetBestBlock(ctx context.Context) (*model.ChainTip, error) {
	args := m.Called(ctx)

	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*model.ChainTip), nil
}

func (m *Mock) GetBlock(ctx context.Context, blockHash *chainhash.Hash) (*model.Block, uint32, error) {
	args := m.Called(ctx, blockHash)

	if args.Error(2) != nil {
		return nil, 0, args.Error(2)
	}

	return args.Get(0).(*model.Block), args.Get(1).(uint32), nil
}

func (m *Mock) AddBlock(ctx context.Context, block *model.Block) error {
	args := m.Called(ctx, block)

	return args.Error(0)
}

func (m *Mock) GetFSMCurrentState(ctx context.Context) (FSMStateType, error) {
	args := m.Called(ctx)

	return args.Get(0).(FSMStateType), args.Error(1)
}

func (m *Mock) SendFSMEvent(ctx context.Context, event FSMEventType) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}
