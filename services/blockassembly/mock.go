package blockassembly

import (
	"context"

	"github.com/horizenofficial/sctemplate/model"
	"github.com/stretchr/testify/mock"
)

// Mock implements the ClientI interface for testing.
type Mock struct {
	mock.Mock
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	args := m.Called(ctx, checkLiveness)

	return args.Int(0), args.String(1), args.Error(2)
}

func (m *Mock) GetBlockTemplate(ctx context.Context, params *TemplateRequest, requestRoots bool) (*model.BlockTemplate, error) {
	args := m.Called(ctx, params, requestRoots)

	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*model.BlockTemplate), nil
}

func (m *Mock) GetBlockMerkleRoots(ctx context.Context, rawTxs [][]byte, rawCerts [][]byte) (*model.CommitmentRoots, error) {
	args := m.Called(ctx, rawTxs, rawCerts)

	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*model.CommitmentRoots), nil
}

func (m *Mock) SubmitBlock(ctx context.Context, block *model.Block) error {
	args := m.Called(ctx, block)

	return args.Error(0)
}
