package blockchain

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/dolthub/swiss"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/blockassembly/merkle"
	"github.com/horizenofficial/sctemplate/services/blockassembly/ordering"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/stores/sidechain"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/horizenofficial/sctemplate/util/health"
	"github.com/looplab/fsm"
	"go.uber.org/atomic"
)

type blockWithHeight struct {
	block  *model.Block
	height uint32
}

// Blockchain is the in-process chain state. It starts at the genesis block of
// the configured network and only ever extends its tip.
type Blockchain struct {
	logger     ulogger.Logger
	settings   *settings.Settings
	sidechains sidechain.Store

	mu       sync.RWMutex
	blocks   *swiss.Map[chainhash.Hash, blockWithHeight]
	bestHash chainhash.Hash
	bestTime time.Time

	bestHeight         atomic.Uint32
	finiteStateMachine *fsm.FSM
}

func New(logger ulogger.Logger, tSettings *settings.Settings, sidechains sidechain.Store) *Blockchain {
	initPrometheusMetrics()

	b := &Blockchain{
		logger:     logger,
		settings:   tSettings,
		sidechains: sidechains,
		blocks:     swiss.NewMap[chainhash.Hash, blockWithHeight](128),
	}

	params := tSettings.ChainCfgParams
	if params.GenesisHash != nil {
		b.bestHash = *params.GenesisHash
	}

	if params.GenesisBlock != nil {
		b.bestTime = params.GenesisBlock.Header.Timestamp
	}

	b.finiteStateMachine = b.NewFiniteStateMachine()

	return b
}

func (b *Blockchain) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "FSM", Check: CheckFSM(b)},
		{Name: "SidechainStore", Check: b.sidechains.Health},
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

func (b *Blockchain) GetBestBlock(_ context.Context) (*model.ChainTip, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return &model.ChainTip{
		Hash:   b.bestHash,
		Height: b.bestHeight.Load(),
		Time:   b.bestTime,
	}, nil
}

func (b *Blockchain) GetBlock(_ context.Context, blockHash *chainhash.Hash) (*model.Block, uint32, error) {
	if blockHash == nil {
		return nil, 0, errors.NewInvalidArgumentError("block hash is nil")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	stored, ok := b.blocks.Get(*blockHash)
	if !ok {
		return nil, 0, errors.NewBlockNotFoundError("block %s not found", blockHash)
	}

	return stored.block, stored.height, nil
}

func (b *Blockchain) AddBlock(ctx context.Context, block *model.Block) error {
	start := time.Now()

	if err := b.addBlock(ctx, block); err != nil {
		prometheusBlockchainRejectedBlocks.WithLabelValues(errors.CodeOf(err).String()).Inc()
		return err
	}

	prometheusBlockchainAddBlock.Observe(time.Since(start).Seconds())

	return nil
}

func (b *Blockchain) addBlock(ctx context.Context, block *model.Block) error {
	state := FSMStateType(b.finiteStateMachine.Current())
	if state == FSMStateIDLE {
		return errors.NewServiceNotStartedError("chain state is %s", state)
	}

	if block == nil || block.Header == nil || block.CoinbaseTx == nil {
		return errors.NewBlockInvalidError("block is missing its header or coinbase")
	}

	// the registry lookups happen outside the chain lock
	certs, err := b.withCeasingFlags(ctx, block.Certificates)
	if err != nil {
		return err
	}

	if err = validateContent(block, certs); err != nil {
		return err
	}

	blockHash := block.Hash()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.blocks.Has(blockHash) {
		return errors.NewBlockExistsError("block %s already accepted", blockHash)
	}

	if !block.Header.PreviousHash.IsEqual(&b.bestHash) {
		return errors.NewBlockInvalidError("block %s builds on %s, the tip is %s", blockHash, block.Header.PreviousHash, b.bestHash)
	}

	height := b.bestHeight.Load() + 1

	coinbaseHeight, err := model.ExtractCoinbaseHeight(block.CoinbaseTx)
	if err != nil {
		return errors.NewBlockInvalidError("block %s has an invalid coinbase", blockHash, err)
	}

	if coinbaseHeight != height {
		return errors.NewBlockInvalidError("block %s coinbase commits to height %d, expected %d", blockHash, coinbaseHeight, height)
	}

	b.blocks.Put(blockHash, blockWithHeight{block: block, height: height})
	b.bestHash = blockHash
	b.bestTime = block.Time()
	b.bestHeight.Store(height)

	prometheusBlockchainHeight.Set(float64(height))

	b.logger.Infof("[Blockchain] accepted block %s at height %d with %d transactions and %d certificates", blockHash, height, len(block.Transactions), len(block.Certificates))

	return nil
}

// withCeasingFlags returns certs with the ceasing flag taken from the sidechain
// registry. Certificates whose flag differs are copied, the block's own
// certificates are never written to.
func (b *Blockchain) withCeasingFlags(ctx context.Context, certs []*model.Certificate) ([]*model.Certificate, error) {
	flagged := make([]*model.Certificate, len(certs))

	for i, cert := range certs {
		if cert == nil {
			return nil, errors.NewBlockInvalidError("certificate %d is nil", i)
		}

		sc, err := b.sidechains.Get(ctx, cert.ScID)
		if err != nil {
			if errors.Is(err, errors.ErrSidechainNotFound) {
				return nil, errors.NewBlockInvalidError("certificate %d is for unknown sidechain %s", i, cert.ScID, err)
			}

			return nil, errors.NewServiceError("failed to look up sidechain %s", cert.ScID, err)
		}

		flagged[i] = cert

		if cert.Ceasable != sc.Ceasable() {
			c := *cert
			c.Ceasable = sc.Ceasable()
			flagged[i] = &c
		}
	}

	return flagged, nil
}

// validateContent checks what the block commits to: no duplicate transactions,
// certificates in block order, and both header roots. certs are the block's
// certificates carrying their registry ceasing flags.
func validateContent(block *model.Block, certs []*model.Certificate) error {
	seen := make(map[chainhash.Hash]struct{}, len(block.Transactions)+1)
	seen[*block.CoinbaseTx.TxIDChainHash()] = struct{}{}

	for i, tx := range block.Transactions {
		if tx.IsCoinbase() {
			return errors.NewBlockInvalidError("transaction %d is a second coinbase", i)
		}

		hash := *tx.TxIDChainHash()
		if _, ok := seen[hash]; ok {
			return errors.NewBlockInvalidError("transaction %s appears more than once", hash)
		}

		seen[hash] = struct{}{}
	}

	if err := ordering.Check(certs); err != nil {
		return errors.NewBlockInvalidError("block certificates are not in block order", err)
	}

	roots, err := merkle.ComputeRoots(block.CoinbaseTx, block.Transactions, block.Certificates)
	if err != nil {
		return errors.NewBlockInvalidError("failed to compute block roots", err)
	}

	if !roots.MerkleTree.IsEqual(&block.Header.MerkleRoot) {
		return errors.NewBlockInvalidError("merkle root mismatch: header %s, computed %s", block.Header.MerkleRoot, roots.MerkleTree)
	}

	if !roots.ScTxsCommitment.IsEqual(&block.Header.ScTxsCommitment) {
		return errors.NewBlockInvalidError("sidechain commitment mismatch: header %s, computed %s", block.Header.ScTxsCommitment, roots.ScTxsCommitment)
	}

	return nil
}

func (b *Blockchain) GetFSMCurrentState(_ context.Context) (FSMStateType, error) {
	return FSMStateType(b.finiteStateMachine.Current()), nil
}

// SendFSMEvent applies event. Sending the event that leads to the current state
// is a no-op.
func (b *Blockchain) SendFSMEvent(ctx context.Context, event FSMEventType) error {
	if dst, ok := fsmEventDestinations[event]; ok && dst.String() == b.finiteStateMachine.Current() {
		return nil
	}

	if err := b.finiteStateMachine.Event(ctx, event.String()); err != nil {
		return errors.NewProcessingError("cannot send event %s in state %s", event, b.finiteStateMachine.Current(), err)
	}

	return nil
}

// Run moves the chain state into RUNNING.
func (b *Blockchain) Run(ctx context.Context) error {
	return b.SendFSMEvent(ctx, FSMEventRUN)
}

func (b *Blockchain) Init(_ context.Context) error {
	return nil
}

// Start runs the chain state until ctx is done.
func (b *Blockchain) Start(ctx context.Context, readyCh chan<- struct{}) error {
	if err := b.Run(ctx); err != nil {
		return err
	}

	close(readyCh)

	tip, _ := b.GetBestBlock(ctx)
	b.logger.Infof("[Blockchain] running on %s, tip %s at height %d", b.settings.Network, tip.Hash, tip.Height)

	<-ctx.Done()

	return nil
}

func (b *Blockchain) Stop(ctx context.Context) error {
	return b.SendFSMEvent(ctx, FSMEventIDLE)
}
