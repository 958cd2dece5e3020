package blockassembly

import (
	"context"
	"net/http"
	"time"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/blockchain"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/horizenofficial/sctemplate/util/health"
	"github.com/horizenofficial/sctemplate/util/kafka"
)

// BlockAssembly is the block assembly service. It owns the BlockAssembler
// and the optional template notification producer.
type BlockAssembly struct {
	logger           ulogger.Logger
	settings         *settings.Settings
	blockchainClient blockchain.ClientI
	pool             Pool
	options          []Option

	blockAssembler *BlockAssembler
	notifier       *KafkaNotifier
}

func New(logger ulogger.Logger, tSettings *settings.Settings, blockchainClient blockchain.ClientI, pool Pool, opts ...Option) *BlockAssembly {
	initPrometheusMetrics()

	return &BlockAssembly{
		logger:           logger,
		settings:         tSettings,
		blockchainClient: blockchainClient,
		pool:             pool,
		options:          opts,
	}
}

func (ba *BlockAssembly) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	prometheusBlockAssemblyHealth.Inc()

	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "BlockAssembler", Check: ba.checkAssembler},
		{Name: "BlockchainClient", Check: ba.blockchainClient.Health},
		{Name: "FSM", Check: blockchain.CheckFSM(ba.blockchainClient)},
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

func (ba *BlockAssembly) checkAssembler(_ context.Context, _ bool) (int, string, error) {
	if ba.blockAssembler == nil {
		return http.StatusServiceUnavailable, "block assembler not initialized", nil
	}

	return http.StatusOK, "OK", nil
}

func (ba *BlockAssembly) Init(_ context.Context) error {
	opts := ba.options

	if notifyURL := ba.settings.BlockAssembly.TemplateNotifyURL; notifyURL != nil && notifyURL.Scheme != "" {
		producer, err := kafka.NewKafkaProducer(ba.logger, notifyURL)
		if err != nil {
			return errors.NewServiceError("failed to create template notification producer", err)
		}

		ba.notifier = NewKafkaNotifier(producer)
		opts = append(opts, WithNotifier(ba.notifier))
	}

	blockAssembler, err := NewBlockAssembler(ba.logger, ba.settings, ba.blockchainClient, ba.pool, opts...)
	if err != nil {
		return err
	}

	ba.blockAssembler = blockAssembler

	return nil
}

// Start signals readiness and blocks until ctx is done.
func (ba *BlockAssembly) Start(ctx context.Context, readyCh chan<- struct{}) error {
	if ba.blockAssembler == nil {
		return errors.NewServiceNotStartedError("block assembly was not initialized")
	}

	close(readyCh)

	ba.logger.Infof("[BlockAssembly] serving templates, min refresh interval %s", ba.settings.BlockAssembly.MinRefreshInterval)

	<-ctx.Done()

	return nil
}

func (ba *BlockAssembly) Stop(_ context.Context) error {
	if ba.blockAssembler != nil {
		ba.blockAssembler.Stop()
	}

	if ba.notifier != nil {
		if err := ba.notifier.Close(); err != nil {
			return err
		}
	}

	return nil
}

func (ba *BlockAssembly) GetBlockTemplate(ctx context.Context, params *TemplateRequest, requestRoots bool) (*model.BlockTemplate, error) {
	if ba.blockAssembler == nil {
		return nil, errors.NewServiceNotStartedError("block assembly was not initialized")
	}

	return ba.blockAssembler.GetBlockTemplate(ctx, params, requestRoots)
}

func (ba *BlockAssembly) GetBlockMerkleRoots(ctx context.Context, rawTxs [][]byte, rawCerts [][]byte) (*model.CommitmentRoots, error) {
	if ba.blockAssembler == nil {
		return nil, errors.NewServiceNotStartedError("block assembly was not initialized")
	}

	return ba.blockAssembler.GetBlockMerkleRoots(ctx, rawTxs, rawCerts)
}

func (ba *BlockAssembly) SubmitBlock(ctx context.Context, block *model.Block) error {
	if ba.blockAssembler == nil {
		return errors.NewServiceNotStartedError("block assembly was not initialized")
	}

	start := time.Now()

	if err := ba.blockAssembler.SubmitBlock(ctx, block); err != nil {
		return err
	}

	prometheusBlockAssemblySubmitBlock.Observe(time.Since(start).Seconds())

	return nil
}
