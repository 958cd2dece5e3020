package blockassembly

import (
	"context"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/blockassembly/merkle"
	"github.com/horizenofficial/sctemplate/services/blockchain"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/horizenofficial/sctemplate/util/tracing"
	"github.com/jellydator/ttlcache/v3"
	"github.com/kpango/fastime"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

// TemplateNotifier is told about every template the assembler builds.
type TemplateNotifier interface {
	NotifyTemplate(ctx context.Context, template *model.BlockTemplate) error
}

type Option func(*BlockAssembler)

// WithClock replaces the wall clock used for staleness checks and build times.
func WithClock(clock func() time.Time) Option {
	return func(b *BlockAssembler) {
		b.clock = clock
	}
}

func WithNotifier(notifier TemplateNotifier) Option {
	return func(b *BlockAssembler) {
		b.notifier = notifier
	}
}

type cacheEntry struct {
	template *model.BlockTemplate
	tip      chainhash.Hash
	sequence uint64
	builtAt  time.Time
}

// templateCache holds the single cached template. Entries are replaced, never
// modified. generation moves on every invalidation so that a rebuild started
// before it cannot install its result afterwards.
type templateCache struct {
	mu         sync.RWMutex
	entry      *cacheEntry
	generation uint64
}

func (c *templateCache) load() (*cacheEntry, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.entry, c.generation
}

// replace installs next when the cache still holds prev in generation.
func (c *templateCache) replace(prev *cacheEntry, generation uint64, next *cacheEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != generation || c.entry != prev {
		return false
	}

	c.entry = next

	return true
}

func (c *templateCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = nil
	c.generation++
}

// BlockAssembler serves block templates built from the pending pool on top of
// the current chain tip.
type BlockAssembler struct {
	logger           ulogger.Logger
	settings         *settings.Settings
	blockchainClient blockchain.ClientI
	pool             Pool
	builder          *Builder
	notifier         TemplateNotifier
	clock            func() time.Time

	cache        templateCache
	rebuildGroup singleflight.Group
	roots        *ttlcache.Cache[string, *model.CommitmentRoots]
	computeRoots func(*model.BlockTemplate) (*model.CommitmentRoots, error)
	stopped      atomic.Bool
}

func NewBlockAssembler(logger ulogger.Logger, tSettings *settings.Settings, blockchainClient blockchain.ClientI, pool Pool, opts ...Option) (*BlockAssembler, error) {
	initPrometheusMetrics()

	b := &BlockAssembler{
		logger:           logger,
		settings:         tSettings,
		blockchainClient: blockchainClient,
		pool:             pool,
		clock:            fastime.Now,
		computeRoots:     merkle.ComputeTemplateRoots,
	}

	for _, opt := range opts {
		opt(b)
	}

	builder, err := NewBuilder(logger, tSettings, b.clock)
	if err != nil {
		return nil, err
	}

	b.builder = builder

	b.roots = ttlcache.New[string, *model.CommitmentRoots](
		ttlcache.WithTTL[string, *model.CommitmentRoots](tSettings.BlockAssembly.RootsCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *model.CommitmentRoots](),
	)

	go b.roots.Start()

	return b, nil
}

// Stop halts the roots cache cleanup. It is safe to call Stop more than once.
func (b *BlockAssembler) Stop() {
	if b.stopped.CompareAndSwap(false, true) {
		b.roots.Stop()
	}
}

// GetBlockTemplate returns the cached template, rebuilding it when there is no
// entry, the tip moved, or the entry is older than the minimum refresh interval.
func (b *BlockAssembler) GetBlockTemplate(ctx context.Context, params *TemplateRequest, requestRoots bool) (template *model.BlockTemplate, err error) {
	ctx, span := tracing.Start(ctx, "BlockAssembler:GetBlockTemplate",
		tracing.WithHistogram(prometheusBlockAssemblerGetTemplate),
		tracing.WithAttributes(attribute.Bool("requestRoots", requestRoots)),
	)
	defer func() {
		span.End(err)
	}()

	if err = validateTemplateRequest(params); err != nil {
		return nil, err
	}

	if err = b.checkChainState(ctx); err != nil {
		return nil, err
	}

	tip, err := b.blockchainClient.GetBestBlock(ctx)
	if err != nil {
		return nil, errors.NewServiceError("failed to get best block", err)
	}

	template, err = b.currentTemplate(ctx, tip)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("templateID", template.ID), attribute.Int64("height", int64(template.Height)))

	if !requestRoots {
		return template, nil
	}

	roots, err := b.templateRoots(ctx, template)
	if err != nil {
		return nil, err
	}

	return template.WithRoots(roots), nil
}

func validateTemplateRequest(params *TemplateRequest) error {
	if params == nil || params.Mode == "" || params.Mode == TemplateModeTemplate {
		return nil
	}

	return errors.NewInvalidArgumentError("unsupported getblocktemplate mode %q", params.Mode)
}

func (b *BlockAssembler) checkChainState(ctx context.Context) error {
	state, err := b.blockchainClient.GetFSMCurrentState(ctx)
	if err != nil {
		return errors.NewServiceError("failed to get chain state", err)
	}

	switch state {
	case blockchain.FSMStateIDLE:
		return errors.NewServiceNotStartedError("chain state is %s", state)
	case blockchain.FSMStateCATCHINGBLOCKS:
		return errors.NewServiceUnavailableError("node is catching up blocks")
	}

	return nil
}

func (b *BlockAssembler) currentTemplate(ctx context.Context, tip *model.ChainTip) (*model.BlockTemplate, error) {
	entry, _ := b.cache.load()

	if entry != nil && entry.tip.IsEqual(&tip.Hash) {
		if b.clock().Sub(entry.builtAt) <= b.settings.BlockAssembly.MinRefreshInterval {
			prometheusBlockAssemblerCacheHit.Inc()
			return entry.template, nil
		}

		// expired, but a rebuild would produce the same content. builtAt stays
		// put so the first pool change after the interval rebuilds at once.
		if b.pool.Sequence() == entry.sequence {
			prometheusBlockAssemblerCacheUnchanged.Inc()
			return entry.template, nil
		}
	}

	v, err, shared := b.rebuildGroup.Do(tip.Hash.String(), func() (interface{}, error) {
		return b.rebuild(context.WithoutCancel(ctx), tip)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		b.logger.Debugf("[BlockAssembler] shared template rebuild on %s", tip.Hash)
	}

	return v.(*model.BlockTemplate), nil
}

func (b *BlockAssembler) rebuild(ctx context.Context, tip *model.ChainTip) (template *model.BlockTemplate, err error) {
	entry, generation := b.cache.load()

	// a rebuild that finished just before this one started already did the work
	if entry != nil && entry.tip.IsEqual(&tip.Hash) && b.clock().Sub(entry.builtAt) <= b.settings.BlockAssembly.MinRefreshInterval {
		return entry.template, nil
	}

	ctx, span := tracing.Start(ctx, "BlockAssembler:rebuild",
		tracing.WithHistogram(prometheusBlockAssemblerRebuild),
		tracing.WithDebugLogMessage(b.logger, "[BlockAssembler] rebuilding template on %s", tip.Hash),
	)
	defer func() {
		span.End(err)
	}()

	view, err := b.pool.Snapshot(ctx)
	if err != nil {
		prometheusBlockAssemblerRebuildFailed.Inc()

		if entry != nil && entry.tip.IsEqual(&tip.Hash) {
			prometheusBlockAssemblerStaleServed.Inc()
			b.logger.Warnf("[BlockAssembler] pool snapshot failed, serving template %s: %v", entry.template.ID, err)

			return entry.template, nil
		}

		b.logger.Warnf("[BlockAssembler] pool snapshot failed and no template exists for %s: %v", tip.Hash, err)

		return nil, errors.NewServiceUnavailableError("no block template available for %s", tip.Hash, err)
	}

	template, err = b.builder.Build(ctx, view, tip)
	if err != nil {
		prometheusBlockAssemblerRebuildFailed.Inc()
		b.logger.Errorf("[BlockAssembler] failed to build template on %s: %v", tip.Hash, err)

		return nil, err
	}

	next := &cacheEntry{
		template: template,
		tip:      tip.Hash,
		sequence: view.Sequence,
		builtAt:  b.clock(),
	}

	if !b.cache.replace(entry, generation, next) {
		b.logger.Debugf("[BlockAssembler] template %s built on %s was not cached", template.ID, tip.Hash)
	}

	span.SetAttributes(
		attribute.String("templateID", template.ID),
		attribute.Int("transactions", len(template.Transactions)),
		attribute.Int("certificates", len(template.Certificates)),
	)

	prometheusBlockAssemblerTransactions.Set(float64(len(template.Transactions)))
	prometheusBlockAssemblerCertificates.Set(float64(len(template.Certificates)))
	prometheusBlockAssemblyCurrentBlockHeight.Set(float64(template.Height))

	b.logger.Infof("[BlockAssembler] built template %s for height %d with %d transactions and %d certificates",
		template.ID, template.Height, len(template.Transactions), len(template.Certificates))

	if b.notifier != nil {
		if notifyErr := b.notifier.NotifyTemplate(ctx, template); notifyErr != nil {
			b.logger.Warnf("[BlockAssembler] failed to publish template %s: %v", template.ID, notifyErr)
		}
	}

	return template, nil
}

// templateRoots returns the roots of template, computing them at most once per
// template while they stay in the roots cache.
func (b *BlockAssembler) templateRoots(ctx context.Context, template *model.BlockTemplate) (roots *model.CommitmentRoots, err error) {
	if item := b.roots.Get(template.ID); item != nil {
		return item.Value(), nil
	}

	_, span := tracing.Start(ctx, "BlockAssembler:computeRoots",
		tracing.WithHistogram(prometheusBlockAssemblerComputeRoots),
		tracing.WithAttributes(attribute.String("templateID", template.ID)),
	)
	defer func() {
		span.End(err)
	}()

	roots, err = b.computeRoots(template)
	if err != nil {
		b.logger.Errorf("[BlockAssembler] failed to compute roots for template %s: %v", template.ID, err)
		return nil, errors.NewRootsError("failed to compute roots for template %s", template.ID, err)
	}

	b.roots.Set(template.ID, roots, ttlcache.DefaultTTL)

	return roots, nil
}

// GetBlockMerkleRoots computes the roots of serialized block content without
// touching the template cache.
func (b *BlockAssembler) GetBlockMerkleRoots(ctx context.Context, rawTxs [][]byte, rawCerts [][]byte) (roots *model.CommitmentRoots, err error) {
	_, span := tracing.Start(ctx, "BlockAssembler:GetBlockMerkleRoots",
		tracing.WithHistogram(prometheusBlockAssemblerComputeRoots),
		tracing.WithAttributes(attribute.Int("transactions", len(rawTxs)), attribute.Int("certificates", len(rawCerts))),
	)
	defer func() {
		span.End(err)
	}()

	return merkle.ComputeRootsFromBytes(rawTxs, rawCerts)
}

// SubmitBlock hands block to the chain, drops its content from the pool and
// forgets the cached template.
func (b *BlockAssembler) SubmitBlock(ctx context.Context, block *model.Block) error {
	if block == nil {
		return errors.NewInvalidArgumentError("block is nil")
	}

	if err := b.blockchainClient.AddBlock(ctx, block); err != nil {
		return err
	}

	b.pool.RemoveMined(block)
	b.cache.invalidate()

	b.logger.Infof("[BlockAssembler] block %s submitted", block.Hash())

	return nil
}
