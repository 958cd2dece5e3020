package blockassembly

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/google/uuid"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/blockassembly/ordering"
	"github.com/horizenofficial/sctemplate/services/mempool"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/ulogger"
)

// Builder turns a pool view into a block template on top of a chain tip.
type Builder struct {
	logger          ulogger.Logger
	settings        *settings.Settings
	minerPubKeyHash []byte
	clock           func() time.Time
}

func NewBuilder(logger ulogger.Logger, tSettings *settings.Settings, clock func() time.Time) (*Builder, error) {
	pubKeyHash, err := model.DecodePubKeyHash(tSettings.BlockAssembly.MinerPubKeyHash)
	if err != nil {
		return nil, err
	}

	return &Builder{
		logger:          logger,
		settings:        tSettings,
		minerPubKeyHash: pubKeyHash,
		clock:           clock,
	}, nil
}

// Build includes every admissible transaction and certificate of view. The
// certificate order is fixed here and never changes afterwards.
func (b *Builder) Build(_ context.Context, view *mempool.View, tip *model.ChainTip) (*model.BlockTemplate, error) {
	if view == nil || tip == nil {
		return nil, errors.NewProcessingError("cannot build a template without a pool view and a chain tip")
	}

	if view.Empty() {
		b.logger.Debugf("[Builder] pool is empty, template for height %d holds the coinbase only", tip.Height+1)
	}

	txs := slices.Clone(view.Transactions)
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].ArrivalTime.Equal(txs[j].ArrivalTime) {
			return txs[i].ArrivalTime.Before(txs[j].ArrivalTime)
		}

		return bytes.Compare(txs[i].Hash[:], txs[j].Hash[:]) < 0
	})

	certs, err := ordering.Order(view.Certificates)
	if err != nil {
		return nil, err
	}

	if err = checkComplete(view, txs, certs); err != nil {
		return nil, err
	}

	var fees uint64

	for _, tx := range txs {
		fees += tx.Fee
	}

	for _, cert := range certs {
		fees += cert.Fee
	}

	height := tip.Height + 1
	coinbaseValue := model.CalcBlockSubsidy(height, b.settings.ChainCfgParams) + fees

	coinbase, err := model.CreateCoinbaseTx(height, coinbaseValue, b.settings.BlockAssembly.CoinbaseArbitraryText, b.minerPubKeyHash)
	if err != nil {
		return nil, errors.NewProcessingError("failed to create coinbase for height %d", height, err)
	}

	// a block may not be older than its parent
	buildTime := b.clock().Truncate(time.Second)
	if !buildTime.After(tip.Time) {
		buildTime = tip.Time.Add(time.Second)
	}

	template := &model.BlockTemplate{
		ID:            uuid.NewString(),
		Version:       b.settings.BlockAssembly.BlockVersion,
		PreviousHash:  tip.Hash,
		Height:        height,
		Bits:          b.settings.BlockAssembly.Bits,
		BuildTime:     buildTime,
		Coinbase:      coinbase,
		CoinbaseValue: coinbaseValue,
		Transactions:  txs,
		Certificates:  certs,
		Fingerprint:   model.ContentFingerprint(tip.Hash, txs, certs),
	}

	b.logger.Debugf("[Builder] template %s for height %d: %d transactions, %d certificates, coinbase value %d",
		template.ID, height, len(txs), len(certs), coinbaseValue)

	return template, nil
}

// checkComplete verifies the template holds exactly the admissible sets of the view.
func checkComplete(view *mempool.View, txs []*model.Transaction, certs []*model.Certificate) error {
	if len(txs) != len(view.Transactions) || len(certs) != len(view.Certificates) {
		return errors.NewProcessingError("template holds %d/%d transactions/certificates, the pool view %d/%d",
			len(txs), len(certs), len(view.Transactions), len(view.Certificates))
	}

	seen := make(map[chainhash.Hash]struct{}, len(txs)+len(certs))

	for _, tx := range txs {
		if _, ok := seen[tx.Hash]; ok {
			return errors.NewProcessingError("transaction %s is included twice", tx.Hash)
		}

		seen[tx.Hash] = struct{}{}
	}

	for _, cert := range certs {
		hash := cert.Hash()
		if _, ok := seen[hash]; ok {
			return errors.NewProcessingError("certificate %s is included twice", hash)
		}

		seen[hash] = struct{}{}
	}

	return nil
}
