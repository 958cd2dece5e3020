// Package mempool holds the pending transactions and sidechain certificates a
// block template is built from.
package mempool

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/dolthub/swiss"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/stores/sidechain"
	"github.com/horizenofficial/sctemplate/ulogger"
	"go.uber.org/atomic"
)

// certSlot identifies what a pending certificate competes for. Ceasing
// sidechains compete per (scid, epoch, quality); non-ceasing ones per (scid, epoch).
type certSlot struct {
	scID    chainhash.Hash
	epoch   int32
	quality int64
}

func slotOf(cert *model.Certificate) certSlot {
	slot := certSlot{scID: cert.ScID, epoch: cert.EpochNumber}
	if cert.Ceasable {
		slot.quality = cert.Quality
	}

	return slot
}

type minedCert struct {
	epoch   int32
	quality int64
}

type Mempool struct {
	logger     ulogger.Logger
	settings   *settings.Settings
	sidechains sidechain.Store

	mu          sync.RWMutex
	txs         *swiss.Map[chainhash.Hash, *model.Transaction]
	certs       *swiss.Map[chainhash.Hash, *model.Certificate]
	certSlots   *swiss.Map[certSlot, chainhash.Hash]
	lastMined   *swiss.Map[chainhash.Hash, minedCert]
	sizeInBytes uint64

	sequence    atomic.Uint64
	lastUpdated atomic.Time

	now func() time.Time
}

// Info is a summary of the pool content.
type Info struct {
	Transactions int
	Certificates int
	SizeInBytes  uint64
	Sequence     uint64
	LastUpdated  time.Time
}

func New(logger ulogger.Logger, tSettings *settings.Settings, sidechains sidechain.Store) *Mempool {
	initPrometheusMetrics()

	return &Mempool{
		logger:     logger,
		settings:   tSettings,
		sidechains: sidechains,
		txs:        swiss.NewMap[chainhash.Hash, *model.Transaction](1024),
		certs:      swiss.NewMap[chainhash.Hash, *model.Certificate](64),
		certSlots:  swiss.NewMap[certSlot, chainhash.Hash](64),
		lastMined:  swiss.NewMap[chainhash.Hash, minedCert](64),
		now:        time.Now,
	}
}

// Sequence increases on every change of the pool content.
func (m *Mempool) Sequence() uint64 {
	return m.sequence.Load()
}

func (m *Mempool) LastUpdated() time.Time {
	return m.lastUpdated.Load()
}

func (m *Mempool) touch() {
	m.sequence.Inc()
	m.lastUpdated.Store(m.now())

	prometheusMempoolTransactions.Set(float64(m.txs.Count()))
	prometheusMempoolCertificates.Set(float64(m.certs.Count()))
}

// AddTransaction admits a transaction. Forward transfers must target known sidechains.
func (m *Mempool) AddTransaction(ctx context.Context, tx *model.Transaction) error {
	if err := m.addTransaction(ctx, tx); err != nil {
		prometheusMempoolRejected.WithLabelValues("tx", errors.CodeOf(err).String()).Inc()
		return err
	}

	m.logger.Debugf("[Mempool] accepted tx %s, fee %d", tx.Hash, tx.Fee)

	return nil
}

func (m *Mempool) addTransaction(ctx context.Context, tx *model.Transaction) error {
	if tx == nil || tx.Tx == nil {
		return errors.NewTxInvalidError("transaction is nil")
	}

	if tx.ArrivalTime.IsZero() {
		tx.ArrivalTime = m.now()
	}

	for _, ft := range tx.ForwardTransfers() {
		exists, err := m.sidechains.Exists(ctx, ft.ScID)
		if err != nil {
			return errors.NewServiceError("failed to look up sidechain %s", ft.ScID, err)
		}

		if !exists {
			return errors.NewTxInvalidError("forward transfer to unknown sidechain %s", ft.ScID, errors.ErrSidechainNotFound)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.txs.Has(tx.Hash) {
		return errors.NewTxAlreadyExistsError("transaction %s already in pool", tx.Hash)
	}

	if m.settings.Mempool.MaxTransactions > 0 && m.txs.Count() >= m.settings.Mempool.MaxTransactions {
		return errors.NewThresholdExceededError("pool holds %d transactions", m.txs.Count())
	}

	m.txs.Put(tx.Hash, tx)
	m.sizeInBytes += uint64(len(tx.Tx.Bytes()))
	m.touch()

	return nil
}

// AddCertificate admits a certificate. The ceasing flag is taken from the sidechain registry.
func (m *Mempool) AddCertificate(ctx context.Context, cert *model.Certificate) error {
	if err := m.addCertificate(ctx, cert); err != nil {
		prometheusMempoolRejected.WithLabelValues("cert", errors.CodeOf(err).String()).Inc()
		return err
	}

	m.logger.Debugf("[Mempool] accepted certificate %s for sidechain %s, epoch %d, quality %d", cert.Hash(), cert.ScID, cert.EpochNumber, cert.Quality)

	return nil
}

func (m *Mempool) addCertificate(ctx context.Context, cert *model.Certificate) error {
	if cert == nil {
		return errors.NewCertInvalidError("certificate is nil")
	}

	if err := cert.Validate(); err != nil {
		return err
	}

	sc, err := m.sidechains.Get(ctx, cert.ScID)
	if err != nil {
		if errors.Is(err, errors.ErrSidechainNotFound) {
			return errors.NewCertInvalidError("certificate for unknown sidechain %s", cert.ScID, err)
		}

		return errors.NewServiceError("failed to look up sidechain %s", cert.ScID, err)
	}

	pooled := *cert
	cert = &pooled

	cert.Ceasable = sc.Ceasable()
	if cert.ArrivalTime.IsZero() {
		cert.ArrivalTime = m.now()
	}

	hash := cert.Hash()
	slot := slotOf(cert)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.certs.Has(hash) {
		return errors.NewCertAlreadyExistsError("certificate %s already in pool", hash)
	}

	if mined, ok := m.lastMined.Get(cert.ScID); ok {
		if cert.EpochNumber < mined.epoch || (cert.EpochNumber == mined.epoch && (!cert.Ceasable || cert.Quality <= mined.quality)) {
			return errors.NewCertInvalidError("sidechain %s already has a mined certificate for epoch %d with quality %d", cert.ScID, mined.epoch, mined.quality)
		}
	}

	if existing, ok := m.certSlots.Get(slot); ok {
		if cert.Ceasable {
			return errors.NewCertAlreadyExistsError("certificate %s has the same epoch %d and quality %d as pending %s", hash, cert.EpochNumber, cert.Quality, existing)
		}

		return errors.NewCertAlreadyExistsError("non-ceasing sidechain %s already has pending certificate %s for epoch %d", cert.ScID, existing, cert.EpochNumber)
	}

	if m.settings.Mempool.MaxCertificates > 0 && m.certs.Count() >= m.settings.Mempool.MaxCertificates {
		return errors.NewThresholdExceededError("pool holds %d certificates", m.certs.Count())
	}

	m.certs.Put(hash, cert)
	m.certSlots.Put(slot, hash)
	m.sizeInBytes += uint64(len(cert.Bytes()))
	m.touch()

	return nil
}

func (m *Mempool) GetTransaction(hash chainhash.Hash) (*model.Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.txs.Get(hash)
}

func (m *Mempool) GetCertificate(hash chainhash.Hash) (*model.Certificate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.certs.Get(hash)
}

func (m *Mempool) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Info{
		Transactions: m.txs.Count(),
		Certificates: m.certs.Count(),
		SizeInBytes:  m.sizeInBytes,
		Sequence:     m.Sequence(),
		LastUpdated:  m.LastUpdated(),
	}
}

// Snapshot returns an immutable view of everything admissible in the next block.
func (m *Mempool) Snapshot(ctx context.Context) (*View, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewContextCanceledError("pool snapshot canceled", err)
	}

	start := time.Now()
	defer func() {
		prometheusMempoolSnapshot.Observe(time.Since(start).Seconds())
	}()

	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := make([]*model.Transaction, 0, m.txs.Count())
	m.txs.Iter(func(_ chainhash.Hash, tx *model.Transaction) bool {
		txs = append(txs, tx)
		return false
	})

	certs := make([]*model.Certificate, 0, m.certs.Count())
	m.certs.Iter(func(_ chainhash.Hash, cert *model.Certificate) bool {
		certs = append(certs, cert)
		return false
	})

	return newView(m.Sequence(), txs, certs), nil
}

// RemoveMined drops the block content from the pool and evicts certificates the
// mined ones supersede.
func (m *Mempool) RemoveMined(block *model.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tx := range block.Transactions {
		hash := *tx.TxIDChainHash()
		if pooled, ok := m.txs.Get(hash); ok {
			m.sizeInBytes -= uint64(len(pooled.Tx.Bytes()))
			m.txs.Delete(hash)
		}
	}

	for _, cert := range block.Certificates {
		m.removeCertificate(cert.Hash())

		mined, ok := m.lastMined.Get(cert.ScID)
		if !ok || cert.EpochNumber > mined.epoch || (cert.EpochNumber == mined.epoch && cert.Quality > mined.quality) {
			m.lastMined.Put(cert.ScID, minedCert{epoch: cert.EpochNumber, quality: cert.Quality})
		}
	}

	var superseded []chainhash.Hash

	m.certs.Iter(func(hash chainhash.Hash, cert *model.Certificate) bool {
		mined, ok := m.lastMined.Get(cert.ScID)
		if !ok {
			return false
		}

		if cert.EpochNumber < mined.epoch || (cert.EpochNumber == mined.epoch && (!cert.Ceasable || cert.Quality <= mined.quality)) {
			superseded = append(superseded, hash)
		}

		return false
	})

	for _, hash := range superseded {
		m.removeCertificate(hash)
	}

	if len(superseded) > 0 {
		prometheusMempoolEvictedCerts.Add(float64(len(superseded)))
		m.logger.Infof("[Mempool] evicted %d superseded certificates", len(superseded))
	}

	m.touch()
}

func (m *Mempool) removeCertificate(hash chainhash.Hash) {
	cert, ok := m.certs.Get(hash)
	if !ok {
		return
	}

	m.sizeInBytes -= uint64(len(cert.Bytes()))
	m.certs.Delete(hash)

	slot := slotOf(cert)
	if owner, ok := m.certSlots.Get(slot); ok && owner == hash {
		m.certSlots.Delete(slot)
	}
}

// View is an immutable snapshot of the admissible pool content.
type View struct {
	Sequence     uint64
	Transactions []*model.Transaction
	Certificates []*model.Certificate
}

// newView orders transactions by arrival and applies the single certificate cap
// of non-ceasing sidechains: only the lowest pending epoch is admissible.
func newView(sequence uint64, txs []*model.Transaction, certs []*model.Certificate) *View {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].ArrivalTime.Equal(txs[j].ArrivalTime) {
			return txs[i].ArrivalTime.Before(txs[j].ArrivalTime)
		}

		return bytes.Compare(txs[i].Hash[:], txs[j].Hash[:]) < 0
	})

	nonCeasing := make(map[chainhash.Hash]*model.Certificate)
	admissible := make([]*model.Certificate, 0, len(certs))

	for _, cert := range certs {
		if cert.Ceasable {
			admissible = append(admissible, cert)
			continue
		}

		if current, ok := nonCeasing[cert.ScID]; !ok || cert.EpochNumber < current.EpochNumber {
			nonCeasing[cert.ScID] = cert
		}
	}

	for _, cert := range nonCeasing {
		admissible = append(admissible, cert)
	}

	// arrival order, the template fixes the final order
	sort.Slice(admissible, func(i, j int) bool {
		if !admissible[i].ArrivalTime.Equal(admissible[j].ArrivalTime) {
			return admissible[i].ArrivalTime.Before(admissible[j].ArrivalTime)
		}

		hi, hj := admissible[i].Hash(), admissible[j].Hash()

		return bytes.Compare(hi[:], hj[:]) < 0
	})

	return &View{
		Sequence:     sequence,
		Transactions: txs,
		Certificates: admissible,
	}
}

func (v *View) Empty() bool {
	return len(v.Transactions) == 0 && len(v.Certificates) == 0
}
