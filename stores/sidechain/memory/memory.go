package memory

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/dolthub/swiss"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
)

type Memory struct {
	mu         sync.RWMutex
	sidechains *swiss.Map[chainhash.Hash, model.Sidechain]
}

func New() *Memory {
	return &Memory{
		sidechains: swiss.NewMap[chainhash.Hash, model.Sidechain](64),
	}
}

func (m *Memory) Health(_ context.Context, _ bool) (int, string, error) {
	return http.StatusOK, "Memory Store available", nil
}

func (m *Memory) Add(_ context.Context, sc *model.Sidechain) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sidechains.Has(sc.ID) {
		return errors.NewSidechainExistsError("sidechain %s already registered", sc.ID)
	}

	m.sidechains.Put(sc.ID, *sc)

	return nil
}

func (m *Memory) Get(_ context.Context, scID chainhash.Hash) (*model.Sidechain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sc, ok := m.sidechains.Get(scID)
	if !ok {
		return nil, errors.NewSidechainNotFoundError("sidechain %s not found", scID)
	}

	return &sc, nil
}

func (m *Memory) Exists(_ context.Context, scID chainhash.Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sidechains.Has(scID), nil
}

// List returns the sidechains ordered by id.
func (m *Memory) List(_ context.Context) ([]*model.Sidechain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*model.Sidechain, 0, m.sidechains.Count())

	m.sidechains.Iter(func(_ chainhash.Hash, sc model.Sidechain) bool {
		list = append(list, &sc)
		return false
	})

	sort.Slice(list, func(i, j int) bool {
		return bytes.Compare(list[i].ID[:], list[j].ID[:]) < 0
	})

	return list, nil
}

func (m *Memory) Close() error {
	return nil
}
