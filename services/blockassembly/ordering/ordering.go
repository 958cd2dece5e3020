// Package ordering fixes the order of sidechain certificates inside a block.
//
// Certificates of one sidechain must appear by ascending epoch and, within an
// epoch, by ascending quality. There is no constraint between sidechains; they
// are grouped by scid so the result is deterministic. A violation is an internal
// consistency error and is reported, never repaired.
package ordering

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
)

// Key is the ordering key of a certificate.
type Key struct {
	ScID        chainhash.Hash
	EpochNumber int32
	Quality     int64
}

func KeyOf(cert *model.Certificate) Key {
	return Key{
		ScID:        cert.ScID,
		EpochNumber: cert.EpochNumber,
		Quality:     cert.Quality,
	}
}

// Compare orders by scid bytes, then epoch, then quality, all ascending.
func (k Key) Compare(o Key) int {
	if c := bytes.Compare(k.ScID[:], o.ScID[:]); c != 0 {
		return c
	}

	if c := cmp.Compare(k.EpochNumber, o.EpochNumber); c != 0 {
		return c
	}

	return cmp.Compare(k.Quality, o.Quality)
}

// Order returns certs in block order. The input slice is left untouched.
func Order(certs []*model.Certificate) ([]*model.Certificate, error) {
	if err := validate(certs); err != nil {
		return nil, err
	}

	ordered := slices.Clone(certs)

	slices.SortStableFunc(ordered, func(a, b *model.Certificate) int {
		return KeyOf(a).Compare(KeyOf(b))
	})

	for i := 1; i < len(ordered); i++ {
		if KeyOf(ordered[i-1]).Compare(KeyOf(ordered[i])) == 0 {
			return nil, duplicateKeyError(KeyOf(ordered[i]))
		}
	}

	return ordered, nil
}

// Check verifies that an already ordered sequence obeys the per-sidechain rule.
// Sidechains may be interleaved.
func Check(certs []*model.Certificate) error {
	if err := validate(certs); err != nil {
		return err
	}

	last := make(map[chainhash.Hash]Key, len(certs))

	for i, cert := range certs {
		key := KeyOf(cert)

		prev, seen := last[cert.ScID]
		if seen {
			switch c := prev.Compare(key); {
			case c == 0:
				return duplicateKeyError(key)
			case c > 0:
				err := errors.New(errors.ERR_CERT_ORDER, "certificate %d of sidechain %s is out of order: epoch %d quality %d follows epoch %d quality %d",
					i, cert.ScID, key.EpochNumber, key.Quality, prev.EpochNumber, prev.Quality)
				err.SetData("scid", cert.ScID.String())
				err.SetData("position", i)

				return err
			}
		}

		last[cert.ScID] = key
	}

	return nil
}

// validate rejects nil or malformed certificates, mixed ceasing flags for one
// sidechain, and more than one certificate for a non-ceasing sidechain.
func validate(certs []*model.Certificate) error {
	type scState struct {
		ceasable bool
		count    int
	}

	states := make(map[chainhash.Hash]*scState)

	for i, cert := range certs {
		if cert == nil {
			return errors.NewCertOrderError("certificate %d is nil", i)
		}

		if err := cert.Validate(); err != nil {
			return errors.NewCertOrderError("certificate %d cannot be ordered", i, err)
		}

		state, ok := states[cert.ScID]
		if !ok {
			state = &scState{ceasable: cert.Ceasable}
			states[cert.ScID] = state
		}

		if state.ceasable != cert.Ceasable {
			return errors.NewCertOrderError("sidechain %s has certificates with conflicting ceasing flags", cert.ScID)
		}

		state.count++

		if !state.ceasable && state.count > 1 {
			err := errors.New(errors.ERR_CERT_ORDER, "non-ceasing sidechain %s has %d certificates, at most one is allowed", cert.ScID, state.count)
			err.SetData("scid", cert.ScID.String())

			return err
		}
	}

	return nil
}

func duplicateKeyError(key Key) error {
	err := errors.New(errors.ERR_CERT_ORDER, "duplicate certificate key: sidechain %s epoch %d quality %d", key.ScID, key.EpochNumber, key.Quality)
	err.SetData("scid", key.ScID.String())
	err.SetData("epoch", key.EpochNumber)
	err.SetData("quality", key.Quality)

	return err
}
