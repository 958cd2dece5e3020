// Package checkblocktemplate cross-checks the template a running node hands
// out: the roots it reports must match an independent root query over the same
// content, and its certificates must be in block order.
package checkblocktemplate

import (
	"context"
	"encoding/hex"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/blockassembly/ordering"
	"github.com/horizenofficial/sctemplate/services/rpc"
	"github.com/horizenofficial/sctemplate/ulogger"
)

// Client is the part of the RPC client the check needs.
type Client interface {
	GetBlockTemplate(ctx context.Context, requestRoots bool) (*rpc.GetBlockTemplateResult, error)
	GetBlockMerkleRoots(ctx context.Context, txs, certs [][]byte) (*rpc.GetBlockMerkleRootsResult, error)
}

// ValidateBlockTemplate fetches a template with roots and checks it. The
// template is returned even when a check fails.
func ValidateBlockTemplate(ctx context.Context, logger ulogger.Logger, client Client) (*rpc.GetBlockTemplateResult, error) {
	template, err := client.GetBlockTemplate(ctx, true)
	if err != nil {
		return nil, err
	}

	logger.Infof("[CheckBlockTemplate] template %s at height %d: %d transactions, %d certificates",
		template.TemplateID, template.Height, len(template.Transactions), len(template.Certificates))

	if template.MerkleTree == "" || template.ScTxsCommitment == "" {
		return template, errors.NewProcessingError("template %s carries no roots", template.TemplateID)
	}

	rawTxs := make([][]byte, 0, len(template.Transactions)+1)

	coinbase, err := hex.DecodeString(template.CoinbaseTxn.Data)
	if err != nil {
		return template, errors.NewProcessingError("coinbase is not hex", err)
	}

	rawTxs = append(rawTxs, coinbase)

	for i, tx := range template.Transactions {
		raw, decodeErr := hex.DecodeString(tx.Data)
		if decodeErr != nil {
			return template, errors.NewProcessingError("transaction %d is not hex", i, decodeErr)
		}

		rawTxs = append(rawTxs, raw)
	}

	rawCerts := make([][]byte, len(template.Certificates))
	certs := make([]*model.Certificate, len(template.Certificates))

	for i, c := range template.Certificates {
		if rawCerts[i], err = hex.DecodeString(c.Data); err != nil {
			return template, errors.NewProcessingError("certificate %d is not hex", i, err)
		}

		if certs[i], err = model.NewCertificateFromBytes(rawCerts[i]); err != nil {
			return template, errors.NewProcessingError("certificate %d does not decode", i, err)
		}

		// the one-per-block cap of non-ceasing sidechains is not visible on the wire
		certs[i].Ceasable = true
	}

	if err = ordering.Check(certs); err != nil {
		return template, err
	}

	roots, err := client.GetBlockMerkleRoots(ctx, rawTxs, rawCerts)
	if err != nil {
		return template, err
	}

	if roots.MerkleTree != template.MerkleTree {
		return template, errors.NewRootsError("merkle root mismatch: template %s, recomputed %s", template.MerkleTree, roots.MerkleTree)
	}

	if roots.ScTxsCommitment != template.ScTxsCommitment {
		return template, errors.NewRootsError("sidechain commitment mismatch: template %s, recomputed %s", template.ScTxsCommitment, roots.ScTxsCommitment)
	}

	logger.Infof("[CheckBlockTemplate] template %s is consistent", template.TemplateID)

	return template, nil
}
