package checkblocktemplate

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/rpc"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	template *rpc.GetBlockTemplateResult
	roots    *rpc.GetBlockMerkleRootsResult

	gotTxs   [][]byte
	gotCerts [][]byte
}

func (f *fakeClient) GetBlockTemplate(_ context.Context, requestRoots bool) (*rpc.GetBlockTemplateResult, error) {
	if !requestRoots {
		return nil, errors.NewInvalidArgumentError("roots expected")
	}

	return f.template, nil
}

func (f *fakeClient) GetBlockMerkleRoots(_ context.Context, txs, certs [][]byte) (*rpc.GetBlockMerkleRootsResult, error) {
	f.gotTxs = txs
	f.gotCerts = certs

	return f.roots, nil
}

func certEntry(cert *model.Certificate) rpc.TemplateCertificate {
	return rpc.TemplateCertificate{Data: hex.EncodeToString(cert.Bytes()), Hash: cert.Hash().String()}
}

func newFakeClient(certs ...*model.Certificate) *fakeClient {
	template := &rpc.GetBlockTemplateResult{
		TemplateID:      "t1",
		CoinbaseTxn:     rpc.TemplateTransaction{Data: "01"},
		Transactions:    []rpc.TemplateTransaction{{Data: "02"}, {Data: "03"}},
		MerkleTree:      "aa",
		ScTxsCommitment: "bb",
	}

	for _, cert := range certs {
		template.Certificates = append(template.Certificates, certEntry(cert))
	}

	return &fakeClient{
		template: template,
		roots:    &rpc.GetBlockMerkleRootsResult{MerkleTree: "aa", ScTxsCommitment: "bb"},
	}
}

func TestValidateBlockTemplate(t *testing.T) {
	ctx := context.Background()
	scID := model.TestScID(1)

	t.Run("consistent", func(t *testing.T) {
		client := newFakeClient(model.NewTestCertificate(scID, 0, 1), model.NewTestCertificate(scID, 0, 2))

		template, err := ValidateBlockTemplate(ctx, ulogger.TestLogger{}, client)
		require.NoError(t, err)
		assert.Equal(t, "t1", template.TemplateID)

		assert.Equal(t, [][]byte{{0x01}, {0x02}, {0x03}}, client.gotTxs)
		assert.Len(t, client.gotCerts, 2)
	})

	t.Run("out of order certificates", func(t *testing.T) {
		client := newFakeClient(model.NewTestCertificate(scID, 0, 2), model.NewTestCertificate(scID, 0, 1))

		_, err := ValidateBlockTemplate(ctx, ulogger.TestLogger{}, client)
		require.ErrorIs(t, err, errors.ErrCertOrder)
		assert.Nil(t, client.gotTxs)
	})

	t.Run("root mismatch", func(t *testing.T) {
		client := newFakeClient()
		client.roots = &rpc.GetBlockMerkleRootsResult{MerkleTree: "aa", ScTxsCommitment: "cc"}

		_, err := ValidateBlockTemplate(ctx, ulogger.TestLogger{}, client)
		require.ErrorIs(t, err, errors.ErrRoots)
	})

	t.Run("no roots", func(t *testing.T) {
		client := newFakeClient()
		client.template.MerkleTree = ""

		_, err := ValidateBlockTemplate(ctx, ulogger.TestLogger{}, client)
		require.ErrorIs(t, err, errors.ErrProcessing)
	})

	t.Run("bad transaction hex", func(t *testing.T) {
		client := newFakeClient()
		client.template.Transactions[1].Data = "zz"

		_, err := ValidateBlockTemplate(ctx, ulogger.TestLogger{}, client)
		require.ErrorIs(t, err, errors.ErrProcessing)
	})
}
