package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"

	"github.com/horizenofficial/sctemplate/errors"
	jsoniter "github.com/json-iterator/go"
)

type clientResponse struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *RPCError           `json:"error"`
}

// Client talks to a running node's JSON-RPC endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(u *url.URL) (*Client, error) {
	if u == nil {
		return nil, errors.NewConfigurationError("rpc client url is not set")
	}

	return &Client{
		url:        u.String(),
		httpClient: &http.Client{},
	}, nil
}

// Call makes one request and decodes its result into result, which may be nil.
// A reply carrying an error comes back as *RPCError.
func (c *Client) Call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "1.0",
		"id":      "sctemplate-cli",
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return errors.NewProcessingError("failed to encode %s request", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return errors.NewProcessingError("failed to create %s request", method, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewServiceUnavailableError("rpc call %s failed", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewServiceError("failed to read %s response", method, err)
	}

	var response clientResponse
	if err = json.Unmarshal(body, &response); err != nil {
		return errors.NewProcessingError("failed to decode %s response (status %d)", method, resp.StatusCode, err)
	}

	if response.Error != nil {
		return response.Error
	}

	if result == nil {
		return nil
	}

	if err = json.Unmarshal(response.Result, result); err != nil {
		return errors.NewProcessingError("failed to decode %s result", method, err)
	}

	return nil
}

func (c *Client) GetBlockTemplate(ctx context.Context, requestRoots bool) (*GetBlockTemplateResult, error) {
	var result GetBlockTemplateResult
	if err := c.Call(ctx, &result, "getblocktemplate", map[string]string{"mode": "template"}, requestRoots); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetBlockMerkleRoots asks the node for the roots of arbitrary block content.
// txs starts with the coinbase.
func (c *Client) GetBlockMerkleRoots(ctx context.Context, txs, certs [][]byte) (*GetBlockMerkleRootsResult, error) {
	var result GetBlockMerkleRootsResult
	if err := c.Call(ctx, &result, "getblockmerkleroots", toHexList(txs), toHexList(certs)); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) SubmitBlock(ctx context.Context, raw []byte) error {
	return c.Call(ctx, nil, "submitblock", hex.EncodeToString(raw))
}

func toHexList(items [][]byte) []string {
	out := make([]string, len(items))
	for i, b := range items {
		out[i] = hex.EncodeToString(b)
	}

	return out
}
