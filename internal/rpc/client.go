// Package rpc provides a minimal JSON-RPC client for Ethereum nodes.
//
// The client makes exactly one attempt per call. Retry and backoff are
// deliberately left to the operator's infrastructure; a failed read is
// surfaced to the caller and the dashboard shows it as-is.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Client is the interface for JSON-RPC communication with the chain.
type Client interface {
	// Call makes a JSON-RPC call.
	Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error)

	// ChainID returns the chain id reported by the endpoint.
	ChainID(ctx context.Context) (*big.Int, error)

	// CallContract performs an eth_call against a contract at the latest block.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// GetNonce fetches the pending nonce for an address.
	GetNonce(ctx context.Context, address string) (uint64, error)

	// GetGasPrice returns the current gas price from the node.
	GetGasPrice(ctx context.Context) (*big.Int, error)

	// SendRawTransaction sends a signed transaction and returns its hash.
	SendRawTransaction(ctx context.Context, txRLP []byte) (common.Hash, error)
}

// JSONRPCRequest represents a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// JSONRPCError represents a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is an application-level RPC error returned by the node.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// HTTPStatusError represents an HTTP-level error (non-2xx status).
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s (body: %s)", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ClientConfig holds configuration for the RPC client.
type ClientConfig struct {
	URL     string
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultClientConfig returns default configuration for a dashboard client.
// Reads here are interactive, not high-throughput, so a generous timeout
// beats a fast failure.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:     url,
		Timeout: 10 * time.Second,
	}
}

// HTTPClient implements Client using HTTP.
type HTTPClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a new HTTP-based RPC client.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		url: cfg.URL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Call makes a single JSON-RPC call.
func (c *HTTPClient) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(errBody),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	return rpcResp.Result, nil
}

// ChainID returns the chain id reported by the endpoint.
func (c *HTTPClient) ChainID(ctx context.Context) (*big.Int, error) {
	result, err := c.Call(ctx, "eth_chainId", []interface{}{})
	if err != nil {
		return nil, err
	}

	var idHex string
	if err := json.Unmarshal(result, &idHex); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chain id: %w", err)
	}

	id, err := hexutil.DecodeBig(idHex)
	if err != nil {
		return nil, fmt.Errorf("invalid chain id %q: %w", idHex, err)
	}
	return id, nil
}

// CallContract performs an eth_call at the latest block.
func (c *HTTPClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	callObj := map[string]string{
		"to":   to.Hex(),
		"data": hexutil.Encode(data),
	}

	result, err := c.Call(ctx, "eth_call", []interface{}{callObj, "latest"})
	if err != nil {
		return nil, err
	}

	var retHex string
	if err := json.Unmarshal(result, &retHex); err != nil {
		return nil, fmt.Errorf("failed to unmarshal call result: %w", err)
	}

	ret, err := hexutil.Decode(retHex)
	if err != nil {
		return nil, fmt.Errorf("invalid call result: %w", err)
	}
	return ret, nil
}

// GetNonce fetches the pending nonce for an address. "pending" includes
// mempool transactions so back-to-back deploys do not reuse a nonce.
func (c *HTTPClient) GetNonce(ctx context.Context, address string) (uint64, error) {
	result, err := c.Call(ctx, "eth_getTransactionCount", []interface{}{address, "pending"})
	if err != nil {
		return 0, err
	}

	var nonceHex string
	if err := json.Unmarshal(result, &nonceHex); err != nil {
		return 0, fmt.Errorf("failed to unmarshal nonce: %w", err)
	}

	return hexutil.DecodeUint64(nonceHex)
}

// GetGasPrice returns the current gas price from the node.
func (c *HTTPClient) GetGasPrice(ctx context.Context) (*big.Int, error) {
	result, err := c.Call(ctx, "eth_gasPrice", []interface{}{})
	if err != nil {
		return nil, err
	}

	var priceHex string
	if err := json.Unmarshal(result, &priceHex); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gas price: %w", err)
	}

	return hexutil.DecodeBig(priceHex)
}

// SendRawTransaction sends a signed transaction and returns its hash.
func (c *HTTPClient) SendRawTransaction(ctx context.Context, txRLP []byte) (common.Hash, error) {
	hexTx := hexutil.Encode(txRLP)
	result, err := c.Call(ctx, "eth_sendRawTransaction", []interface{}{hexTx})
	if err != nil {
		return common.Hash{}, err
	}

	var hashHex string
	if err := json.Unmarshal(result, &hashHex); err != nil {
		return common.Hash{}, fmt.Errorf("failed to unmarshal tx hash: %w", err)
	}

	return common.HexToHash(hashHex), nil
}
