package rpc

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestRPCError(t *testing.T) {
	err := &RPCError{Code: -32000, Message: "execution reverted"}
	if got := err.Error(); got != "RPC error -32000: execution reverted" {
		t.Errorf("RPCError.Error() = %q", got)
	}
}

func TestHTTPStatusError(t *testing.T) {
	tests := []struct {
		name string
		err  HTTPStatusError
		want string
	}{
		{
			name: "with body",
			err:  HTTPStatusError{StatusCode: 429, Body: "rate limited"},
			want: "HTTP 429: Too Many Requests (body: rate limited)",
		},
		{
			name: "without body",
			err:  HTTPStatusError{StatusCode: 502},
			want: "HTTP 502: Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func rpcServer(t *testing.T, result interface{}) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode(JSONRPCResponse{
			JSONRPC: "2.0",
			Result:  mustMarshal(t, result),
			ID:      1,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestChainID(t *testing.T) {
	srv, _ := rpcServer(t, "0x7a69") // 31337
	client := NewHTTPClient(DefaultClientConfig(srv.URL))

	id, err := client.ChainID(context.Background())
	if err != nil {
		t.Fatalf("ChainID: %v", err)
	}
	if id.Cmp(big.NewInt(31337)) != 0 {
		t.Errorf("chain id = %s, want 31337", id)
	}
}

func TestCallContract(t *testing.T) {
	srv, _ := rpcServer(t, "0x000000000000000000000000000000000000000000000000002386f26fc10000")
	client := NewHTTPClient(DefaultClientConfig(srv.URL))

	ret, err := client.CallContract(context.Background(),
		common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		[]byte{0x12, 0x34, 0x56, 0x78},
	)
	if err != nil {
		t.Fatalf("CallContract: %v", err)
	}
	if len(ret) != 32 {
		t.Errorf("len(ret) = %d, want 32", len(ret))
	}
}

func TestSendRawTransactionReturnsHash(t *testing.T) {
	wantHash := "0xabc0000000000000000000000000000000000000000000000000000000000001"
	srv, _ := rpcServer(t, wantHash)
	client := NewHTTPClient(DefaultClientConfig(srv.URL))

	hash, err := client.SendRawTransaction(context.Background(), []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("SendRawTransaction: %v", err)
	}
	if hash != common.HexToHash(wantHash) {
		t.Errorf("hash = %s, want %s", hash.Hex(), wantHash)
	}
}

func TestCallSurfacesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(JSONRPCResponse{
			JSONRPC: "2.0",
			Error:   &JSONRPCError{Code: -32000, Message: "insufficient funds"},
			ID:      1,
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(DefaultClientConfig(srv.URL))
	_, err := client.Call(context.Background(), "eth_call", []interface{}{})
	if err == nil {
		t.Fatal("expected error")
	}

	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("error type = %T, want *RPCError", err)
	}
	if rpcErr.Message != "insufficient funds" {
		t.Errorf("message = %q", rpcErr.Message)
	}
}

// The client makes exactly one attempt per call; retries belong to the
// operator's infrastructure, not this layer.
func TestCallDoesNotRetry(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(DefaultClientConfig(srv.URL))
	_, err := client.Call(context.Background(), "eth_chainId", []interface{}{})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*HTTPStatusError); !ok {
		t.Fatalf("error type = %T, want *HTTPStatusError", err)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("requests = %d, want exactly 1", got)
	}
}
