package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// chainIDClient serves a mutable chain id and errors on demand.
type chainIDClient struct {
	mu      sync.Mutex
	chainID *big.Int
	err     error
}

func (c *chainIDClient) set(id *big.Int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chainID = id
	c.err = err
}

func (c *chainIDClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return new(big.Int).Set(c.chainID), nil
}

func (c *chainIDClient) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	return nil, nil
}

func (c *chainIDClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return nil, nil
}

func (c *chainIDClient) GetNonce(ctx context.Context, address string) (uint64, error) {
	return 0, nil
}

func (c *chainIDClient) GetGasPrice(ctx context.Context) (*big.Int, error) {
	return nil, nil
}

func (c *chainIDClient) SendRawTransaction(ctx context.Context, txRLP []byte) (common.Hash, error) {
	return common.Hash{}, nil
}

func TestWatcherEmitsOnChainChange(t *testing.T) {
	client := &chainIDClient{chainID: big.NewInt(1)}
	acct, _ := NewAccountFromHex(testKeyHex)

	w := NewWatcher(client, acct, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	first := recvSession(t, w.Updates())
	if !first.HasAccount || first.Account != acct.Address {
		t.Errorf("session account = %+v, want %s", first, acct.Address.Hex())
	}
	if first.ChainID == nil || first.ChainID.Int64() != 1 {
		t.Errorf("chain id = %v, want 1", first.ChainID)
	}

	client.set(big.NewInt(5), nil)
	second := recvSession(t, w.Updates())
	if second.ChainID == nil || second.ChainID.Int64() != 5 {
		t.Errorf("chain id after change = %v, want 5", second.ChainID)
	}
}

func TestWatcherTreatsProbeFailureAsNoChain(t *testing.T) {
	client := &chainIDClient{chainID: big.NewInt(1)}
	acct, _ := NewAccountFromHex(testKeyHex)

	w := NewWatcher(client, acct, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	recvSession(t, w.Updates()) // initial

	client.set(nil, errors.New("connection refused"))
	lost := recvSession(t, w.Updates())
	if lost.ChainID != nil {
		t.Errorf("chain id after endpoint loss = %v, want nil", lost.ChainID)
	}
	if !lost.HasAccount {
		t.Error("endpoint loss must not drop the account")
	}
}

func TestWatcherSuppressesDuplicateSessions(t *testing.T) {
	client := &chainIDClient{chainID: big.NewInt(1)}

	w := NewWatcher(client, nil, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	recvSession(t, w.Updates())

	// The chain id never changes; no further sessions may be emitted.
	select {
	case s := <-w.Updates():
		t.Errorf("unexpected duplicate session: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func recvSession(t *testing.T, ch <-chan Session) Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session")
		return Session{}
	}
}
