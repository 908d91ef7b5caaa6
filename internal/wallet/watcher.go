package wallet

import (
	"context"
	"log/slog"
	"time"

	"github.com/deploydesk/deploydesk/internal/rpc"
)

// Watcher turns the wallet/chain pair into a reactively observable session.
// The account comes from the locally configured key and does not change at
// runtime; the chain id is re-read from the RPC endpoint on an interval so an
// endpoint swap behind the same URL propagates as a session change.
type Watcher struct {
	client   rpc.Client
	account  *Account // nil = no wallet configured
	interval time.Duration
	logger   *slog.Logger

	updates chan Session
	current Session
}

// NewWatcher creates a session watcher. account may be nil.
func NewWatcher(client rpc.Client, account *Account, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Watcher{
		client:   client,
		account:  account,
		interval: interval,
		logger:   logger,
		updates:  make(chan Session, 4),
	}
}

// Updates returns the channel session changes are delivered on. The first
// value arrives after the initial chain probe.
func (w *Watcher) Updates() <-chan Session {
	return w.updates
}

// Run probes the chain id until ctx is cancelled, emitting a session on
// every change. A probe failure means "no chain" rather than an error: the
// dashboard treats a dead endpoint like a disconnected wallet.
func (w *Watcher) Run(ctx context.Context) {
	w.probe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.probe(ctx)
		}
	}
}

func (w *Watcher) probe(ctx context.Context) {
	next := Session{}
	if w.account != nil {
		next.Account = w.account.Address
		next.HasAccount = true
	}

	chainID, err := w.client.ChainID(ctx)
	if err != nil {
		w.logger.Warn("chain id probe failed",
			slog.String("error", err.Error()),
		)
	} else {
		next.ChainID = chainID
	}

	if next.Equal(w.current) {
		return
	}
	w.current = next

	select {
	case w.updates <- next:
	case <-ctx.Done():
	}
}
