// deploydesk serves the factory deployment dashboard: it watches the wallet
// session, keeps the fee/paused snapshot and deployment list in sync with the
// chain, and pushes the combined view state to the browser.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/deploydesk/deploydesk/internal/app"
	"github.com/deploydesk/deploydesk/internal/chain"
	"github.com/deploydesk/deploydesk/internal/config"
	"github.com/deploydesk/deploydesk/internal/metrics"
	"github.com/deploydesk/deploydesk/internal/rpc"
	"github.com/deploydesk/deploydesk/internal/storage"
	"github.com/deploydesk/deploydesk/internal/transport"
	"github.com/deploydesk/deploydesk/internal/wallet"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.FactoryAddress == "" {
		logger.Warn("no factory address configured; deploys will be rejected until FACTORY_ADDRESS is set")
	}

	var account *wallet.Account
	if cfg.PrivateKey != "" {
		account, err = wallet.NewAccountFromHex(cfg.PrivateKey)
		if err != nil {
			logger.Error("invalid private key", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("wallet loaded", slog.String("address", account.Address.Hex()))
	} else {
		logger.Warn("no private key configured; dashboard is read-only")
	}

	client := rpc.NewHTTPClient(rpc.ClientConfig{URL: cfg.RPCURL, Logger: logger})

	caller, err := chain.NewRPCCaller(client, cfg.GasLimit, logger)
	if err != nil {
		logger.Error("failed to create contract caller", slog.String("error", err.Error()))
		os.Exit(1)
	}

	history, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open history store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer history.Close()

	m := metrics.New(nil)

	core := app.New(app.Config{
		Caller:         caller,
		FactoryAddress: cfg.FactoryAddress,
		Account:        account,
		Logger:         logger,
		Metrics:        m,
		History:        history,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go core.Run(ctx)

	watcher := wallet.NewWatcher(client, account, cfg.SessionPoll, logger)
	go watcher.Run(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-watcher.Updates():
				core.UpdateSession(s)
			}
		}
	}()

	server := transport.NewServer(core, history, logger, "*")
	defer server.Stop()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	logger.Info("dashboard listening",
		slog.String("addr", cfg.ListenAddr),
		slog.String("rpc", cfg.RPCURL),
		slog.String("factory", cfg.FactoryAddress),
	)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("HTTP server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
