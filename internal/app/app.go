// Package app owns the dashboard view state machine.
//
// One goroutine (Run) owns every mutable field. Wallet/session changes, read
// results, list results, and deploy requests arrive as events on a single
// channel; chain calls run on worker goroutines that carry the generation
// captured at issue time, and the run loop compares-and-discards stale
// results at commit. There is no lock-based coordination between the read
// path, the list path, and the deploy command: they meet only through the
// published state and the success marker.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/deploydesk/deploydesk/internal/chain"
	"github.com/deploydesk/deploydesk/internal/metrics"
	"github.com/deploydesk/deploydesk/internal/storage"
	"github.com/deploydesk/deploydesk/internal/wallet"
	"github.com/deploydesk/deploydesk/pkg/types"
)

// User-facing messages. The deploy preconditions short-circuit with exactly
// these strings; tests and the browser match on them.
const (
	MsgConnectWallet = "Connect your wallet first."
	MsgNotConfigured = "Contract not configured. Set FACTORY_ADDRESS in .env.local and reload."
	MsgPaused        = "Factory is paused."
	MsgInFlight      = "A deployment is already in progress."
)

// DefaultDeploymentFeeWei is the value attached to createDeployment when the
// fee read has not completed: 10^16 wei, one hundredth of the native unit.
// This is a safety default, not a real price; submitting with it can pay the
// wrong fee if the on-chain fee differs. Kept intentionally.
var DefaultDeploymentFeeWei = big.NewInt(10_000_000_000_000_000)

// Config holds the app's collaborators.
type Config struct {
	Caller         chain.Caller
	FactoryAddress string
	Account        *wallet.Account // signing key; nil = no wallet
	Logger         *slog.Logger
	Metrics        *metrics.Metrics     // optional
	History        storage.HistoryStore // optional
}

// App is the view state machine. Construct with New, drive with Run.
type App struct {
	caller      chain.Caller
	factoryAddr string
	account     *wallet.Account
	logger      *slog.Logger
	metrics     *metrics.Metrics
	history     storage.HistoryStore

	events  chan event
	runCtx  context.Context
	stopped chan struct{}

	subsMu sync.Mutex
	subs   []chan types.ViewState

	// State below is owned by the Run goroutine.
	session   wallet.Session
	handle    chain.Handle
	handleKey string // "" = no handle

	readGen     uint64
	feeWei      *big.Int // nil = unknown for current handle
	paused      bool
	pausedKnown bool
	readErr     string

	listGen     uint64
	deployments []types.DeploymentRecord
	listFetched bool

	successMarker uint64

	cmd    types.CommandStatus
	cmdMsg string
	txHash string
}

type event interface{}

type sessionEvent struct{ session wallet.Session }

type readResult struct {
	gen       uint64
	fee       *big.Int
	feeErr    error
	paused    bool
	pausedErr error
}

type listResult struct {
	gen     uint64
	records []chain.Deployment
	err     error
}

type deployRequest struct{ reply chan types.DeployResponse }

type deployResult struct {
	txHash common.Hash
	fee    *big.Int
	err    error
}

type stateRequest struct{ reply chan types.ViewState }

type inspectRequest struct{ reply chan inspection }

// inspection exposes bookkeeping the UI must not distinguish but tests do.
type inspection struct {
	listFetched   bool
	successMarker uint64
}

// New creates the app. Run must be called before posting events.
func New(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &App{
		caller:      cfg.Caller,
		factoryAddr: cfg.FactoryAddress,
		account:     cfg.Account,
		logger:      logger,
		metrics:     cfg.Metrics,
		history:     cfg.History,
		events:      make(chan event, 32),
		stopped:     make(chan struct{}),
		cmd:         types.CommandIdle,
	}
}

// Run processes events until ctx is cancelled. It owns all mutable state.
func (a *App) Run(ctx context.Context) {
	a.runCtx = ctx
	defer close(a.stopped)
	a.publish()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.events:
			a.handleEvent(ev)
		}
	}
}

// UpdateSession feeds a wallet/session change into the state machine.
func (a *App) UpdateSession(s wallet.Session) {
	a.post(sessionEvent{session: s})
}

// Deploy triggers the deploy command and reports whether the submission was
// accepted. Precondition failures come back with their user-facing message.
func (a *App) Deploy() types.DeployResponse {
	reply := make(chan types.DeployResponse, 1)
	a.post(deployRequest{reply: reply})
	select {
	case resp := <-reply:
		return resp
	case <-a.done():
		return types.DeployResponse{State: a.cmd}
	}
}

// State returns the current view state snapshot.
func (a *App) State() types.ViewState {
	reply := make(chan types.ViewState, 1)
	a.post(stateRequest{reply: reply})
	select {
	case st := <-reply:
		return st
	case <-a.done():
		return types.ViewState{Command: types.CommandIdle, Deployments: []types.DeploymentRecord{}}
	}
}

// Subscribe registers a view state listener. Every committed change is
// delivered; a slow subscriber loses intermediate states, never the latest
// ordering guarantee of its own channel.
func (a *App) Subscribe() <-chan types.ViewState {
	ch := make(chan types.ViewState, 16)
	a.subsMu.Lock()
	a.subs = append(a.subs, ch)
	a.subsMu.Unlock()
	return ch
}

// inspect returns test-only bookkeeping through the run loop.
func (a *App) inspect() inspection {
	reply := make(chan inspection, 1)
	a.post(inspectRequest{reply: reply})
	select {
	case ins := <-reply:
		return ins
	case <-a.done():
		return inspection{}
	}
}

func (a *App) post(ev event) {
	select {
	case a.events <- ev:
	case <-a.done():
	}
}

func (a *App) done() <-chan struct{} {
	return a.stopped
}

func (a *App) handleEvent(ev event) {
	switch ev := ev.(type) {
	case sessionEvent:
		a.onSession(ev.session)
	case readResult:
		a.onReadResult(ev)
	case listResult:
		a.onListResult(ev)
	case deployRequest:
		a.onDeploy(ev.reply)
	case deployResult:
		a.onDeployResult(ev)
	case stateRequest:
		ev.reply <- a.viewState()
	case inspectRequest:
		ev.reply <- inspection{listFetched: a.listFetched, successMarker: a.successMarker}
	}
}

// onSession rebuilds the contract handle and restarts the read and list
// effects whose dependency tuples changed.
func (a *App) onSession(s wallet.Session) {
	prevKey := a.handleKey
	prevAccount := a.session

	a.session = s

	handle, ok := chain.DeriveHandle(a.factoryAddr, s.ChainID)
	if ok {
		a.handle = handle
		a.handleKey = handle.Key()
	} else {
		a.handle = chain.Handle{}
		a.handleKey = ""
	}

	handleChanged := a.handleKey != prevKey
	accountChanged := prevAccount.HasAccount != s.HasAccount ||
		(s.HasAccount && prevAccount.Account != s.Account)

	if handleChanged {
		// Snapshot is only valid for the handle it was fetched against.
		a.feeWei = nil
		a.pausedKnown = false
		a.paused = false
		a.readErr = ""

		a.readGen++
		if a.handleKey != "" {
			a.startReads(a.readGen, a.handle)
		}
	}

	if handleChanged || accountChanged {
		// Scope of the list changed entirely; drop the old records.
		a.deployments = nil
		a.listFetched = false

		a.listGen++
		if a.handleKey != "" && s.HasAccount {
			a.startList(a.listGen, a.handle, s.Account)
		}
	}

	a.publish()
}

// startReads issues the fee and paused reads concurrently and reports the
// combined result as one event, tagged with the issuing generation.
func (a *App) startReads(gen uint64, h chain.Handle) {
	if a.metrics != nil {
		a.metrics.ReadBatches.Inc()
	}

	ctx := a.runCtx
	go func() {
		var res readResult
		res.gen = gen

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			res.fee, res.feeErr = a.caller.DeploymentFee(ctx, h)
		}()
		go func() {
			defer wg.Done()
			res.paused, res.pausedErr = a.caller.Paused(ctx, h)
		}()
		wg.Wait()

		a.post(res)
	}()
}

func (a *App) onReadResult(res readResult) {
	if res.gen != a.readGen {
		if a.metrics != nil {
			a.metrics.StaleDropped.WithLabelValues("read").Inc()
		}
		a.logger.Debug("dropping superseded read result",
			slog.Uint64("gen", res.gen),
			slog.Uint64("current", a.readGen),
		)
		return
	}

	// Commit whichever reads succeeded; a failure never clears a value the
	// other read just fetched.
	if res.feeErr == nil {
		a.feeWei = res.fee
		if a.metrics != nil {
			a.metrics.FeeWei.Set(bigToFloat(res.fee))
		}
	}
	if res.pausedErr == nil {
		a.paused = res.paused
		a.pausedKnown = true
		if a.metrics != nil {
			if res.paused {
				a.metrics.Paused.Set(1)
			} else {
				a.metrics.Paused.Set(0)
			}
		}
	}

	a.readErr = ""
	if err := firstErr(res.feeErr, res.pausedErr); err != nil {
		a.readErr = fmt.Sprintf("Failed to read factory state: %s", err.Error())
		if a.metrics != nil {
			a.metrics.ReadFailures.Inc()
		}
		a.logger.Error("factory read failed", slog.String("error", err.Error()))
	}

	a.publish()
}

// startList fetches the account's deployments, tagged with the issuing
// generation.
func (a *App) startList(gen uint64, h chain.Handle, account common.Address) {
	if a.metrics != nil {
		a.metrics.ListFetches.Inc()
	}

	ctx := a.runCtx
	go func() {
		records, err := a.caller.UserDeployments(ctx, h, account)
		a.post(listResult{gen: gen, records: records, err: err})
	}()
}

func (a *App) onListResult(res listResult) {
	if res.gen != a.listGen {
		if a.metrics != nil {
			a.metrics.StaleDropped.WithLabelValues("list").Inc()
		}
		return
	}

	if res.err != nil {
		// Deliberately quieter than the fee/paused path: log and keep the
		// last known list.
		a.logger.Warn("deployment list fetch failed", slog.String("error", res.err.Error()))
		return
	}

	records := make([]types.DeploymentRecord, 0, len(res.records))
	for _, r := range res.records {
		var created int64
		if r.CreationTime != nil {
			created = r.CreationTime.Int64()
		}
		records = append(records, types.DeploymentRecord{
			ContractAddress: r.ContractAddress.Hex(),
			Owner:           r.Owner.Hex(),
			Label:           r.Label,
			CreationTime:    created,
		})
	}

	a.deployments = records
	a.listFetched = true
	a.publish()
}

// onDeploy validates preconditions in order and, if they pass, submits the
// payable creation call on a worker goroutine.
func (a *App) onDeploy(reply chan types.DeployResponse) {
	if a.cmd == types.CommandSubmitting {
		reply <- types.DeployResponse{Message: MsgInFlight, State: types.CommandSubmitting}
		return
	}

	a.cmd = types.CommandValidating

	fail := func(msg string) {
		a.cmd = types.CommandFailed
		a.cmdMsg = msg
		a.txHash = ""
		a.publish()
		reply <- types.DeployResponse{Message: msg, State: types.CommandFailed}
	}

	if !a.session.HasAccount || a.account == nil {
		fail(MsgConnectWallet)
		return
	}
	if a.handleKey == "" {
		fail(MsgNotConfigured)
		return
	}
	if a.pausedKnown && a.paused {
		fail(MsgPaused)
		return
	}

	// Value = known fee, else the documented fallback. Copied so a later
	// snapshot refresh cannot mutate the amount mid-submission.
	value := DefaultDeploymentFeeWei
	if a.feeWei != nil {
		value = a.feeWei
	}
	value = new(big.Int).Set(value)

	a.cmd = types.CommandSubmitting
	a.cmdMsg = ""
	a.txHash = ""
	a.publish()

	handle := a.handle
	account := a.account
	ctx := a.runCtx
	go func() {
		hash, err := a.caller.CreateDeployment(ctx, handle, account, value)
		a.post(deployResult{txHash: hash, fee: value, err: err})
	}()

	reply <- types.DeployResponse{Accepted: true, State: types.CommandSubmitting}
}

func (a *App) onDeployResult(res deployResult) {
	if res.err != nil {
		a.cmd = types.CommandFailed
		a.cmdMsg = res.err.Error()
		a.txHash = ""
		if a.metrics != nil {
			a.metrics.Deploys.WithLabelValues("failed").Inc()
		}
		a.recordSubmission("", res.fee, res.err)
		a.publish()
		return
	}

	a.cmd = types.CommandSucceeded
	a.txHash = res.txHash.Hex()
	a.cmdMsg = fmt.Sprintf("Deployment created: %s", a.txHash)
	a.readErr = ""
	if a.metrics != nil {
		a.metrics.Deploys.WithLabelValues("submitted").Inc()
	}
	a.recordSubmission(a.txHash, res.fee, nil)

	// The success marker is the only channel between the command and the
	// lister: bumping it refetches the list for the active account.
	a.successMarker++
	a.listGen++
	if a.handleKey != "" && a.session.HasAccount {
		a.startList(a.listGen, a.handle, a.session.Account)
	}

	a.publish()
}

func (a *App) recordSubmission(txHash string, fee *big.Int, sendErr error) {
	if a.history == nil {
		return
	}

	rec := types.SubmissionRecord{
		TxHash:      txHash,
		FeeWei:      fee.String(),
		SubmittedAt: time.Now().Unix(),
		Outcome:     "submitted",
	}
	if a.session.HasAccount {
		rec.Account = a.session.Account.Hex()
	}
	if sendErr != nil {
		rec.Outcome = "failed"
		rec.Error = sendErr.Error()
	}

	if err := a.history.RecordSubmission(rec); err != nil {
		a.logger.Warn("failed to record submission", slog.String("error", err.Error()))
	}
}

// viewState assembles the published snapshot. Deployments is always non-nil
// so "no data yet" and "fetched, zero records" render identically.
func (a *App) viewState() types.ViewState {
	st := types.ViewState{
		FactoryAddress: a.factoryAddr,
		Configured:     a.factoryAddr != "",
		HandleReady:    a.handleKey != "",
		Paused:         a.paused,
		ReadError:      a.readErr,
		Command:        a.cmd,
		CommandMessage: a.cmdMsg,
		TxHash:         a.txHash,
		Deployments:    make([]types.DeploymentRecord, len(a.deployments)),
	}
	copy(st.Deployments, a.deployments)

	if a.session.HasAccount {
		st.Account = a.session.Account.Hex()
	}
	if a.session.ChainID != nil {
		st.ChainID = a.session.ChainID.String()
	}
	if a.feeWei != nil {
		st.FeeWei = a.feeWei.String()
	}
	return st
}

func (a *App) publish() {
	st := a.viewState()

	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- st:
		default:
			// Drop for slow subscribers; never block the run loop.
		}
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func bigToFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
