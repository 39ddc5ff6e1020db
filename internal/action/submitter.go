// Package action submits state changing transactions to the oracle contract
// and records each request as a TransactionIntent.
package action

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/chain"
	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/metrics"
	"price-oracle-dashboard/internal/units"
)

// ErrPending is returned when a transaction was broadcast but not mined
// before the caller stopped waiting. It keeps being tracked in the background.
var ErrPending = errors.New("transaction submitted, confirmation pending")

const (
	defaultConfirmTimeout = 2 * time.Minute
	trackTimeout          = 15 * time.Minute
)

// Contract is the write surface of the chain adapter.
type Contract interface {
	Capabilities() chain.Capabilities
	PriceDecimals() uint8
	Decimals(ctx context.Context, pair domain.Pair) (uint8, error)
	RegisteredFeed(ctx context.Context, pair domain.Pair) (common.Address, error)
	MintNow(opts *bind.TransactOpts, to common.Address) (*types.Transaction, error)
	SetThresholds(opts *bind.TransactOpts, pair domain.Pair, high, low *big.Int) (*types.Transaction, error)
	RegisterFeed(opts *bind.TransactOpts, pair domain.Pair, feed common.Address) (*types.Transaction, error)
	BatchSetPriceFeeds(opts *bind.TransactOpts, pairs []domain.Pair, feeds []common.Address) (*types.Transaction, error)
	UpdatePriceData(opts *bind.TransactOpts, pair domain.Pair) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	RevertReason(ctx context.Context, from common.Address, tx *types.Transaction, blockNumber *big.Int) string
}

// IntentStore persists intents. SaveIntent upserts by ID.
type IntentStore interface {
	SaveIntent(ctx context.Context, intent domain.TransactionIntent) error
	ListIntents(ctx context.Context, limit int) ([]domain.TransactionIntent, error)
}

type Submitter struct {
	tracer         trace.Tracer
	mu             sync.RWMutex
	contract       Contract
	signer         chain.Signer
	store          IntentStore
	log            *logger.Entry
	metrics        *metrics.Metrics
	confirmTimeout time.Duration
	now            func() time.Time
	newID          func() string

	tracking sync.WaitGroup
}

// NewSubmitter wires a submitter. contract and signer may be nil; every
// write then fails with a typed error.
func NewSubmitter(tracer trace.Tracer, contract Contract, signer chain.Signer, store IntentStore, confirmTimeout time.Duration, m *metrics.Metrics) *Submitter {
	if store == nil {
		store = NewMemoryStore(100)
	}
	if confirmTimeout <= 0 {
		confirmTimeout = defaultConfirmTimeout
	}
	return &Submitter{
		tracer:         tracer,
		contract:       contract,
		signer:         signer,
		store:          store,
		log:            logger.L().WithComponent("action"),
		metrics:        m,
		confirmTimeout: confirmTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// Attach installs the contract and signer once the chain becomes reachable.
func (s *Submitter) Attach(contract Contract, signer chain.Signer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contract, s.signer = contract, signer
}

func (s *Submitter) conn() (Contract, chain.Signer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contract, s.signer
}

// CanSign reports whether writes can be attempted.
func (s *Submitter) CanSign() bool {
	c, signer := s.conn()
	return signer != nil && c != nil
}

// Intents lists recorded intents, newest first.
func (s *Submitter) Intents(ctx context.Context, limit int) ([]domain.TransactionIntent, error) {
	return s.store.ListIntents(ctx, limit)
}

// Wait blocks until background confirmation tracking has finished.
func (s *Submitter) Wait() {
	s.tracking.Wait()
}

// Mint calls mintNow(to).
func (s *Submitter) Mint(ctx context.Context, to string) (*domain.TransactionIntent, error) {
	intent := s.newIntent(domain.IntentMint, nil, map[string]string{"to": to})
	if !common.IsHexAddress(to) {
		return s.fail(ctx, intent, chain.InvalidInput("invalid recipient address %q", to))
	}
	addr := common.HexToAddress(to)
	return s.submit(ctx, intent, func(c Contract, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.MintNow(opts, addr)
	})
}

// SetThresholds converts high and low with the pair's feed decimals and
// calls setThresholds. Ordering of high and low is left to the contract.
func (s *Submitter) SetThresholds(ctx context.Context, pair, high, low string) (*domain.TransactionIntent, error) {
	p := normalizePair(pair)
	intent := s.newIntent(domain.IntentSetThresholds, []string{string(p)}, map[string]string{"high": high, "low": low})
	if !p.Valid() {
		return s.fail(ctx, intent, chain.InvalidInput("invalid pair %q", pair))
	}
	contract, _ := s.conn()
	if contract == nil {
		return s.fail(ctx, intent, notConnected())
	}

	decimals := contract.PriceDecimals()
	if contract.Capabilities().Decimals {
		d, err := contract.Decimals(ctx, p)
		if err != nil {
			return s.fail(ctx, intent, chain.ClassifyTxError(err))
		}
		decimals = d
	}
	intent.Params["decimals"] = strconv.Itoa(int(decimals))

	highRaw, err := units.ParseFixed(high, decimals)
	if err != nil {
		return s.fail(ctx, intent, chain.InvalidInput("high threshold: %v", err))
	}
	lowRaw, err := units.ParseFixed(low, decimals)
	if err != nil {
		return s.fail(ctx, intent, chain.InvalidInput("low threshold: %v", err))
	}
	return s.submit(ctx, intent, func(c Contract, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.SetThresholds(opts, p, highRaw, lowRaw)
	})
}

// RegisterFeed registers one aggregator address for pair.
func (s *Submitter) RegisterFeed(ctx context.Context, pair, feed string) (*domain.TransactionIntent, error) {
	p := normalizePair(pair)
	intent := s.newIntent(domain.IntentRegisterFeed, []string{string(p)}, map[string]string{"feed": feed})
	if !p.Valid() {
		return s.fail(ctx, intent, chain.InvalidInput("invalid pair %q", pair))
	}
	if !common.IsHexAddress(feed) {
		return s.fail(ctx, intent, chain.InvalidInput("invalid feed address %q", feed))
	}
	addr := common.HexToAddress(feed)
	return s.submit(ctx, intent, func(c Contract, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.RegisterFeed(opts, p, addr)
	})
}

// BatchRegisterFeeds registers several feeds in one transaction.
func (s *Submitter) BatchRegisterFeeds(ctx context.Context, pairs, feeds []string) (*domain.TransactionIntent, error) {
	params := map[string]string{"feeds": strings.Join(feeds, ",")}
	normalized := make([]domain.Pair, len(pairs))
	symbols := make([]string, len(pairs))
	for i, raw := range pairs {
		normalized[i] = normalizePair(raw)
		symbols[i] = string(normalized[i])
	}
	intent := s.newIntent(domain.IntentBatchSetFeeds, symbols, params)

	if len(pairs) == 0 || len(pairs) != len(feeds) {
		return s.fail(ctx, intent, chain.InvalidInput("need matching non-empty pair and feed lists, got %d and %d", len(pairs), len(feeds)))
	}
	addrs := make([]common.Address, len(feeds))
	for i := range feeds {
		if !normalized[i].Valid() {
			return s.fail(ctx, intent, chain.InvalidInput("invalid pair %q", pairs[i]))
		}
		if !common.IsHexAddress(feeds[i]) {
			return s.fail(ctx, intent, chain.InvalidInput("invalid feed address %q", feeds[i]))
		}
		addrs[i] = common.HexToAddress(feeds[i])
	}
	return s.submit(ctx, intent, func(c Contract, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.BatchSetPriceFeeds(opts, normalized, addrs)
	})
}

// UpdatePriceData asks the contract to refresh its stored price for pair.
func (s *Submitter) UpdatePriceData(ctx context.Context, pair string) (*domain.TransactionIntent, error) {
	p := normalizePair(pair)
	intent := s.newIntent(domain.IntentUpdatePriceData, []string{string(p)}, nil)
	if !p.Valid() {
		return s.fail(ctx, intent, chain.InvalidInput("invalid pair %q", pair))
	}
	return s.submit(ctx, intent, func(c Contract, opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.UpdatePriceData(opts, p)
	})
}

// BootstrapFeeds registers every feed in table whose pair has no feed on the
// contract yet. Several missing feeds go out as one batch when supported.
func (s *Submitter) BootstrapFeeds(ctx context.Context, table map[domain.Pair]string) ([]domain.TransactionIntent, error) {
	contract, _ := s.conn()
	if contract == nil {
		return nil, notConnected()
	}
	caps := contract.Capabilities()
	if !caps.RegisteredFeeds || !(caps.CanRegisterFeed() || caps.BatchSetPriceFeeds) {
		return nil, &chain.TxError{Kind: chain.KindUnsupported, Reason: "contract cannot report or register feeds"}
	}

	pairs := make([]domain.Pair, 0, len(table))
	for p := range table {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i] < pairs[j] })

	var missingPairs, missingFeeds []string
	for _, p := range pairs {
		current, err := contract.RegisteredFeed(ctx, p)
		if err != nil {
			return nil, chain.ClassifyTxError(err)
		}
		if current == (common.Address{}) {
			missingPairs = append(missingPairs, string(p))
			missingFeeds = append(missingFeeds, table[p])
		}
	}
	if len(missingPairs) == 0 {
		s.log.Info("all price feeds already registered")
		return nil, nil
	}

	if caps.BatchSetPriceFeeds && (len(missingPairs) > 1 || !caps.CanRegisterFeed()) {
		intent, err := s.BatchRegisterFeeds(ctx, missingPairs, missingFeeds)
		return []domain.TransactionIntent{*intent}, err
	}
	intents := make([]domain.TransactionIntent, 0, len(missingPairs))
	for i := range missingPairs {
		intent, err := s.RegisterFeed(ctx, missingPairs[i], missingFeeds[i])
		intents = append(intents, *intent)
		if err != nil && !errors.Is(err, ErrPending) {
			return intents, err
		}
	}
	return intents, nil
}

func (s *Submitter) newIntent(kind domain.IntentKind, symbols []string, params map[string]string) *domain.TransactionIntent {
	if params == nil {
		params = map[string]string{}
	}
	now := s.now()
	return &domain.TransactionIntent{
		ID:        s.newID(),
		Kind:      kind,
		Symbols:   symbols,
		Params:    params,
		Status:    domain.IntentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Submitter) submit(ctx context.Context, intent *domain.TransactionIntent, send func(Contract, *bind.TransactOpts) (*types.Transaction, error)) (*domain.TransactionIntent, error) {
	ctx, span := s.tracer.Start(ctx, "action."+string(intent.Kind))
	defer span.End()
	span.SetAttributes(attribute.String("intent.id", intent.ID))

	contract, signer := s.conn()
	if contract == nil {
		return s.fail(ctx, intent, notConnected())
	}
	if signer == nil {
		return s.fail(ctx, intent, chain.ClassifyTxError(chain.ErrNoSigner))
	}
	opts, err := signer.TransactOpts(ctx)
	if err != nil {
		return s.fail(ctx, intent, chain.ClassifyTxError(err))
	}
	s.save(ctx, intent)

	tx, err := send(contract, opts)
	if err != nil {
		txErr := chain.ClassifyTxError(err)
		span.SetStatus(codes.Error, txErr.Error())
		return s.fail(ctx, intent, txErr)
	}
	intent.TxHash = tx.Hash().Hex()
	span.SetAttributes(attribute.String("tx.hash", intent.TxHash))
	s.save(ctx, intent)
	s.log.WithFields(logger.Fields{"intent": intent.ID, "kind": intent.Kind, "tx": intent.TxHash}).Info("transaction broadcast")

	waitCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()
	receipt, err := contract.WaitMined(waitCtx, tx)
	if err != nil {
		s.metrics.ActionFinished(string(intent.Kind), string(domain.IntentPending))
		s.track(context.WithoutCancel(ctx), contract, *intent, tx, opts.From)
		pending := *intent
		return &pending, ErrPending
	}
	return s.finish(ctx, contract, intent, tx, receipt, opts.From)
}

// finish records the mined outcome.
func (s *Submitter) finish(ctx context.Context, contract Contract, intent *domain.TransactionIntent, tx *types.Transaction, receipt *types.Receipt, from common.Address) (*domain.TransactionIntent, error) {
	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := contract.RevertReason(ctx, from, tx, receipt.BlockNumber)
		return s.fail(ctx, intent, chain.Reverted(reason))
	}
	intent.Status = domain.IntentConfirmed
	intent.UpdatedAt = s.now()
	s.save(ctx, intent)
	s.metrics.ActionFinished(string(intent.Kind), string(domain.IntentConfirmed))
	s.log.WithFields(logger.Fields{"intent": intent.ID, "kind": intent.Kind, "tx": intent.TxHash}).Info("transaction confirmed")
	out := *intent
	return &out, nil
}

// track keeps waiting for a broadcast transaction after the caller gave up.
func (s *Submitter) track(ctx context.Context, contract Contract, intent domain.TransactionIntent, tx *types.Transaction, from common.Address) {
	s.tracking.Add(1)
	go func() {
		defer s.tracking.Done()
		ctx, cancel := context.WithTimeout(ctx, trackTimeout)
		defer cancel()
		receipt, err := contract.WaitMined(ctx, tx)
		if err != nil {
			s.log.WithFields(logger.Fields{"intent": intent.ID, "tx": intent.TxHash}).WithError(err).Warn("stopped tracking unconfirmed transaction")
			return
		}
		_, _ = s.finish(ctx, contract, &intent, tx, receipt, from)
	}()
}

func (s *Submitter) fail(ctx context.Context, intent *domain.TransactionIntent, txErr *chain.TxError) (*domain.TransactionIntent, error) {
	intent.Status = domain.IntentFailed
	intent.FailureKind = string(txErr.Kind)
	intent.Reason = txErr.Reason
	intent.UpdatedAt = s.now()
	s.save(ctx, intent)
	s.metrics.ActionFinished(string(intent.Kind), string(txErr.Kind))

	entry := s.log.WithFields(logger.Fields{"intent": intent.ID, "kind": intent.Kind, "failure": txErr.Kind})
	if txErr.Kind == chain.KindRPC {
		entry.WithError(txErr).Error("transaction failed")
	} else {
		entry.WithError(txErr).Warn("transaction failed")
	}
	out := *intent
	return &out, txErr
}

func (s *Submitter) save(ctx context.Context, intent *domain.TransactionIntent) {
	if err := s.store.SaveIntent(context.WithoutCancel(ctx), *intent); err != nil {
		s.log.WithField("intent", intent.ID).WithError(err).Warn("persist intent failed")
	}
}

func normalizePair(raw string) domain.Pair {
	return domain.Pair(strings.ToUpper(strings.TrimSpace(raw)))
}

func notConnected() *chain.TxError {
	return &chain.TxError{Kind: chain.KindRPC, Reason: "chain client not connected"}
}
