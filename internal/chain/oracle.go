package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/units"
)

const (
	// DefaultPriceDecimals is the scale of getPriceInUSD on the deployed monitor.
	DefaultPriceDecimals uint8 = 8
	// DefaultDisplayDecimals is the scale of getDisplayPrice.
	DefaultDisplayDecimals uint8 = 2
)

// Quote is a raw fixed-point contract value together with its scale.
type Quote struct {
	Raw      *big.Int
	Decimals uint8
}

// Display renders the quote with two fractional digits.
func (q Quote) Display() string {
	return units.FormatDisplay(q.Raw, q.Decimals)
}

// ThresholdCrossed is a decoded ThresholdCrossed log.
type ThresholdCrossed struct {
	Symbol      string
	Price       *big.Int
	CrossedHigh bool
	CrossedLow  bool
	Raw         types.Log
}

// Oracle is the typed adapter over the deployed contract. Which getter backs
// Price and which setter backs RegisterFeed is fixed by the capability probe.
type Oracle struct {
	backend         Backend
	address         common.Address
	contract        *bind.BoundContract
	caps            Capabilities
	priceDecimals   uint8
	displayDecimals uint8
}

func NewOracle(backend Backend, address common.Address, caps Capabilities, priceDecimals, displayDecimals uint8) *Oracle {
	return &Oracle{
		backend:         backend,
		address:         address,
		contract:        bind.NewBoundContract(address, parsedABI, backend, backend, backend),
		caps:            caps,
		priceDecimals:   priceDecimals,
		displayDecimals: displayDecimals,
	}
}

func (o *Oracle) Address() common.Address {
	return o.address
}

func (o *Oracle) Capabilities() Capabilities {
	return o.caps
}

func (o *Oracle) PriceDecimals() uint8 {
	return o.priceDecimals
}

func (o *Oracle) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := o.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	return out, nil
}

func (o *Oracle) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := o.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (o *Oracle) callBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	out, err := o.call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (o *Oracle) require(ok bool, method string) error {
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, method)
	}
	return nil
}

// Price reads the pair price through the getter selected at connect time.
func (o *Oracle) Price(ctx context.Context, pair domain.Pair) (Quote, error) {
	if o.caps.PriceInUSD {
		return o.PriceInUSD(ctx, pair)
	}
	return o.DisplayPrice(ctx, pair)
}

func (o *Oracle) PriceInUSD(ctx context.Context, pair domain.Pair) (Quote, error) {
	if err := o.require(o.caps.PriceInUSD, methodPriceInUSD); err != nil {
		return Quote{}, err
	}
	raw, err := o.callBig(ctx, methodPriceInUSD, string(pair))
	if err != nil {
		return Quote{}, err
	}
	return Quote{Raw: raw, Decimals: o.priceDecimals}, nil
}

func (o *Oracle) DisplayPrice(ctx context.Context, pair domain.Pair) (Quote, error) {
	if err := o.require(o.caps.DisplayPrice, methodDisplayPrice); err != nil {
		return Quote{}, err
	}
	raw, err := o.callBig(ctx, methodDisplayPrice, string(pair))
	if err != nil {
		return Quote{}, err
	}
	return Quote{Raw: raw, Decimals: o.displayDecimals}, nil
}

// Decimals returns the feed decimals for pair, used to scale thresholds.
func (o *Oracle) Decimals(ctx context.Context, pair domain.Pair) (uint8, error) {
	if err := o.require(o.caps.Decimals, methodDecimals); err != nil {
		return 0, err
	}
	out, err := o.call(ctx, methodDecimals, string(pair))
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

func (o *Oracle) MintThreshold(ctx context.Context) (Quote, error) {
	if err := o.require(o.caps.MintThreshold, methodMintThreshold); err != nil {
		return Quote{}, err
	}
	raw, err := o.callBig(ctx, methodMintThreshold)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Raw: raw, Decimals: o.priceDecimals}, nil
}

func (o *Oracle) ThresholdActive(ctx context.Context) (bool, error) {
	if err := o.require(o.caps.ThresholdActive, methodThresholdActive); err != nil {
		return false, err
	}
	return o.callBool(ctx, methodThresholdActive)
}

func (o *Oracle) HighThreshold(ctx context.Context, pair domain.Pair) (*big.Int, error) {
	if err := o.require(o.caps.PairThresholds, methodHighThresholds); err != nil {
		return nil, err
	}
	return o.callBig(ctx, methodHighThresholds, string(pair))
}

func (o *Oracle) LowThreshold(ctx context.Context, pair domain.Pair) (*big.Int, error) {
	if err := o.require(o.caps.PairThresholds, methodLowThresholds); err != nil {
		return nil, err
	}
	return o.callBig(ctx, methodLowThresholds, string(pair))
}

func (o *Oracle) IsAboveHigh(ctx context.Context, pair domain.Pair) (bool, error) {
	if err := o.require(o.caps.PairThresholds, methodIsAboveHigh); err != nil {
		return false, err
	}
	return o.callBool(ctx, methodIsAboveHigh, string(pair))
}

func (o *Oracle) IsBelowLow(ctx context.Context, pair domain.Pair) (bool, error) {
	if err := o.require(o.caps.PairThresholds, methodIsBelowLow); err != nil {
		return false, err
	}
	return o.callBool(ctx, methodIsBelowLow, string(pair))
}

// RegisteredFeed returns the feed address for pair, or the zero address.
func (o *Oracle) RegisteredFeed(ctx context.Context, pair domain.Pair) (common.Address, error) {
	if err := o.require(o.caps.RegisteredFeeds, methodRegisteredFeeds); err != nil {
		return common.Address{}, err
	}
	out, err := o.call(ctx, methodRegisteredFeeds, string(pair))
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (o *Oracle) Admin(ctx context.Context) (common.Address, error) {
	if err := o.require(o.caps.Admin, methodAdmin); err != nil {
		return common.Address{}, err
	}
	out, err := o.call(ctx, methodAdmin)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (o *Oracle) transact(opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	if opts == nil {
		return nil, ErrNoSigner
	}
	tx, err := o.contract.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	return tx, nil
}

func (o *Oracle) UpdatePriceData(opts *bind.TransactOpts, pair domain.Pair) (*types.Transaction, error) {
	if err := o.require(o.caps.UpdatePriceData, methodUpdatePriceData); err != nil {
		return nil, err
	}
	return o.transact(opts, methodUpdatePriceData, string(pair))
}

func (o *Oracle) MintNow(opts *bind.TransactOpts, to common.Address) (*types.Transaction, error) {
	if err := o.require(o.caps.MintNow, methodMintNow); err != nil {
		return nil, err
	}
	return o.transact(opts, methodMintNow, to)
}

func (o *Oracle) SetThresholds(opts *bind.TransactOpts, pair domain.Pair, high, low *big.Int) (*types.Transaction, error) {
	if err := o.require(o.caps.SetThresholds, methodSetThresholds); err != nil {
		return nil, err
	}
	return o.transact(opts, methodSetThresholds, string(pair), high, low)
}

// RegisterFeed uses registerFeed when deployed, otherwise setPriceFeed.
func (o *Oracle) RegisterFeed(opts *bind.TransactOpts, pair domain.Pair, feed common.Address) (*types.Transaction, error) {
	switch {
	case o.caps.RegisterFeed:
		return o.transact(opts, methodRegisterFeed, string(pair), feed)
	case o.caps.SetPriceFeed:
		return o.transact(opts, methodSetPriceFeed, string(pair), feed)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, methodRegisterFeed)
	}
}

func (o *Oracle) BatchSetPriceFeeds(opts *bind.TransactOpts, pairs []domain.Pair, feeds []common.Address) (*types.Transaction, error) {
	if err := o.require(o.caps.BatchSetPriceFeeds, methodBatchSetFeeds); err != nil {
		return nil, err
	}
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = string(p)
	}
	return o.transact(opts, methodBatchSetFeeds, names, feeds)
}

// WaitMined blocks until tx is mined or ctx is done.
func (o *Oracle) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, o.backend, tx)
}

// RevertReason replays a failed transaction at its block to recover the
// revert string. It returns "" when the replay succeeds.
func (o *Oracle) RevertReason(ctx context.Context, from common.Address, tx *types.Transaction, blockNumber *big.Int) string {
	msg := ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}
	if _, err := o.backend.CallContract(ctx, msg, blockNumber); err != nil {
		if reason, ok := revertReason(err); ok {
			return reason
		}
		return err.Error()
	}
	return ""
}

// HeadBlock returns the latest block number.
func (o *Oracle) HeadBlock(ctx context.Context) (uint64, error) {
	header, err := o.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("read head block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// ThresholdCrossedLogs returns decoded ThresholdCrossed logs in [from, to].
func (o *Oracle) ThresholdCrossedLogs(ctx context.Context, from, to uint64) ([]ThresholdCrossed, error) {
	if err := o.require(o.caps.ThresholdCrossedEvent, eventThresholdCrossed); err != nil {
		return nil, err
	}
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{o.address},
		Topics:    [][]common.Hash{{parsedABI.Events[eventThresholdCrossed].ID}},
	}
	logs, err := o.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter %s logs: %w", eventThresholdCrossed, err)
	}
	events := make([]ThresholdCrossed, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		var ev ThresholdCrossed
		if err := o.contract.UnpackLog(&ev, eventThresholdCrossed, l); err != nil {
			return nil, fmt.Errorf("decode %s log %s:%d: %w", eventThresholdCrossed, l.TxHash.Hex(), l.Index, err)
		}
		ev.Raw = l
		events = append(events, ev)
	}
	return events, nil
}
