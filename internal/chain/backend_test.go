package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend answers contract calls by ABI-decoding the selector and
// packing whatever the registered handler returns.
type fakeBackend struct {
	mu       sync.Mutex
	chainID  *big.Int
	code     []byte
	handlers map[string]func(args []interface{}) ([]interface{}, error)
	estimate func(method string) error
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	logs     []types.Log
	head     uint64
	headErr  error
}

func newFakeBackend(methods ...string) *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(84532),
		code:     fakeCode(methods...),
		handlers: make(map[string]func(args []interface{}) ([]interface{}, error)),
		receipts: make(map[common.Hash]*types.Receipt),
		head:     100,
	}
}

// fakeCode builds bytecode that the probe recognizes for the given methods
// and events.
func fakeCode(names ...string) []byte {
	code := []byte{0x60, 0x80, 0x60, 0x40, 0x52}
	for _, name := range names {
		if m, ok := parsedABI.Methods[name]; ok {
			code = append(code, pushSelector(m.ID)...)
			code = append(code, 0x14)
			continue
		}
		if ev, ok := parsedABI.Events[name]; ok {
			code = append(code, pushTopic(ev.ID)...)
		}
	}
	return code
}

func (f *fakeBackend) on(method string, h func(args []interface{}) ([]interface{}, error)) {
	f.handlers[method] = h
}

func (f *fakeBackend) returns(method string, values ...interface{}) {
	f.on(method, func([]interface{}) ([]interface{}, error) { return values, nil })
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return f.code, nil
}

func (f *fakeBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return f.code, nil
}

func (f *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if len(call.Data) < 4 {
		return nil, errors.New("short call data")
	}
	method, err := parsedABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	h, ok := f.handlers[method.Name]
	if !ok {
		return nil, fmt.Errorf("execution reverted: %s not stubbed", method.Name)
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	out, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &types.Header{Number: new(big.Int).SetUint64(f.head), BaseFee: big.NewInt(1)}, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	if f.estimate != nil && len(call.Data) >= 4 {
		method, err := parsedABI.MethodById(call.Data[:4])
		if err != nil {
			return 0, err
		}
		if err := f.estimate(method.Name); err != nil {
			return 0, err
		}
	}
	return 100000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	for _, tx := range f.sent {
		if tx.Hash() == hash {
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(int64(f.head))}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber >= q.FromBlock.Uint64() && l.BlockNumber <= q.ToBlock.Uint64() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("notifications not supported")
}

func (f *fakeBackend) lastSent() *types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// thresholdLog packs a ThresholdCrossed log emitted by address.
func thresholdLog(address common.Address, block uint64, index uint, symbol string, price int64, high, low bool) types.Log {
	ev := parsedABI.Events[eventThresholdCrossed]
	data, err := ev.Inputs.NonIndexed().Pack(symbol, big.NewInt(price), high, low)
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address:     address,
		Topics:      []common.Hash{ev.ID},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block*1000) + int64(index))),
		Index:       index,
	}
}
