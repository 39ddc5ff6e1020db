// Package chain connects to the oracle contract: it validates the network,
// probes the deployed contract once and exposes a typed adapter over it.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the node surface the adapter needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Config describes the network and contract to connect to.
type Config struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string
	PriceDecimals   uint8
	DisplayDecimals uint8
}

// Client is a validated connection to the oracle contract.
type Client struct {
	backend Backend
	chainID *big.Int
	oracle  *Oracle
	closeFn func()
}

var dialBackend = func(ctx context.Context, rawURL string) (Backend, func(), error) {
	c, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// Dial opens an RPC connection and validates it with Connect.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, fmt.Errorf("dial chain: rpc url is empty")
	}
	backend, closeFn, err := dialBackend(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain %s: %w", cfg.RPCURL, err)
	}
	client, err := Connect(ctx, backend, cfg)
	if err != nil {
		closeFn()
		return nil, err
	}
	client.closeFn = closeFn
	return client, nil
}

// Connect checks the chain id, confirms contract code exists at the
// configured address and probes its capabilities.
func Connect(ctx context.Context, backend Backend, cfg Config) (*Client, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	address := common.HexToAddress(cfg.ContractAddress)

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Cmp(big.NewInt(cfg.ChainID)) != 0 {
		return nil, fmt.Errorf("%w: node reports %s, expected %d", ErrWrongChain, chainID, cfg.ChainID)
	}

	code, err := backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("read code at %s: %w", address.Hex(), err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: %s on chain %s", ErrNoContract, address.Hex(), chainID)
	}

	caps := ProbeCapabilities(code)
	if !caps.CanReadPrice() {
		return nil, fmt.Errorf("%w: %s exposes no price getter", ErrUnsupported, address.Hex())
	}

	priceDecimals := cfg.PriceDecimals
	if priceDecimals == 0 {
		priceDecimals = DefaultPriceDecimals
	}
	displayDecimals := cfg.DisplayDecimals
	if displayDecimals == 0 {
		displayDecimals = DefaultDisplayDecimals
	}

	return &Client{
		backend: backend,
		chainID: chainID,
		oracle:  NewOracle(backend, address, caps, priceDecimals, displayDecimals),
	}, nil
}

func (c *Client) Oracle() *Oracle {
	return c.oracle
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

func (c *Client) Backend() Backend {
	return c.backend
}

func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}
