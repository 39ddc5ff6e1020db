package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	SignerNone     = "none"
	SignerKey      = "key"
	SignerExternal = "external"
)

// Signer produces transaction options for writes. Signing may involve an
// external approval step that the user can decline.
type Signer interface {
	Address() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

type SignerConfig struct {
	Kind       string
	PrivateKey string
	Endpoint   string
}

// NewSigner builds the configured signer. Kind "none" yields a nil signer.
func NewSigner(cfg SignerConfig, chainID *big.Int) (Signer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", SignerNone:
		return nil, nil
	case SignerKey:
		return NewKeySigner(cfg.PrivateKey, chainID)
	case SignerExternal:
		return NewExternalSigner(cfg.Endpoint, chainID)
	default:
		return nil, fmt.Errorf("unknown signer kind %q", cfg.Kind)
	}
}

type keySigner struct {
	opts bind.TransactOpts
}

// NewKeySigner signs locally with a hex encoded secp256k1 key.
func NewKeySigner(hexKey string, chainID *big.Int) (Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("build keyed transactor: %w", err)
	}
	return &keySigner{opts: *opts}, nil
}

func (s *keySigner) Address() common.Address {
	return s.opts.From
}

func (s *keySigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts := s.opts
	opts.Context = ctx
	return &opts, nil
}

type externalSigner struct {
	ext     *external.ExternalSigner
	account accounts.Account
	chainID *big.Int
}

// NewExternalSigner delegates signing to a clef compatible endpoint. Each
// transaction is approved or declined on the signer's side.
func NewExternalSigner(endpoint string, chainID *big.Int) (Signer, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("external signer endpoint is empty")
	}
	ext, err := external.NewExternalSigner(endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect external signer: %w", err)
	}
	accts := ext.Accounts()
	if len(accts) == 0 {
		return nil, fmt.Errorf("external signer at %s exposes no accounts", endpoint)
	}
	return &externalSigner{ext: ext, account: accts[0], chainID: chainID}, nil
}

func (s *externalSigner) Address() common.Address {
	return s.account.Address
}

func (s *externalSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{
		From:    s.account.Address,
		Context: ctx,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != s.account.Address {
				return nil, bind.ErrNotAuthorized
			}
			return s.ext.SignTx(s.account, tx, s.chainID)
		},
	}, nil
}
