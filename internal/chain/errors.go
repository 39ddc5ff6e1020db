package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrWrongChain  = errors.New("connected to unexpected chain")
	ErrNoContract  = errors.New("no contract code at address")
	ErrNoSigner    = errors.New("no signer configured")
	ErrUnsupported = errors.New("operation not supported by deployed contract")
)

// TxErrorKind classifies a failed write.
type TxErrorKind string

const (
	KindUserRejected TxErrorKind = "user_rejected"
	KindReverted     TxErrorKind = "reverted"
	KindRPC          TxErrorKind = "rpc"
	KindInvalidInput TxErrorKind = "invalid_input"
	KindNoSigner     TxErrorKind = "no_signer"
	KindUnsupported  TxErrorKind = "unsupported"
)

// userRejectedCode is the EIP-1193 provider error code for a rejected request.
const userRejectedCode = 4001

// TxError is the typed failure returned by every write operation.
type TxError struct {
	Kind   TxErrorKind
	Reason string
	Err    error
}

func (e *TxError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// InvalidInput builds a TxError for a request rejected before submission.
func InvalidInput(format string, args ...any) *TxError {
	return &TxError{Kind: KindInvalidInput, Reason: fmt.Sprintf(format, args...)}
}

// Reverted builds a TxError for a mined transaction that failed.
func Reverted(reason string) *TxError {
	if reason == "" {
		reason = "transaction reverted"
	}
	return &TxError{Kind: KindReverted, Reason: reason}
}

var rejectionMarkers = []string{
	"user rejected",
	"user denied",
	"rejected by user",
	"request denied",
	"denied transaction",
	"declined",
}

const revertMarker = "execution reverted"

// ClassifyTxError maps signer, node and contract failures onto a TxError.
// Errors that already carry a TxError are returned unchanged.
func ClassifyTxError(err error) *TxError {
	if err == nil {
		return nil
	}
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr
	}
	switch {
	case errors.Is(err, ErrNoSigner):
		return &TxError{Kind: KindNoSigner, Reason: err.Error(), Err: err}
	case errors.Is(err, ErrUnsupported):
		return &TxError{Kind: KindUnsupported, Reason: err.Error(), Err: err}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return &TxError{Kind: KindUserRejected, Reason: rpcErr.Error(), Err: err}
	}

	if reason, ok := revertReason(err); ok {
		return &TxError{Kind: KindReverted, Reason: reason, Err: err}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return &TxError{Kind: KindUserRejected, Reason: err.Error(), Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TxError{Kind: KindRPC, Reason: "request cancelled: " + err.Error(), Err: err}
	}
	return &TxError{Kind: KindRPC, Reason: err.Error(), Err: err}
}

// revertReason extracts the revert string from a node error, decoding the
// Error(string) payload when the node returned raw revert data.
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if hexData, ok := dataErr.ErrorData().(string); ok {
			if raw, decodeErr := hexutil.Decode(hexData); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return reason, true
				}
			}
		}
	}
	msg := err.Error()
	idx := strings.Index(strings.ToLower(msg), revertMarker)
	if idx < 0 {
		return "", false
	}
	reason := strings.TrimSpace(msg[idx+len(revertMarker):])
	reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
	if reason == "" {
		reason = "execution reverted"
	}
	return reason, true
}
