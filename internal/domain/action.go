package domain

import (
	"strconv"
	"time"
)

type IntentKind string

const (
	IntentMint            IntentKind = "mint"
	IntentSetThresholds   IntentKind = "set_thresholds"
	IntentRegisterFeed    IntentKind = "register_feed"
	IntentBatchSetFeeds   IntentKind = "batch_set_feeds"
	IntentUpdatePriceData IntentKind = "update_price_data"
)

type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentConfirmed IntentStatus = "confirmed"
	IntentFailed    IntentStatus = "failed"
)

// TransactionIntent records one requested write and its outcome.
type TransactionIntent struct {
	ID          string            `json:"id"`
	Kind        IntentKind        `json:"kind"`
	Symbols     []string          `json:"symbols,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Status      IntentStatus      `json:"status"`
	FailureKind string            `json:"failure_kind,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	TxHash      string            `json:"tx_hash,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ThresholdEvent is a decoded ThresholdCrossed log.
type ThresholdEvent struct {
	Symbol      string    `json:"symbol"`
	Price       string    `json:"price"`
	CrossedHigh bool      `json:"crossed_high"`
	CrossedLow  bool      `json:"crossed_low"`
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint      `json:"log_index"`
	BlockNumber uint64    `json:"block_number"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Key identifies the log an event was decoded from.
func (e ThresholdEvent) Key() string {
	return e.TxHash + ":" + strconv.FormatUint(uint64(e.LogIndex), 10)
}
