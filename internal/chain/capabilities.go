package chain

import (
	"bytes"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
)

// Capabilities records which contract functions a deployment exposes. It is
// computed once from the deployed bytecode when the client connects.
type Capabilities struct {
	PriceInUSD            bool `json:"price_in_usd"`
	DisplayPrice          bool `json:"display_price"`
	Decimals              bool `json:"decimals"`
	MintThreshold         bool `json:"mint_threshold"`
	ThresholdActive       bool `json:"threshold_active"`
	PairThresholds        bool `json:"pair_thresholds"`
	RegisteredFeeds       bool `json:"registered_feeds"`
	Admin                 bool `json:"admin"`
	UpdatePriceData       bool `json:"update_price_data"`
	MintNow               bool `json:"mint_now"`
	SetThresholds         bool `json:"set_thresholds"`
	RegisterFeed          bool `json:"register_feed"`
	SetPriceFeed          bool `json:"set_price_feed"`
	BatchSetPriceFeeds    bool `json:"batch_set_price_feeds"`
	ThresholdCrossedEvent bool `json:"threshold_crossed_event"`
}

// CanReadPrice reports whether either price getter is available.
func (c Capabilities) CanReadPrice() bool {
	return c.PriceInUSD || c.DisplayPrice
}

// CanRegisterFeed reports whether a single feed can be registered.
func (c Capabilities) CanRegisterFeed() bool {
	return c.RegisterFeed || c.SetPriceFeed
}

// String lists the available functions, for logging.
func (c Capabilities) String() string {
	var names []string
	add := func(ok bool, name string) {
		if ok {
			names = append(names, name)
		}
	}
	add(c.PriceInUSD, methodPriceInUSD)
	add(c.DisplayPrice, methodDisplayPrice)
	add(c.Decimals, methodDecimals)
	add(c.MintThreshold, methodMintThreshold)
	add(c.ThresholdActive, methodThresholdActive)
	add(c.PairThresholds, "pairThresholds")
	add(c.RegisteredFeeds, methodRegisteredFeeds)
	add(c.Admin, methodAdmin)
	add(c.UpdatePriceData, methodUpdatePriceData)
	add(c.MintNow, methodMintNow)
	add(c.SetThresholds, methodSetThresholds)
	add(c.RegisterFeed, methodRegisterFeed)
	add(c.SetPriceFeed, methodSetPriceFeed)
	add(c.BatchSetPriceFeeds, methodBatchSetFeeds)
	add(c.ThresholdCrossedEvent, eventThresholdCrossed)
	return strings.Join(names, ",")
}

// ProbeCapabilities scans runtime bytecode for the dispatcher entries of each
// known function. Solidity dispatchers compare the call selector against a
// PUSH4 constant, and emit events with the topic pushed as a PUSH32 constant.
func ProbeCapabilities(code []byte) Capabilities {
	has := func(method string) bool {
		m, ok := parsedABI.Methods[method]
		if !ok {
			return false
		}
		return bytes.Contains(code, pushSelector(m.ID))
	}
	hasEvent := func(name string) bool {
		ev, ok := parsedABI.Events[name]
		if !ok {
			return false
		}
		return bytes.Contains(code, pushTopic(ev.ID))
	}
	return Capabilities{
		PriceInUSD:            has(methodPriceInUSD),
		DisplayPrice:          has(methodDisplayPrice),
		Decimals:              has(methodDecimals),
		MintThreshold:         has(methodMintThreshold),
		ThresholdActive:       has(methodThresholdActive),
		PairThresholds:        has(methodHighThresholds) && has(methodLowThresholds) && has(methodIsAboveHigh) && has(methodIsBelowLow),
		RegisteredFeeds:       has(methodRegisteredFeeds),
		Admin:                 has(methodAdmin),
		UpdatePriceData:       has(methodUpdatePriceData),
		MintNow:               has(methodMintNow),
		SetThresholds:         has(methodSetThresholds),
		RegisterFeed:          has(methodRegisterFeed),
		SetPriceFeed:          has(methodSetPriceFeed),
		BatchSetPriceFeeds:    has(methodBatchSetFeeds),
		ThresholdCrossedEvent: hasEvent(eventThresholdCrossed),
	}
}

func pushSelector(id []byte) []byte {
	return append([]byte{byte(vm.PUSH4)}, id...)
}

func pushTopic(topic common.Hash) []byte {
	return append([]byte{byte(vm.PUSH32)}, topic.Bytes()...)
}
