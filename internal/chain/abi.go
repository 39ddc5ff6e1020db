package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// oracleABI covers both deployed revisions of the price monitoring contract.
// The capability probe decides which of these functions a deployment exposes.
const oracleABI = `[
  {"type":"function","name":"getPriceInUSD","stateMutability":"view","inputs":[{"name":"pair","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getDisplayPrice","stateMutability":"view","inputs":[{"name":"pair","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getDecimals","stateMutability":"view","inputs":[{"name":"pair","type":"string"}],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"ethMintThreshold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"isThresholdActive","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"highThresholds","stateMutability":"view","inputs":[{"name":"","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"lowThresholds","stateMutability":"view","inputs":[{"name":"","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"isAboveHighThreshold","stateMutability":"view","inputs":[{"name":"pair","type":"string"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"isBelowLowThreshold","stateMutability":"view","inputs":[{"name":"pair","type":"string"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"registeredFeeds","stateMutability":"view","inputs":[{"name":"","type":"string"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"admin","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"updatePriceData","stateMutability":"nonpayable","inputs":[{"name":"pair","type":"string"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"mintNow","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"}],"outputs":[]},
  {"type":"function","name":"setThresholds","stateMutability":"nonpayable","inputs":[{"name":"pair","type":"string"},{"name":"high","type":"uint256"},{"name":"low","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"registerFeed","stateMutability":"nonpayable","inputs":[{"name":"pair","type":"string"},{"name":"feed","type":"address"}],"outputs":[]},
  {"type":"function","name":"setPriceFeed","stateMutability":"nonpayable","inputs":[{"name":"pair","type":"string"},{"name":"feed","type":"address"}],"outputs":[]},
  {"type":"function","name":"batchSetPriceFeeds","stateMutability":"nonpayable","inputs":[{"name":"pairs","type":"string[]"},{"name":"feeds","type":"address[]"}],"outputs":[]},
  {"type":"event","name":"ThresholdCrossed","anonymous":false,"inputs":[
    {"name":"symbol","type":"string","indexed":false},
    {"name":"price","type":"uint256","indexed":false},
    {"name":"crossedHigh","type":"bool","indexed":false},
    {"name":"crossedLow","type":"bool","indexed":false}
  ]}
]`

// Method names used by the adapter.
const (
	methodPriceInUSD      = "getPriceInUSD"
	methodDisplayPrice    = "getDisplayPrice"
	methodDecimals        = "getDecimals"
	methodMintThreshold   = "ethMintThreshold"
	methodThresholdActive = "isThresholdActive"
	methodHighThresholds  = "highThresholds"
	methodLowThresholds   = "lowThresholds"
	methodIsAboveHigh     = "isAboveHighThreshold"
	methodIsBelowLow      = "isBelowLowThreshold"
	methodRegisteredFeeds = "registeredFeeds"
	methodAdmin           = "admin"
	methodUpdatePriceData = "updatePriceData"
	methodMintNow         = "mintNow"
	methodSetThresholds   = "setThresholds"
	methodRegisterFeed    = "registerFeed"
	methodSetPriceFeed    = "setPriceFeed"
	methodBatchSetFeeds   = "batchSetPriceFeeds"
	eventThresholdCrossed = "ThresholdCrossed"
)

var parsedABI = mustParseABI(oracleABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid oracle abi: " + err.Error())
	}
	return parsed
}

// OracleABI returns the parsed contract interface.
func OracleABI() abi.ABI {
	return parsedABI
}
