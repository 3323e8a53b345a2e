package ethcall

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// signature lists the input and output types of a view method.
type signature struct {
	in, out []string
}

// Every contract method the indexer reads. Names that exist on several
// contracts (decimals, feeDestination) share one signature.
var signatures = map[string]signature{
	// ERC20
	"symbol":   {nil, []string{"string"}},
	"name":     {nil, []string{"string"}},
	"decimals": {nil, []string{"uint8"}},

	// ACO token
	"acoFee":                      {nil, []string{"uint256"}},
	"feeDestination":              {nil, []string{"address"}},
	"maxExercisedAccounts":        {nil, []string{"uint256"}},
	"currentCollateralizedTokens": {[]string{"address"}, []string{"uint256"}},

	// ACO pool
	"chiToken":                        {nil, []string{"address"}},
	"strategy":                        {nil, []string{"address"}},
	"baseVolatility":                  {nil, []string{"uint256"}},
	"assetConverter":                  {nil, []string{"address"}},
	"maximumOpenAco":                  {nil, []string{"uint256"}},
	"minExpiration":                   {nil, []string{"uint256"}},
	"maxExpiration":                   {nil, []string{"uint256"}},
	"withdrawOpenPositionPenalty":     {nil, []string{"uint256"}},
	"underlyingPriceAdjustPercentage": {nil, []string{"uint256"}},
	"fee":                             {nil, []string{"uint256"}},
	"tolerancePriceAbove":             {nil, []string{"uint256"}},
	"tolerancePriceBelow":             {nil, []string{"uint256"}},
	"protocolConfig": {nil, []string{
		"uint16", "uint256", "uint256", "uint256", "uint256", "address", "address",
	}},
	"acoPermissionConfig": {nil, []string{
		"uint256", "uint256", "uint256", "uint256", "uint256", "uint256",
	}},
	"lendingPool":         {nil, []string{"address"}},
	"lendingPoolReferral": {nil, []string{"uint16"}},
	"admin":               {nil, []string{"address"}},
	"poolAdmin":           {nil, []string{"address"}},
	"getGeneralData": {nil, []string{
		"uint256", "uint256", "uint256", "uint256", "uint256", "uint256",
	}},
	"canSwap": {[]string{"address"}, []string{"bool"}},

	// Pool strategy
	"getOptionPrice": {
		[]string{"uint256", "address", "address", "bool", "uint256", "uint256", "uint256"},
		[]string{"uint256"},
	},

	// Asset converter helper, aggregator proxy, aggregator
	"getAggregator":   {[]string{"address", "address"}, []string{"address"}},
	"aggregator":      {nil, []string{"address"}},
	"latestAnswer":    {nil, []string{"int256"}},
	"latestTimestamp": {nil, []string{"uint256"}},
}

// methods is the parsed form of signatures.
var methods = mustBuildMethods(signatures)

func mustBuildMethods(sigs map[string]signature) map[string]abi.Method {
	out := make(map[string]abi.Method, len(sigs))
	for name, sig := range sigs {
		out[name] = abi.NewMethod(name, name, abi.Function, "view", true, false,
			mustArguments(sig.in), mustArguments(sig.out))
	}
	return out
}

func mustArguments(types []string) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(fmt.Sprintf("ethcall: bad abi type %q: %v", t, err))
		}
		args[i] = abi.Argument{Name: fmt.Sprintf("v%d", i), Type: typ}
	}
	return args
}
