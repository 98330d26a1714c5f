package archanova

import (
	"math/big"

	"github.com/welthee/cryptowallet/transaction"
)

// DefaultGasLimit is assumed when the relayer does not return a gas amount.
const DefaultGasLimit = 500000

// Estimate is a parsed relayer estimate. GasToken and GasTokenCost are only
// set when the relayer supports paying gas with a token.
type Estimate struct {
	GasAmount    *big.Int
	GasPrice     *big.Int
	Cost         *big.Int
	GasTokenCost *big.Int
	GasToken     *transaction.GasToken
}

// FormatEstimate converts a relayer estimate. A nil payload yields a zero
// cost estimate. fallbackGasPrice is used when the relayer returned no gas price.
func FormatEstimate(payload *EstimatePayload, fallbackGasPrice *big.Int) Estimate {
	if payload == nil {
		return Estimate{
			GasAmount: big.NewInt(0),
			GasPrice:  big.NewInt(0),
			Cost:      big.NewInt(0),
		}
	}

	gasAmount := payload.GasFee
	if gasAmount == nil {
		gasAmount = big.NewInt(DefaultGasLimit)
	}
	gasPrice := payload.GasPrice
	if gasPrice == nil {
		gasPrice = fallbackGasPrice
	}
	if gasPrice == nil {
		gasPrice = big.NewInt(0)
	}

	estimate := Estimate{
		GasAmount: gasAmount,
		GasPrice:  gasPrice,
		Cost:      new(big.Int).Mul(gasPrice, gasAmount),
	}
	if payload.GasTokenSupported && payload.GasToken != nil {
		estimate.GasToken = payload.GasToken
		estimate.GasTokenCost = payload.GasTokenCost
		if estimate.GasTokenCost == nil {
			estimate.GasTokenCost = big.NewInt(0)
		}
	}
	return estimate
}

func (e Estimate) FeeInfo() transaction.FeeInfo {
	if e.GasToken != nil && e.GasTokenCost != nil && e.GasTokenCost.Sign() > 0 {
		return transaction.FeeInfo{
			Fee:      e.GasTokenCost,
			GasPrice: e.GasPrice,
			GasToken: e.GasToken,
		}
	}
	return transaction.FeeInfo{
		Fee:      e.Cost,
		GasPrice: e.GasPrice,
	}
}
