package transaction

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/welthee/cryptowallet/chain"
)

var ErrInvalidFeeInfo = errors.New("failed to parse fee info")

// GasToken is an asset used to pay transaction fees instead of the native asset.
type GasToken struct {
	Address  common.Address
	Symbol   string
	Decimals int32
}

// FeeInfo is the normalized shape of every backend fee estimate.
type FeeInfo struct {
	// total fee, denominated in the gas token when one is set
	Fee      *big.Int
	GasPrice *big.Int
	GasToken *GasToken
}

// FeeEstimate is implemented by the raw estimate of each wallet backend.
type FeeEstimate interface {
	FeeInfo() FeeInfo
}

// PaysWithGasToken reports whether the fee is paid in a designated gas token.
func (f FeeInfo) PaysWithGasToken() bool {
	return f.GasToken != nil && !chain.IsNativeAsset(f.GasToken.Address)
}

// GasLimit derives the gas limit implied by the fee and gas price.
func (f FeeInfo) GasLimit() (uint64, error) {
	if f.Fee == nil || f.GasPrice == nil || f.GasPrice.Sign() <= 0 {
		return 0, ErrInvalidFeeInfo
	}
	return new(big.Int).Div(f.Fee, f.GasPrice).Uint64(), nil
}

// GasTokenOrNative returns the explicit gas token, falling back to the chain
// native asset metadata.
func GasTokenOrNative(c chain.Chain, token *GasToken) GasToken {
	if token != nil && !chain.IsNativeAsset(token.Address) {
		return *token
	}
	native := chain.NativeAsset(c)
	return GasToken{
		Address:  native.Address,
		Symbol:   native.Symbol,
		Decimals: native.Decimals,
	}
}

// FormatFee returns the fee in units of the asset it is paid with.
func FormatFee(c chain.Chain, info FeeInfo) decimal.Decimal {
	token := GasTokenOrNative(c, info.GasToken)
	return ToDecimal(info.Fee, token.Decimals)
}

// NormalizeFee converts any backend estimate into its fee amount and the asset paying it.
func NormalizeFee(c chain.Chain, estimate FeeEstimate) (decimal.Decimal, GasToken) {
	if estimate == nil {
		return decimal.Zero, GasTokenOrNative(c, nil)
	}
	info := estimate.FeeInfo()
	return FormatFee(c, info), GasTokenOrNative(c, info.GasToken)
}

// IsEnoughBalanceForFee reports whether balance, expressed in the paying asset, covers the fee.
func IsEnoughBalanceForFee(c chain.Chain, balance decimal.Decimal, info FeeInfo) bool {
	return balance.GreaterThanOrEqual(FormatFee(c, info))
}
