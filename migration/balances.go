package migration

import (
	"github.com/shopspring/decimal"
	"github.com/welthee/cryptowallet/chain"
)

var (
	feeBuffer          = decimal.New(1, -6)
	negligibleBalance  = decimal.New(1, -12)
	nativeAmountDigits = int32(6)
)

// IsNonNegligibleBalance reports whether balance is at least 1e-12.
func IsNonNegligibleBalance(balance decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(negligibleBalance)
}

// HasNonNegligibleWalletBalances reports whether any balance is worth migrating.
func HasNonNegligibleWalletBalances(balances Tokens) bool {
	for _, balance := range balances {
		if IsNonNegligibleBalance(balance.Balance) {
			return true
		}
	}
	return false
}

// GetTokensToMigrateAfterFee reserves fee out of the native amount to migrate.
// The native amount becomes balance - fee - 0.000001 truncated to 6 decimals,
// never below zero, when the requested amount does not fit. A nil fee, a fee
// above the native balance or no native amount leaves tokens unchanged.
func GetTokensToMigrateAfterFee(tokens Tokens, balances Tokens, fee *decimal.Decimal) Tokens {
	if fee == nil {
		return tokens
	}

	native := chain.NativeAsset(chain.Ethereum)
	walletBalance := balances[native.Address].Balance
	nativeToMigrate, ok := tokens[native.Address]
	if !ok {
		return tokens
	}
	requested := nativeToMigrate.Balance

	if fee.GreaterThan(walletBalance) {
		return tokens
	}

	maxAmount := walletBalance.Sub(*fee).Sub(feeBuffer)
	if maxAmount.GreaterThanOrEqual(requested) {
		return tokens
	}
	if maxAmount.IsNegative() {
		maxAmount = decimal.Zero
	}

	adjusted := make(Tokens, len(tokens))
	for address, amount := range tokens {
		adjusted[address] = amount
	}
	adjusted[native.Address] = TokenAmount{
		Address:  native.Address,
		Balance:  maxAmount.Truncate(nativeAmountDigits),
		Decimals: native.Decimals,
	}
	return adjusted
}
