package migration

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/welthee/cryptowallet/chain"
)

func fee(amount string) *decimal.Decimal {
	d := decimal.RequireFromString(amount)
	return &d
}

func TestGetTokensToMigrateAfterFee(t *testing.T) {
	plr := TokenAmount{Address: plrAddress, Balance: decimal.RequireFromString("10"), Decimals: 18}

	tests := []struct {
		name     string
		tokens   Tokens
		balances Tokens
		fee      *decimal.Decimal
		expected string
	}{
		{
			name:     "reserves fee and buffer",
			tokens:   Tokens{chain.NativeAssetAddress: ether("1"), plrAddress: plr},
			balances: Tokens{chain.NativeAssetAddress: ether("1")},
			fee:      fee("0.01"),
			expected: "0.989999",
		},
		{
			name:     "truncates towards zero",
			tokens:   Tokens{chain.NativeAssetAddress: ether("2")},
			balances: Tokens{chain.NativeAssetAddress: ether("2")},
			fee:      fee("0.0123456789"),
			expected: "1.987653",
		},
		{
			name:     "fee above balance",
			tokens:   Tokens{chain.NativeAssetAddress: ether("1")},
			balances: Tokens{chain.NativeAssetAddress: ether("0.001")},
			fee:      fee("0.01"),
			expected: "1",
		},
		{
			name:     "requested amount already fits",
			tokens:   Tokens{chain.NativeAssetAddress: ether("0.5")},
			balances: Tokens{chain.NativeAssetAddress: ether("1")},
			fee:      fee("0.01"),
			expected: "0.5",
		},
		{
			name:     "unknown fee",
			tokens:   Tokens{chain.NativeAssetAddress: ether("1")},
			balances: Tokens{chain.NativeAssetAddress: ether("1")},
			expected: "1",
		},
		{
			name:     "balance barely covers fee",
			tokens:   Tokens{chain.NativeAssetAddress: ether("0.01")},
			balances: Tokens{chain.NativeAssetAddress: ether("0.01")},
			fee:      fee("0.0099999"),
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetTokensToMigrateAfterFee(tt.tokens, tt.balances, tt.fee)
			assert.Equal(t, tt.expected, result[chain.NativeAssetAddress].Balance.String())
			if other, ok := tt.tokens[plrAddress]; ok {
				assert.Equal(t, other, result[plrAddress])
			}
		})
	}
}

func TestGetTokensToMigrateAfterFeeStaysWithinBounds(t *testing.T) {
	tokens := Tokens{chain.NativeAssetAddress: ether("1")}
	result := GetTokensToMigrateAfterFee(tokens, tokens, fee("0.01"))

	migrated := result[chain.NativeAssetAddress].Balance
	assert.True(t, migrated.GreaterThan(decimal.RequireFromString("0.98")))
	assert.True(t, migrated.LessThan(decimal.RequireFromString("0.99")))
	assert.Equal(t, "1", tokens[chain.NativeAssetAddress].Balance.String())
}

func TestGetTokensToMigrateAfterFeeWithoutNative(t *testing.T) {
	tokens := Tokens{plrAddress: {Address: plrAddress, Balance: decimal.RequireFromString("3"), Decimals: 18}}
	result := GetTokensToMigrateAfterFee(tokens, Tokens{chain.NativeAssetAddress: ether("0.01")}, fee("0.0099999"))

	_, ok := result[chain.NativeAssetAddress]
	assert.False(t, ok)
}

func TestNonNegligibleBalances(t *testing.T) {
	assert.True(t, IsNonNegligibleBalance(decimal.New(1, -12)))
	assert.False(t, IsNonNegligibleBalance(decimal.New(9, -13)))
	assert.False(t, IsNonNegligibleBalance(decimal.Zero))

	assert.False(t, HasNonNegligibleWalletBalances(nil))
	assert.False(t, HasNonNegligibleWalletBalances(Tokens{chain.NativeAssetAddress: ether("0.0000000000001")}))
	assert.True(t, HasNonNegligibleWalletBalances(Tokens{
		chain.NativeAssetAddress: ether("0"),
		plrAddress:               {Address: plrAddress, Balance: decimal.RequireFromString("0.5"), Decimals: 18},
	}))
}
