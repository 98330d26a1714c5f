package account

import (
	"github.com/ethereum/go-ethereum/common"
)

// Type is the wallet backend behind an account.
type Type string

const (
	// TypeKeyBased accounts sign every transaction with a locally held key.
	TypeKeyBased Type = "KEY_BASED"
	// TypeArchanova accounts relay single calls through the Archanova smart wallet.
	TypeArchanova Type = "ARCHANOVA_SMART_WALLET"
	// TypeEtherspot accounts execute atomic batches through the Etherspot smart wallet.
	TypeEtherspot Type = "ETHERSPOT_SMART_WALLET"
)

// Account binds a wallet backend to an address.
type Account struct {
	ID      string
	Type    Type
	Address common.Address
}

// IsSmartWallet reports whether the account is backed by a relay contract wallet.
func (a Account) IsSmartWallet() bool {
	return a.Type == TypeArchanova || a.Type == TypeEtherspot
}

// FindFirst returns the first account of the given type.
func FindFirst(accounts []Account, t Type) (Account, bool) {
	for _, a := range accounts {
		if a.Type == t {
			return a, true
		}
	}
	return Account{}, false
}

// FindFirstArchanova returns the first Archanova account.
func FindFirstArchanova(accounts []Account) (Account, bool) {
	return FindFirst(accounts, TypeArchanova)
}

// FindFirstEtherspot returns the first Etherspot account.
func FindFirstEtherspot(accounts []Account) (Account, bool) {
	return FindFirst(accounts, TypeEtherspot)
}
