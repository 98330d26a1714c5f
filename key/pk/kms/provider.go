package kms

import (
	"context"
	"math/big"

	"github.com/welthee/cryptowallet/key/pk"
)

// NewKmsEncryptedPrivateKeyProvider is a utility method to easily create a transaction signer
// from a kms encrypted private key for the given chainID.
func NewKmsEncryptedPrivateKeyProvider(ctx context.Context, decrypter Decrypter, encryptedKey string, chainId *big.Int) (pk.Signer, error) {
	privateKeyHex, err := decrypter.Decrypt(ctx, encryptedKey)
	if err != nil {
		return nil, err
	}
	return pk.NewPrivateKeyProvider(privateKeyHex, chainId)
}
