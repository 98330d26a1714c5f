package kms

import (
	"math/big"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/welthee/cryptowallet/key"
	ethawskmssigner "github.com/welthee/go-ethereum-aws-kms-tx-signer/v2"
)

type kmsKeyProvider struct {
	transactOpts *bind.TransactOpts
}

func (k kmsKeyProvider) GetAddress() common.Address {
	return k.transactOpts.From
}

func (k kmsKeyProvider) GetTransactOpts() *bind.TransactOpts {
	return k.transactOpts
}

// NewKmsKeyProvider creates a key based wallet signer whose key never leaves
// AWS KMS. Only transactions can be signed, the provider is not a MessageSigner.
func NewKmsKeyProvider(svc *kms.Client, keyId string, chainId *big.Int) (key.Provider, error) {
	txOpts, err := ethawskmssigner.NewAwsKmsTransactorWithChainID(svc, keyId, chainId)
	if err != nil {
		return nil, err
	}
	return kmsKeyProvider{transactOpts: txOpts}, nil
}
