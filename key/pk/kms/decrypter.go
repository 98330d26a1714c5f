package kms

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

var ErrInvalidCiphertext = errors.New("unable to decode encrypted private key")

// Client is the subset of the KMS API used to protect private keys. *kms.Client satisfies it.
type Client interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Decrypter defines methods used to encrypt and decrypt private keys with a KMS key
type Decrypter interface {
	// Decrypt decrypts a base64 ciphertext that was encrypted by a KMS key using RSAES_OAEP_SHA_256 algorithm
	Decrypt(ctx context.Context, data string) (string, error)
	// Encrypt encrypts plaintext with a KMS key using RSAES_OAEP_SHA_256 algorithm
	Encrypt(ctx context.Context, data string) (string, error)
}

type kmsDecrypter struct {
	svc   Client
	keyId string
}

func NewKmsDecrypter(svc Client, keyId string) Decrypter {
	return kmsDecrypter{
		svc:   svc,
		keyId: keyId,
	}
}

func (k kmsDecrypter) Encrypt(ctx context.Context, data string) (string, error) {
	respEncrypt, err := k.svc.Encrypt(ctx, &kms.EncryptInput{
		KeyId:               aws.String(k.keyId),
		Plaintext:           []byte(data),
		EncryptionAlgorithm: types.EncryptionAlgorithmSpecRsaesOaepSha256,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(respEncrypt.CiphertextBlob), nil
}

func (k kmsDecrypter) Decrypt(ctx context.Context, data string) (string, error) {
	dataBytes, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrInvalidCiphertext, err)
	}

	respDecrypt, err := k.svc.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:      dataBytes,
		KeyId:               aws.String(k.keyId),
		EncryptionAlgorithm: types.EncryptionAlgorithmSpecRsaesOaepSha256,
	})
	if err != nil {
		return "", err
	}

	return string(respDecrypt.Plaintext), nil
}
