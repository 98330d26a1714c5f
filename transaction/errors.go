package transaction

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotInitialized             = errors.New("SDK is not initialized")
	ErrTokenIDNotFound            = errors.New("token ID not found")
	ErrCollectibleNotTransferable = errors.New("collectible cannot be transferred")
	ErrInvalidAmount              = errors.New("invalid amount")
	ErrNoTransactions             = errors.New("no transactions")
	ErrMissingContractCaller      = errors.New("contract caller is required for collectible transfers")
	ErrMissingContractAddress     = errors.New("token transfer requires a contract address")
)

// AssetKind tags a transaction error with the asset being moved.
type AssetKind string

const (
	AssetKindNative  AssetKind = "native"
	AssetKindERC20   AssetKind = "ERC20"
	AssetKindERC721  AssetKind = "ERC721"
	AssetKindPayment AssetKind = "payment channel"
	AssetKindBatch   AssetKind = "batch"
)

// Error is raised at the provider boundary for any failed transfer. Fields
// carry the transfer context (addresses, amount or token id).
type Error struct {
	Kind   AssetKind
	Fields map[string]interface{}
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s transaction failed: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CatchError logs err with its transfer context and converts it into an *Error.
// Errors that already are an *Error are returned unchanged.
func CatchError(err error, kind AssetKind, fields map[string]interface{}) error {
	if err == nil {
		return nil
	}
	var txErr *Error
	if errors.As(err, &txErr) {
		return err
	}

	log.Error().
		Err(err).
		Str("kind", string(kind)).
		Fields(fields).
		Msg("exception in wallet transaction")

	return &Error{
		Kind:   kind,
		Fields: fields,
		Err:    err,
	}
}
