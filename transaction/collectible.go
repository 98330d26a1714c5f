package transaction

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/sha3"
)

// TransferMethod is the way a collectible contract moves tokens.
type TransferMethod int

const (
	TransferMethodUnknown TransferMethod = iota
	TransferMethodSafeTransferFrom
	TransferMethodTransfer
	TransferMethodTransferFrom
)

func (m TransferMethod) String() string {
	switch m {
	case TransferMethodSafeTransferFrom:
		return "safeTransferFrom"
	case TransferMethodTransfer:
		return "transfer"
	case TransferMethodTransferFrom:
		return "transferFrom"
	default:
		return ""
	}
}

var (
	transferSelector         = methodID("transfer(address,uint256)")
	transferFromSelector     = methodID("transferFrom(address,address,uint256)")
	safeTransferFromSelector = methodID("safeTransferFrom(address,address,uint256)")
)

func methodID(signature string) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(signature))
	return hash.Sum(nil)[:4]
}

// ClassifyTransferMethod inspects deployed contract bytecode for the selectors
// of the known collectible transfer methods. safeTransferFrom is skipped when
// the receiver is a contract, since receivers without onERC721Received revert.
func ClassifyTransferMethod(code []byte, receiverIsContract bool) TransferMethod {
	switch {
	case !receiverIsContract && bytes.Contains(code, safeTransferFromSelector):
		return TransferMethodSafeTransferFrom
	case bytes.Contains(code, transferSelector):
		return TransferMethodTransfer
	case bytes.Contains(code, transferFromSelector):
		return TransferMethodTransferFrom
	default:
		return TransferMethodUnknown
	}
}

// ParseTokenID parses a decimal or 0x prefixed hex token id.
func ParseTokenID(tokenID string) (*big.Int, error) {
	if tokenID == "" {
		return nil, ErrTokenIDNotFound
	}
	id, ok := new(big.Int).SetString(tokenID, 0)
	if !ok {
		return nil, fmt.Errorf("invalid token id %s", tokenID)
	}
	return id, nil
}

// EncodeCollectibleTransfer encodes call data for the given legacy ERC-721 transfer method.
func EncodeCollectibleTransfer(method TransferMethod, from, to common.Address, tokenID *big.Int) ([]byte, error) {
	switch method {
	case TransferMethodSafeTransferFrom:
		return ERC721ABI.Pack("safeTransferFrom", from, to, tokenID)
	case TransferMethodTransfer:
		return ERC721ABI.Pack("transfer", to, tokenID)
	case TransferMethodTransferFrom:
		return ERC721ABI.Pack("transferFrom", from, to, tokenID)
	default:
		return nil, ErrCollectibleNotTransferable
	}
}

// BuildCollectibleTransferData reads the collectible contract and receiver
// bytecode and encodes the matching ERC-721 transfer call.
func BuildCollectibleTransferData(ctx context.Context, caller bind.ContractCaller, from, to, contractAddress common.Address, tokenID *big.Int) ([]byte, error) {
	if caller == nil {
		return nil, ErrMissingContractCaller
	}
	code, err := caller.CodeAt(ctx, contractAddress, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get collectible contract code: %w", err)
	}
	receiverCode, err := caller.CodeAt(ctx, to, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get receiver code: %w", err)
	}

	method := ClassifyTransferMethod(code, len(receiverCode) > 0)
	log.Debug().
		Str("contractAddress", contractAddress.Hex()).
		Str("method", method.String()).
		Msg("classified collectible transfer method")

	return EncodeCollectibleTransfer(method, from, to, tokenID)
}

// hasOwnerOf reports whether the contract answers the ERC-721 ownerOf view for tokenID.
func hasOwnerOf(ctx context.Context, caller bind.ContractCaller, contractAddress common.Address, tokenID *big.Int) bool {
	input, err := ERC721ABI.Pack("ownerOf", tokenID)
	if err != nil {
		return false
	}
	output, err := caller.CallContract(ctx, ethereum.CallMsg{To: &contractAddress, Data: input}, nil)
	if err != nil || len(output) == 0 {
		return false
	}
	_, err = ERC721ABI.Unpack("ownerOf", output)
	return err == nil
}

// BuildCollectibleTransaction encodes a collectible transfer. The default is an
// ERC-1155 safeTransferFrom carrying an embedded setApprovalForAll call; when
// the contract answers ownerOf it is treated as ERC-721 and the legacy
// encoding selected by bytecode classification is used instead.
func BuildCollectibleTransaction(ctx context.Context, caller bind.ContractCaller, from, to, contractAddress common.Address, tokenID string) (EthereumTransaction, error) {
	if caller == nil {
		return EthereumTransaction{}, ErrMissingContractCaller
	}
	id, err := ParseTokenID(tokenID)
	if err != nil {
		return EthereumTransaction{}, err
	}

	var data []byte
	if hasOwnerOf(ctx, caller, contractAddress, id) {
		data, err = BuildCollectibleTransferData(ctx, caller, from, to, contractAddress, id)
	} else {
		data, err = encodeApproveAllSafeTransfer(from, to, id)
	}
	if err != nil {
		return EthereumTransaction{}, err
	}

	return EthereumTransaction{
		To:    contractAddress,
		Value: big.NewInt(0),
		Data:  data,
	}, nil
}

func encodeApproveAllSafeTransfer(from, to common.Address, tokenID *big.Int) ([]byte, error) {
	approveAll, err := ERC721ABI.Pack("setApprovalForAll", to, true)
	if err != nil {
		return nil, err
	}
	return ERC1155ABI.Pack("safeTransferFrom", from, to, tokenID, big.NewInt(1), approveAll)
}
