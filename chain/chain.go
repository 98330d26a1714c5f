package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain identifies an EVM network supported by the wallet.
type Chain string

const (
	Ethereum  Chain = "ethereum"
	Polygon   Chain = "polygon"
	Binance   Chain = "binance"
	Xdai      Chain = "xdai"
	Avalanche Chain = "avalanche"
	Optimism  Chain = "optimism"
	Arbitrum  Chain = "arbitrum"
)

// Chain ids for production networks and the test networks used outside production.
const (
	IDEthereumMainnet int64 = 1
	IDGoerli          int64 = 5
	IDBinance         int64 = 56
	IDBinanceTestnet  int64 = 97
	IDXdai            int64 = 100
	IDSokol           int64 = 77
	IDPolygon         int64 = 137
	IDMumbai          int64 = 80001
	IDAvalanche       int64 = 43114
	IDFuji            int64 = 43113
	IDOptimism        int64 = 10
	IDOptimismGoerli  int64 = 420
	IDArbitrum        int64 = 42161
	IDArbitrumNitro   int64 = 421613
)

// Asset is the static metadata of an asset on a chain.
type Asset struct {
	Chain    Chain
	Address  common.Address
	Name     string
	Symbol   string
	Decimals int32
}

// NativeAssetAddress is the reserved sentinel address standing for a chain's native asset.
var NativeAssetAddress = common.Address{}

type networkIDs struct {
	production int64
	test       int64
}

var chainIDs = map[Chain]networkIDs{
	Ethereum:  {IDEthereumMainnet, IDGoerli},
	Polygon:   {IDPolygon, IDMumbai},
	Binance:   {IDBinance, IDBinanceTestnet},
	Xdai:      {IDXdai, IDSokol},
	Avalanche: {IDAvalanche, IDFuji},
	Optimism:  {IDOptimism, IDOptimismGoerli},
	Arbitrum:  {IDArbitrum, IDArbitrumNitro},
}

var nativeAssets = map[Chain]Asset{
	Ethereum:  {Chain: Ethereum, Address: NativeAssetAddress, Name: "Ethereum", Symbol: "ETH", Decimals: 18},
	Polygon:   {Chain: Polygon, Address: NativeAssetAddress, Name: "Matic", Symbol: "MATIC", Decimals: 18},
	Binance:   {Chain: Binance, Address: NativeAssetAddress, Name: "BNB", Symbol: "BNB", Decimals: 18},
	Xdai:      {Chain: Xdai, Address: NativeAssetAddress, Name: "xDAI", Symbol: "XDAI", Decimals: 18},
	Avalanche: {Chain: Avalanche, Address: NativeAssetAddress, Name: "Avalanche", Symbol: "AVAX", Decimals: 18},
	Optimism:  {Chain: Optimism, Address: NativeAssetAddress, Name: "Ethereum", Symbol: "ETH", Decimals: 18},
	Arbitrum:  {Chain: Arbitrum, Address: NativeAssetAddress, Name: "Ether", Symbol: "ETH", Decimals: 18},
}

// NativeAsset returns the native asset of the given chain. Unknown or empty
// chains fall back to Ethereum.
func NativeAsset(c Chain) Asset {
	if asset, ok := nativeAssets[c]; ok {
		return asset
	}
	return nativeAssets[Ethereum]
}

// IsNativeAsset reports whether address is the native asset sentinel.
func IsNativeAsset(address common.Address) bool {
	return address == NativeAssetAddress
}

// ChainID maps a chain to its id, using test networks unless production is set.
func ChainID(c Chain, production bool) int64 {
	ids, ok := chainIDs[c]
	if !ok {
		ids = chainIDs[Ethereum]
	}
	if production {
		return ids.production
	}
	return ids.test
}

// FromChainID resolves the chain of a production or test network id.
func FromChainID(id int64) (Chain, bool) {
	for c, ids := range chainIDs {
		if ids.production == id || ids.test == id {
			return c, true
		}
	}
	return "", false
}

// Parse resolves a chain from its name, case-insensitively.
func Parse(name string) (Chain, bool) {
	c := Chain(strings.ToLower(strings.TrimSpace(name)))
	_, ok := chainIDs[c]
	return c, ok
}
