package id

import (
	"fmt"
	"strings"

	agenterr "github.com/loanify/agent/internal/errors"
)

// NativeTokenAddress is the all-zero sentinel marking a chain's native asset.
const NativeTokenAddress = "0x0000000000000000000000000000000000000000"

// Token is one entry of the static per-chain catalog. Uniqueness is the
// compound key (ChainID, Symbol) and (ChainID, Address).
type Token struct {
	ChainID  int64
	Address  string
	Symbol   string
	Decimals int
	Name     string
}

func (t Token) IsNative() bool {
	return strings.EqualFold(t.Address, NativeTokenAddress)
}

var tokens = []Token{
	// Base (home chain)
	{ChainID: 8453, Address: NativeTokenAddress, Symbol: "ETH", Decimals: 18, Name: "Ether"},
	{ChainID: 8453, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: 18, Name: "Wrapped Ether"},
	{ChainID: 8453, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Decimals: 6, Name: "USD Coin"},
	{ChainID: 8453, Address: "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb", Symbol: "DAI", Decimals: 18, Name: "Dai Stablecoin"},
	{ChainID: 8453, Address: "0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf", Symbol: "CBBTC", Decimals: 8, Name: "Coinbase Wrapped BTC"},

	// Ethereum
	{ChainID: 1, Address: NativeTokenAddress, Symbol: "ETH", Decimals: 18, Name: "Ether"},
	{ChainID: 1, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Decimals: 18, Name: "Wrapped Ether"},
	{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6, Name: "USD Coin"},
	{ChainID: 1, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Symbol: "USDT", Decimals: 6, Name: "Tether USD"},
	{ChainID: 1, Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Symbol: "DAI", Decimals: 18, Name: "Dai Stablecoin"},

	// Arbitrum
	{ChainID: 42161, Address: NativeTokenAddress, Symbol: "ETH", Decimals: 18, Name: "Ether"},
	{ChainID: 42161, Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Symbol: "WETH", Decimals: 18, Name: "Wrapped Ether"},
	{ChainID: 42161, Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Symbol: "USDC", Decimals: 6, Name: "USD Coin"},

	// Optimism
	{ChainID: 10, Address: NativeTokenAddress, Symbol: "ETH", Decimals: 18, Name: "Ether"},
	{ChainID: 10, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: 18, Name: "Wrapped Ether"},
	{ChainID: 10, Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", Symbol: "USDC", Decimals: 6, Name: "USD Coin"},

	// Polygon
	{ChainID: 137, Address: NativeTokenAddress, Symbol: "POL", Decimals: 18, Name: "Polygon Ecosystem Token"},
	{ChainID: 137, Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Symbol: "WETH", Decimals: 18, Name: "Wrapped Ether"},
	{ChainID: 137, Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Symbol: "USDC", Decimals: 6, Name: "USD Coin"},

	// Avalanche
	{ChainID: 43114, Address: NativeTokenAddress, Symbol: "AVAX", Decimals: 18, Name: "Avalanche"},
	{ChainID: 43114, Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Symbol: "USDC", Decimals: 6, Name: "USD Coin"},

	// BNB Chain
	{ChainID: 56, Address: NativeTokenAddress, Symbol: "BNB", Decimals: 18, Name: "BNB"},
	{ChainID: 56, Address: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", Symbol: "USDC", Decimals: 18, Name: "USD Coin"},
}

// TokenBySymbol looks up a token by exact, case-insensitive symbol on a chain.
// There is no fuzzy fallback for tokens: a miss is a hard failure for the
// calling builder.
func TokenBySymbol(symbol string, chainID int64) (Token, error) {
	clean := strings.TrimSpace(symbol)
	if clean == "" {
		return Token{}, agenterr.New(agenterr.CodeUsage, "token symbol is empty")
	}
	for _, t := range tokens {
		if t.ChainID == chainID && strings.EqualFold(t.Symbol, clean) {
			return t, nil
		}
	}
	return Token{}, agenterr.New(agenterr.CodeUsage, fmt.Sprintf("token %s is not in the supported list for chain %d", strings.ToUpper(clean), chainID))
}

// TokenByAddress looks up a token by address on a chain.
func TokenByAddress(address string, chainID int64) (Token, bool) {
	for _, t := range tokens {
		if t.ChainID == chainID && strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return Token{}, false
}
