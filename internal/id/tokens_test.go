package id

import (
	"fmt"
	"strings"
	"testing"
)

func TestTokenBySymbolCaseInsensitive(t *testing.T) {
	for _, tok := range tokens {
		got, err := TokenBySymbol(strings.ToLower(tok.Symbol), tok.ChainID)
		if err != nil {
			t.Fatalf("TokenBySymbol(%s, %d) failed: %v", tok.Symbol, tok.ChainID, err)
		}
		if !strings.EqualFold(got.Address, tok.Address) {
			t.Fatalf("TokenBySymbol(%s, %d) returned address %s, want %s", tok.Symbol, tok.ChainID, got.Address, tok.Address)
		}
	}
}

func TestTokenBySymbolMissIsTypedError(t *testing.T) {
	_, err := TokenBySymbol("SHIB", 8453)
	if err == nil {
		t.Fatal("expected miss for unsupported symbol")
	}
}

func TestTokenCatalogCompoundKeysAreUnique(t *testing.T) {
	bySymbol := map[string]struct{}{}
	byAddress := map[string]struct{}{}
	for _, tok := range tokens {
		symKey := fmt.Sprintf("%s@%d", strings.ToUpper(tok.Symbol), tok.ChainID)
		if _, dup := bySymbol[symKey]; dup {
			t.Fatalf("duplicate (symbol, chainId): %s on %d", tok.Symbol, tok.ChainID)
		}
		bySymbol[symKey] = struct{}{}
		addrKey := fmt.Sprintf("%s@%d", strings.ToLower(tok.Address), tok.ChainID)
		if _, dup := byAddress[addrKey]; dup {
			t.Fatalf("duplicate (address, chainId): %s on %d", tok.Address, tok.ChainID)
		}
		byAddress[addrKey] = struct{}{}
	}
}

func TestNativeSentinel(t *testing.T) {
	eth, err := TokenBySymbol("ETH", 8453)
	if err != nil {
		t.Fatalf("lookup native: %v", err)
	}
	if !eth.IsNative() {
		t.Fatal("zero-address token must report IsNative")
	}
	usdc, err := TokenBySymbol("USDC", 8453)
	if err != nil {
		t.Fatalf("lookup usdc: %v", err)
	}
	if usdc.IsNative() {
		t.Fatal("USDC must not report IsNative")
	}
}
