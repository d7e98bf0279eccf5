package planner

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/registry"
)

func TestBuildBorrowAndBridgeSufficientBalanceSelfIsNoOp(t *testing.T) {
	chain := newFakeChain()
	chain.balance = big.NewInt(2_000_000_000) // 2000 USDC
	rpc := chain.server(t)
	defer rpc.Close()

	p := newTestPlanner(t, rpc.URL, "")
	result := p.BuildBorrowAndBridge(context.Background(), BorrowAndBridgeParams{
		BorrowAmountUSDC: "1000",
	}, testSender)

	if result.Status != model.StatusSuccess {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.Message)
	}
	if len(result.Tx) != 0 {
		t.Fatalf("sufficient balance to self needs no transactions, got %d", len(result.Tx))
	}
	if !strings.Contains(result.Message, "already have the desired USDC balance") {
		t.Fatalf("unexpected message: %s", result.Message)
	}
	if !strings.Contains(result.Message, "sign the 0 transaction(s)") {
		t.Fatalf("message must state the transaction count: %s", result.Message)
	}
}

func TestBuildBorrowAndBridgeBorrowsOnlyShortfall(t *testing.T) {
	chain := newFakeChain()
	chain.balance = big.NewInt(400_000_000) // 400 USDC toward a 1000 target
	rpc := chain.server(t)
	defer rpc.Close()

	p := newTestPlanner(t, rpc.URL, "")
	result := p.BuildBorrowAndBridge(context.Background(), BorrowAndBridgeParams{
		BorrowAmountUSDC: "1000",
	}, testSender)

	if result.Status != model.StatusSuccess {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.Message)
	}
	if len(result.Tx) != 1 {
		t.Fatalf("expected borrow only, got %d transactions", len(result.Tx))
	}
	if result.Tx[0].To != registry.AavePoolBase {
		t.Fatalf("borrow must target the pool, got %s", result.Tx[0].To)
	}
	if !strings.Contains(result.Message, "borrowing **600 USDC**") {
		t.Fatalf("message should state the shortfall, not the target: %s", result.Message)
	}
}

func TestBuildBorrowAndBridgeRoutesToOtherChain(t *testing.T) {
	quotes := newQuoteServer(t)
	defer quotes.Close()
	chain := newFakeChain()
	chain.balance = big.NewInt(0)
	chain.allowance = big.NewInt(0)
	rpc := chain.server(t)
	defer rpc.Close()

	p := newTestPlanner(t, rpc.URL, quotes.URL)
	result := p.BuildBorrowAndBridge(context.Background(), BorrowAndBridgeParams{
		BorrowAmountUSDC:     "1000",
		ToTokenSymbol:        "USDC",
		DestinationChainName: "arbitrum",
	}, testSender)

	if result.Status != model.StatusSuccess {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.Message)
	}
	// Borrow, approval for the router, then the bridge itself.
	if len(result.Tx) != 3 {
		t.Fatalf("expected borrow + approval + bridge, got %d transactions", len(result.Tx))
	}
	if result.Tx[0].To != registry.AavePoolBase {
		t.Fatalf("first transaction must borrow, got %s", result.Tx[0].To)
	}
	if result.Tx[1].To != registry.USDCBase {
		t.Fatalf("second transaction must approve USDC, got %s", result.Tx[1].To)
	}
	for i, tx := range result.Tx {
		if tx.ChainID != 8453 {
			t.Fatalf("transaction %d must execute on the home chain, got %d", i, tx.ChainID)
		}
	}
	if !strings.Contains(result.Message, "bridging to **USDC** on **Arbitrum**") {
		t.Fatalf("unexpected message: %s", result.Message)
	}
}

func TestBuildBorrowAndBridgeSimpleTransfer(t *testing.T) {
	chain := newFakeChain()
	chain.balance = big.NewInt(5_000_000_000)
	rpc := chain.server(t)
	defer rpc.Close()

	recipient := "0x00000000000000000000000000000000000000BB"
	p := newTestPlanner(t, rpc.URL, "")
	result := p.BuildBorrowAndBridge(context.Background(), BorrowAndBridgeParams{
		BorrowAmountUSDC: "1000",
		ToAddress:        recipient,
	}, testSender)

	if result.Status != model.StatusSuccess {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.Message)
	}
	if len(result.Tx) != 1 {
		t.Fatalf("expected transfer only, got %d transactions", len(result.Tx))
	}
	if result.Tx[0].To != registry.USDCBase {
		t.Fatalf("transfer must target USDC, got %s", result.Tx[0].To)
	}
	if !strings.Contains(result.Message, "Sending **1000 USDC** from your balance") {
		t.Fatalf("unexpected message: %s", result.Message)
	}
}

func TestBuildBorrowAndBridgeUnknownChainIsFailResult(t *testing.T) {
	chain := newFakeChain()
	rpc := chain.server(t)
	defer rpc.Close()

	p := newTestPlanner(t, rpc.URL, "")
	result := p.BuildBorrowAndBridge(context.Background(), BorrowAndBridgeParams{
		BorrowAmountUSDC:     "1000",
		DestinationChainName: "",
		ToTokenSymbol:        "DOGE",
	}, testSender)

	if result.Status != model.StatusFail {
		t.Fatalf("expected fail status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "DOGE") {
		t.Fatalf("failure should name the unknown token: %s", result.Message)
	}
}
