package planner

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/registry"
)

func TestBuildAaveWithdrawExactNeedsApproval(t *testing.T) {
	chain := newFakeChain()
	chain.allowance = big.NewInt(0)
	rpc := chain.server(t)
	defer rpc.Close()

	p := newTestPlanner(t, rpc.URL, "")
	result := p.BuildAaveWithdraw(context.Background(), "0.5", testSender)

	if result.Status != model.StatusSuccess {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.Message)
	}
	if len(result.Tx) != 2 {
		t.Fatalf("expected approval then withdraw, got %d transactions", len(result.Tx))
	}
	if result.Tx[0].To != registry.AWETHBase {
		t.Fatalf("approval must target aWETH, got %s", result.Tx[0].To)
	}
	if result.Tx[1].To != registry.WETHGatewayBase {
		t.Fatalf("withdraw must target the gateway, got %s", result.Tx[1].To)
	}
	if result.Tx[1].Value != "0" {
		t.Fatalf("withdraw transaction must carry no value, got %s", result.Tx[1].Value)
	}
	if !strings.Contains(result.Message, "approval for your aWETH") {
		t.Fatalf("unexpected message: %s", result.Message)
	}
}

func TestBuildAaveWithdrawExactCoveredAllowance(t *testing.T) {
	chain := newFakeChain()
	// 1 ETH of aWETH allowance covers a 0.5 withdrawal.
	chain.allowance = new(big.Int).Mul(big.NewInt(1), big.NewInt(1_000_000_000_000_000_000))
	rpc := chain.server(t)
	defer rpc.Close()

	p := newTestPlanner(t, rpc.URL, "")
	result := p.BuildAaveWithdraw(context.Background(), "0.5", testSender)

	if result.Status != model.StatusSuccess {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.Message)
	}
	if len(result.Tx) != 1 {
		t.Fatalf("expected withdraw only, got %d transactions", len(result.Tx))
	}
	if !strings.Contains(result.Message, "withdraw 0.5 ETH") {
		t.Fatalf("unexpected message: %s", result.Message)
	}
}

func TestBuildAaveWithdrawMaxUsesThreshold(t *testing.T) {
	chain := newFakeChain()
	chain.allowance = new(big.Int).Set(withdrawAllowanceThreshold)
	rpc := chain.server(t)
	defer rpc.Close()

	p := newTestPlanner(t, rpc.URL, "")
	result := p.BuildAaveWithdraw(context.Background(), "MAX", testSender)

	if result.Status != model.StatusSuccess {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.Message)
	}
	if len(result.Tx) != 1 {
		t.Fatalf("threshold allowance should skip approval, got %d transactions", len(result.Tx))
	}
}

func TestBuildAaveWithdrawFailureMessage(t *testing.T) {
	p := newTestPlanner(t, "http://127.0.0.1:1", "")
	result := p.BuildAaveWithdraw(context.Background(), "0.5", testSender)
	if result.Status != model.StatusFail {
		t.Fatalf("expected fail status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "loan at risk") {
		t.Fatalf("unexpected failure message: %s", result.Message)
	}
}
