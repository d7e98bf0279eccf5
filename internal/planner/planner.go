package planner

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/id"
	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/providers/lifi"
	"github.com/loanify/agent/internal/registry"
)

// Planner builds unsigned transaction lists for the agent's tools. Every
// builder returns a model.ToolResult: failures are folded into a
// status:"fail" result with a user-facing message, never surfaced as an
// error, so the agent graph can hand any outcome straight back to the model.
//
// All builders operate against the home chain (Base); the cross-chain leg of
// a bridge is delegated to the routing API and executed from the home chain.
type Planner struct {
	lifi   *lifi.Client
	rpcURL string
	log    *logrus.Entry
}

func New(lifiClient *lifi.Client, rpcOverride string, log *logrus.Logger) (*Planner, error) {
	rpcURL, err := registry.ResolveRPCURL(rpcOverride, id.HomeChainID)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUsage, "resolve home chain rpc url", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Planner{
		lifi:   lifiClient,
		rpcURL: rpcURL,
		log:    log.WithField("component", "planner"),
	}, nil
}

func (p *Planner) dial(ctx context.Context) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, p.rpcURL)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUnavailable, "connect home chain rpc", err)
	}
	return client, nil
}

// gasBufferedLimit estimates gas for the call and pads the result by 10% so
// a network spike between preparation and signing does not strand the user
// with an out-of-gas revert.
func gasBufferedLimit(ctx context.Context, client *ethclient.Client, msg ethereum.CallMsg) (*big.Int, error) {
	estimated, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUnavailable, "estimate gas", err)
	}
	limit := new(big.Int).SetUint64(estimated)
	limit.Mul(limit, big.NewInt(110))
	limit.Div(limit, big.NewInt(100))
	return limit, nil
}

func suggestGasPrice(ctx context.Context, client *ethclient.Client) (*big.Int, error) {
	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUnavailable, "fetch gas price", err)
	}
	return price, nil
}

func readAllowance(ctx context.Context, client *ethclient.Client, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeInternal, "pack allowance calldata", err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{From: owner, To: &token, Data: data}, nil)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUnavailable, "read token allowance", err)
	}
	out, err := erc20ABI.Unpack("allowance", raw)
	if err != nil || len(out) == 0 {
		return nil, agenterr.Wrap(agenterr.CodeUnavailable, "decode token allowance", err)
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, agenterr.New(agenterr.CodeUnavailable, "invalid allowance response")
	}
	return allowance, nil
}

func readBalance(ctx context.Context, client *ethclient.Client, token, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeInternal, "pack balanceOf calldata", err)
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{From: owner, To: &token, Data: data}, nil)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUnavailable, "read token balance", err)
	}
	out, err := erc20ABI.Unpack("balanceOf", raw)
	if err != nil || len(out) == 0 {
		return nil, agenterr.Wrap(agenterr.CodeUnavailable, "decode token balance", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, agenterr.New(agenterr.CodeUnavailable, "invalid balance response")
	}
	return balance, nil
}

func parseSender(address string) (common.Address, error) {
	clean := strings.TrimSpace(address)
	if !common.IsHexAddress(clean) {
		return common.Address{}, agenterr.New(agenterr.CodeUsage, "request is missing a valid wallet address")
	}
	return common.HexToAddress(clean), nil
}

func (p *Planner) fail(tool, message string) model.ToolResult {
	return model.ToolResult{Status: model.StatusFail, LastTool: tool, Message: message}
}

func hexData(data []byte) string {
	return "0x" + common.Bytes2Hex(data)
}

func formatGwei(wei *big.Int) string {
	return id.FormatBaseUnits(wei, 9)
}

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

var (
	erc20ABI       = mustABI(registry.ERC20MinimalABI)
	aavePoolABI    = mustABI(registry.AavePoolABI)
	wethGatewayABI = mustABI(registry.WETHGatewayABI)
)
