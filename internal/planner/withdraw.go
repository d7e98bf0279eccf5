package planner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/loanify/agent/internal/id"
	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/registry"
)

const toolAaveWithdraw = "prepare_aave_withdraw"

// withdrawAllowanceThreshold plays the same role as the repay threshold for
// MAX withdrawals: the aWETH balance grows per block, so any gateway
// allowance covering 1B aWETH counts as unlimited.
var withdrawAllowanceThreshold = new(big.Int).Mul(big.NewInt(1_000_000_000), big.NewInt(1_000_000_000_000_000_000))

// BuildAaveWithdraw prepares the transactions to withdraw supplied ETH: an
// aWETH approval for the gateway when needed, then withdrawETH which burns
// aWETH and returns native ETH.
func (p *Planner) BuildAaveWithdraw(ctx context.Context, amountETH, address string) model.ToolResult {
	result, err := p.buildAaveWithdraw(ctx, amountETH, address)
	if err != nil {
		p.log.WithError(err).WithField("tool", toolAaveWithdraw).Warn("withdraw preparation failed")
		return p.fail(toolAaveWithdraw, "Failed to prepare withdrawal. Ensure you have enough supplied ETH and that withdrawing this amount won't put your loan at risk.")
	}
	return result
}

func (p *Planner) buildAaveWithdraw(ctx context.Context, amountETH, address string) (model.ToolResult, error) {
	sender, err := parseSender(address)
	if err != nil {
		return model.ToolResult{}, err
	}
	amount, err := id.ParseAmount(amountETH)
	if err != nil {
		return model.ToolResult{}, err
	}
	amountWei, err := amount.BaseUnits(18)
	if err != nil {
		return model.ToolResult{}, err
	}

	client, err := p.dial(ctx)
	if err != nil {
		return model.ToolResult{}, err
	}
	defer client.Close()

	aweth := common.HexToAddress(registry.AWETHBase)
	gateway := common.HexToAddress(registry.WETHGatewayBase)
	pool := common.HexToAddress(registry.AavePoolBase)

	allowance, err := readAllowance(ctx, client, aweth, sender, gateway)
	if err != nil {
		return model.ToolResult{}, err
	}
	needsApproval := allowance.Cmp(amountWei) < 0
	if amount.All {
		needsApproval = allowance.Cmp(withdrawAllowanceThreshold) < 0
	}

	var txs []model.PreparedTransaction
	if needsApproval {
		approveTx, err := buildApproval(ctx, client, aweth, sender, gateway)
		if err != nil {
			return model.ToolResult{}, err
		}
		txs = append(txs, approveTx)
	}

	withdrawData, err := wethGatewayABI.Pack("withdrawETH", pool, amountWei, sender)
	if err != nil {
		return model.ToolResult{}, err
	}
	withdrawGas, err := gasBufferedLimit(ctx, client, ethereum.CallMsg{From: sender, To: &gateway, Data: withdrawData})
	if err != nil {
		return model.ToolResult{}, err
	}
	gasPrice, err := suggestGasPrice(ctx, client)
	if err != nil {
		return model.ToolResult{}, err
	}
	txs = append(txs, model.PreparedTransaction{
		To:       gateway.Hex(),
		Data:     hexData(withdrawData),
		Value:    "0",
		GasLimit: withdrawGas.String(),
		GasPrice: gasPrice.String(),
		ChainID:  id.HomeChainID,
	})

	message := fmt.Sprintf("I have prepared the transaction to withdraw %s ETH. Please confirm in your wallet.", amountETH)
	if needsApproval {
		message = "I have prepared an approval for your aWETH and the withdrawal transaction. You will need to sign both to receive your ETH."
	}
	return model.ToolResult{
		Status:   model.StatusSuccess,
		LastTool: toolAaveWithdraw,
		Tx:       txs,
		Message:  message,
	}, nil
}
