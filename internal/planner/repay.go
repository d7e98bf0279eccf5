package planner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/loanify/agent/internal/id"
	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/registry"
)

const toolAaveRepay = "prepare_aave_repay"

// repayAllowanceThreshold is the allowance floor used for MAX repayments:
// the exact debt is unknown at preparation time (interest accrues per block),
// so any allowance covering 1M USDC is treated as sufficient.
var repayAllowanceThreshold = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1_000_000))

// BuildAaveRepay prepares the transactions to repay USDC debt on the Aave
// pool: an unlimited approval first when the current allowance cannot cover
// the repayment, then the repay itself. "MAX" repays the full debt via the
// uint256 max sentinel.
func (p *Planner) BuildAaveRepay(ctx context.Context, amountUSDC, address string) model.ToolResult {
	result, err := p.buildAaveRepay(ctx, amountUSDC, address)
	if err != nil {
		p.log.WithError(err).WithField("tool", toolAaveRepay).Warn("repay preparation failed")
		return p.fail(toolAaveRepay, "Failed to prepare repayment. Ensure you have the required USDC balance in your wallet.")
	}
	return result
}

func (p *Planner) buildAaveRepay(ctx context.Context, amountUSDC, address string) (model.ToolResult, error) {
	sender, err := parseSender(address)
	if err != nil {
		return model.ToolResult{}, err
	}
	amount, err := id.ParseAmount(amountUSDC)
	if err != nil {
		return model.ToolResult{}, err
	}
	contractAmount, err := amount.BaseUnits(registry.USDCDecimals)
	if err != nil {
		return model.ToolResult{}, err
	}

	client, err := p.dial(ctx)
	if err != nil {
		return model.ToolResult{}, err
	}
	defer client.Close()

	usdc := common.HexToAddress(registry.USDCBase)
	pool := common.HexToAddress(registry.AavePoolBase)

	allowance, err := readAllowance(ctx, client, usdc, sender, pool)
	if err != nil {
		return model.ToolResult{}, err
	}
	needsApproval := allowance.Cmp(contractAmount) < 0
	if amount.All {
		needsApproval = allowance.Cmp(repayAllowanceThreshold) < 0
	}

	var txs []model.PreparedTransaction
	if needsApproval {
		approveTx, err := buildApproval(ctx, client, usdc, sender, pool)
		if err != nil {
			return model.ToolResult{}, err
		}
		txs = append(txs, approveTx)
	}

	repayData, err := aavePoolABI.Pack("repay", usdc, contractAmount, big.NewInt(registry.VariableRateMode), sender)
	if err != nil {
		return model.ToolResult{}, err
	}
	repayGas, err := gasBufferedLimit(ctx, client, ethereum.CallMsg{From: sender, To: &pool, Data: repayData})
	if err != nil {
		return model.ToolResult{}, err
	}
	gasPrice, err := suggestGasPrice(ctx, client)
	if err != nil {
		return model.ToolResult{}, err
	}
	txs = append(txs, model.PreparedTransaction{
		To:       pool.Hex(),
		Data:     hexData(repayData),
		Value:    "0",
		GasLimit: repayGas.String(),
		GasPrice: gasPrice.String(),
		ChainID:  id.HomeChainID,
	})

	message := fmt.Sprintf("I have prepared the transaction to repay %s USDC. Please confirm in your wallet.", amountUSDC)
	if needsApproval {
		message = "I have prepared an approval and a repayment transaction. You will need to sign both in your wallet to clear your USDC debt."
	}
	return model.ToolResult{
		Status:   model.StatusSuccess,
		LastTool: toolAaveRepay,
		Tx:       txs,
		Message:  message,
	}, nil
}

// buildApproval packs an unlimited approve for spender and estimates its gas.
// Unlimited rather than exact so MAX repayments and accrued interest never
// need a second approval.
func buildApproval(ctx context.Context, client *ethclient.Client, token, owner, spender common.Address) (model.PreparedTransaction, error) {
	approveData, err := erc20ABI.Pack("approve", spender, id.MaxUint256)
	if err != nil {
		return model.PreparedTransaction{}, err
	}
	approveGas, err := gasBufferedLimit(ctx, client, ethereum.CallMsg{From: owner, To: &token, Data: approveData})
	if err != nil {
		return model.PreparedTransaction{}, err
	}
	return model.PreparedTransaction{
		To:       token.Hex(),
		Data:     hexData(approveData),
		Value:    "0",
		GasLimit: approveGas.String(),
		ChainID:  id.HomeChainID,
	}, nil
}
