package planner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/loanify/agent/internal/id"
	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/registry"
)

const toolAaveDeposit = "prepare_aave_deposit"

// BuildAaveDeposit prepares a single depositETH transaction through the
// wrapped-token gateway. Native ETH rides along as the transaction value, so
// no approval is ever needed.
func (p *Planner) BuildAaveDeposit(ctx context.Context, amountETH, address string) model.ToolResult {
	result, err := p.buildAaveDeposit(ctx, amountETH, address)
	if err != nil {
		p.log.WithError(err).WithField("tool", toolAaveDeposit).Warn("deposit preparation failed")
		return p.fail(toolAaveDeposit, "Failed to prepare transaction. Ensure you have enough ETH for the deposit and gas.")
	}
	return result
}

func (p *Planner) buildAaveDeposit(ctx context.Context, amountETH, address string) (model.ToolResult, error) {
	sender, err := parseSender(address)
	if err != nil {
		return model.ToolResult{}, err
	}
	amountWei, err := id.DecimalToBaseUnits(amountETH, 18)
	if err != nil {
		return model.ToolResult{}, err
	}

	client, err := p.dial(ctx)
	if err != nil {
		return model.ToolResult{}, err
	}
	defer client.Close()

	gateway := common.HexToAddress(registry.WETHGatewayBase)
	pool := common.HexToAddress(registry.AavePoolBase)
	data, err := wethGatewayABI.Pack("depositETH", pool, sender, uint16(0))
	if err != nil {
		return model.ToolResult{}, err
	}

	gasLimit, err := gasBufferedLimit(ctx, client, ethereum.CallMsg{
		From:  sender,
		To:    &gateway,
		Data:  data,
		Value: amountWei,
	})
	if err != nil {
		return model.ToolResult{}, err
	}
	gasPrice, err := suggestGasPrice(ctx, client)
	if err != nil {
		return model.ToolResult{}, err
	}

	return model.ToolResult{
		Status:   model.StatusSuccess,
		LastTool: toolAaveDeposit,
		Tx: []model.PreparedTransaction{{
			To:       gateway.Hex(),
			Data:     hexData(data),
			Value:    amountWei.String(),
			GasLimit: gasLimit.String(),
			GasPrice: gasPrice.String(),
			ChainID:  id.HomeChainID,
		}},
		Message: fmt.Sprintf(
			"I've prepared the transaction to deposit %s ETH into Aave on Base. The estimated gas price is %s gwei. Please confirm the transaction in your wallet.",
			amountETH, formatGwei(gasPrice),
		),
	}, nil
}
