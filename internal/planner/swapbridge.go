package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/id"
	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/providers/lifi"
)

const toolSwapOrBridge = "prepare_swap_or_bridge"

// SwapOrBridgeParams is the argument set of the swap/bridge tool. The source
// side is always the home chain; DestinationChainName is ignored when Swap is
// true.
type SwapOrBridgeParams struct {
	FromTokenSymbol      string
	ToTokenSymbol        string
	DestinationChainName string
	Amount               string
	Swap                 bool
	ToAddress            string
}

// BuildSwapOrBridge prepares a routed swap (same chain) or bridge (cross
// chain) from the home chain. An approval is prepended only when the source
// token is an ERC20 whose allowance for the router falls short of the input.
func (p *Planner) BuildSwapOrBridge(ctx context.Context, params SwapOrBridgeParams, address string) model.ToolResult {
	result, err := p.buildSwapOrBridge(ctx, params, address)
	if err != nil {
		p.log.WithError(err).WithField("tool", toolSwapOrBridge).Warn("swap/bridge preparation failed")
		return model.ToolResult{Status: model.StatusFail, Message: err.Error()}
	}
	return result
}

func (p *Planner) buildSwapOrBridge(ctx context.Context, params SwapOrBridgeParams, address string) (model.ToolResult, error) {
	sender, err := parseSender(address)
	if err != nil {
		return model.ToolResult{}, err
	}

	toChainID := id.HomeChainID
	destName := "Base"
	if !params.Swap {
		destChain, err := id.BestNetworkMatch(params.DestinationChainName)
		if err != nil {
			return model.ToolResult{}, agenterr.New(agenterr.CodeUsage,
				fmt.Sprintf("Could not find a network similar to %q.", params.DestinationChainName))
		}
		toChainID = destChain.ID
		destName = destChain.Name
		p.log.WithFields(map[string]any{
			"input":   params.DestinationChainName,
			"matched": destName,
		}).Debug("fuzzy matched destination chain")
	}

	fromToken, err := id.TokenBySymbol(params.FromTokenSymbol, id.HomeChainID)
	if err != nil {
		return model.ToolResult{}, err
	}
	toToken, err := id.TokenBySymbol(params.ToTokenSymbol, toChainID)
	if err != nil {
		return model.ToolResult{}, err
	}

	rawAmount, err := id.DecimalToBaseUnits(params.Amount, fromToken.Decimals)
	if err != nil {
		return model.ToolResult{}, err
	}

	quote, err := p.lifi.Quote(ctx, lifi.QuoteParams{
		FromChainID: id.HomeChainID,
		ToChainID:   toChainID,
		FromToken:   fromToken.Address,
		ToToken:     toToken.Address,
		FromAmount:  rawAmount.String(),
		FromAddress: sender.Hex(),
		ToAddress:   params.ToAddress,
	})
	if err != nil {
		return model.ToolResult{}, err
	}

	var txs []model.PreparedTransaction
	router := common.HexToAddress(quote.TransactionRequest.To)

	if !fromToken.IsNative() {
		client, err := p.dial(ctx)
		if err != nil {
			return model.ToolResult{}, err
		}
		defer client.Close()

		tokenAddr := common.HexToAddress(fromToken.Address)
		allowance, err := readAllowance(ctx, client, tokenAddr, sender, router)
		if err != nil {
			return model.ToolResult{}, err
		}
		if allowance.Cmp(rawAmount) < 0 {
			approveData, err := erc20ABI.Pack("approve", router, id.MaxUint256)
			if err != nil {
				return model.ToolResult{}, err
			}
			txs = append(txs, model.PreparedTransaction{
				To:      tokenAddr.Hex(),
				Data:    hexData(approveData),
				Value:   "0",
				ChainID: id.HomeChainID,
			})
		}
	}

	value := quote.TransactionRequest.Value
	if fromToken.IsNative() {
		value = rawAmount.String()
	}
	txs = append(txs, model.PreparedTransaction{
		To:      router.Hex(),
		Data:    quote.TransactionRequest.Data,
		Value:   value,
		ChainID: id.HomeChainID,
	})

	verb := "bridge"
	if params.Swap {
		verb = "swap"
	}
	message := fmt.Sprintf("I've prepared your %s of %s %s on %s.", verb, params.Amount, fromToken.Symbol, destName)
	if params.ToAddress != "" && !strings.EqualFold(params.ToAddress, sender.Hex()) {
		message = fmt.Sprintf("I've prepared a %s to send %s %s to %s on %s.", verb, params.Amount, fromToken.Symbol, params.ToAddress, destName)
	}

	return model.ToolResult{
		Status:   model.StatusSuccess,
		LastTool: toolSwapOrBridge,
		Tx:       txs,
		Message:  message,
	}, nil
}
