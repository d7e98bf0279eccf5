package planner

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/id"
	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/providers/lifi"
	"github.com/loanify/agent/internal/registry"
)

const toolBorrowAndBridge = "borrow_and_bridge"

// BorrowAndBridgeParams is the argument set of the composite borrow tool.
// ToTokenSymbol defaults to USDC, DestinationChainName to the home chain and
// ToAddress to the sender.
type BorrowAndBridgeParams struct {
	BorrowAmountUSDC     string
	ToTokenSymbol        string
	DestinationChainName string
	ToAddress            string
}

// BuildBorrowAndBridge prepares the composite flow: borrow only the USDC
// shortfall against the wallet's existing balance, then route the full target
// amount onward. Depending on the target it appends a routed swap/bridge, a
// plain USDC transfer, or nothing (target is the sender's own wallet on the
// home chain).
func (p *Planner) BuildBorrowAndBridge(ctx context.Context, params BorrowAndBridgeParams, address string) model.ToolResult {
	result, err := p.buildBorrowAndBridge(ctx, params, address)
	if err != nil {
		p.log.WithError(err).WithField("tool", toolBorrowAndBridge).Warn("borrow-and-bridge preparation failed")
		return model.ToolResult{Status: model.StatusFail, Message: err.Error()}
	}
	return result
}

func (p *Planner) buildBorrowAndBridge(ctx context.Context, params BorrowAndBridgeParams, address string) (model.ToolResult, error) {
	sender, err := parseSender(address)
	if err != nil {
		return model.ToolResult{}, err
	}
	targetRaw, err := id.DecimalToBaseUnits(params.BorrowAmountUSDC, registry.USDCDecimals)
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

	balance, err := readBalance(ctx, client, usdc, sender)
	if err != nil {
		return model.ToolResult{}, err
	}

	var txs []model.PreparedTransaction
	shortfall := new(big.Int)
	isBorrow := balance.Cmp(targetRaw) < 0
	if isBorrow {
		shortfall.Sub(targetRaw, balance)
		borrowData, err := aavePoolABI.Pack("borrow", usdc, shortfall, big.NewInt(registry.VariableRateMode), uint16(0), sender)
		if err != nil {
			return model.ToolResult{}, err
		}
		txs = append(txs, model.PreparedTransaction{
			To:      pool.Hex(),
			Data:    hexData(borrowData),
			Value:   "0",
			ChainID: id.HomeChainID,
		})
	}

	targetSymbol := strings.ToUpper(strings.TrimSpace(params.ToTokenSymbol))
	if targetSymbol == "" {
		targetSymbol = "USDC"
	}
	targetChainID := id.HomeChainID
	targetChainName := "Base"
	destName := strings.TrimSpace(params.DestinationChainName)
	if destName != "" && !strings.EqualFold(destName, "base") {
		destChain, err := id.BestNetworkMatch(destName)
		if err != nil {
			return model.ToolResult{}, agenterr.New(agenterr.CodeUsage, fmt.Sprintf("Chain %q not supported.", destName))
		}
		targetChainID = destChain.ID
		targetChainName = destChain.Name
	}

	needsRoute := targetChainID != id.HomeChainID || targetSymbol != "USDC"
	isBridge := targetChainID != id.HomeChainID
	toAddress := strings.TrimSpace(params.ToAddress)
	isTransfer := !needsRoute && toAddress != "" && !strings.EqualFold(toAddress, sender.Hex())

	switch {
	case needsRoute:
		toToken, err := id.TokenBySymbol(targetSymbol, targetChainID)
		if err != nil {
			return model.ToolResult{}, agenterr.New(agenterr.CodeUsage,
				fmt.Sprintf("Token %s not found on %s.", targetSymbol, targetChainName))
		}
		quote, err := p.lifi.Quote(ctx, lifi.QuoteParams{
			FromChainID: id.HomeChainID,
			ToChainID:   targetChainID,
			FromToken:   registry.USDCBase,
			ToToken:     toToken.Address,
			FromAmount:  targetRaw.String(),
			FromAddress: sender.Hex(),
			ToAddress:   toAddress,
		})
		if err != nil {
			return model.ToolResult{}, err
		}
		router := common.HexToAddress(quote.TransactionRequest.To)
		approveTx, err := p.routeApprovalIfNeeded(ctx, client, usdc, sender, router, targetRaw)
		if err != nil {
			return model.ToolResult{}, err
		}
		if approveTx != nil {
			txs = append(txs, *approveTx)
		}
		value := "0"
		if toToken.IsNative() {
			value = targetRaw.String()
		}
		txs = append(txs, model.PreparedTransaction{
			To:      router.Hex(),
			Data:    quote.TransactionRequest.Data,
			Value:   value,
			ChainID: id.HomeChainID,
		})
	case isTransfer:
		transferData, err := erc20ABI.Pack("transfer", common.HexToAddress(toAddress), targetRaw)
		if err != nil {
			return model.ToolResult{}, err
		}
		txs = append(txs, model.PreparedTransaction{
			To:      usdc.Hex(),
			Data:    hexData(transferData),
			Value:   "0",
			ChainID: id.HomeChainID,
		})
	}

	message := composeBorrowMessage(borrowMessageInputs{
		isBorrow:        isBorrow,
		needsRoute:      needsRoute,
		isBridge:        isBridge,
		isTransfer:      isTransfer,
		shortfall:       shortfall,
		targetRaw:       targetRaw,
		targetSymbol:    targetSymbol,
		targetChainName: targetChainName,
		toAddress:       toAddress,
		txCount:         len(txs),
	})

	return model.ToolResult{
		Status:   model.StatusSuccess,
		LastTool: toolBorrowAndBridge,
		Tx:       txs,
		Message:  message,
	}, nil
}

// routeApprovalIfNeeded returns an unlimited-approval transaction for the
// router when the current allowance cannot cover amount, nil otherwise.
// Allowance read failures degrade to zero rather than aborting the plan.
func (p *Planner) routeApprovalIfNeeded(ctx context.Context, client *ethclient.Client, token common.Address, owner, spender common.Address, amount *big.Int) (*model.PreparedTransaction, error) {
	allowance, err := readAllowance(ctx, client, token, owner, spender)
	if err != nil {
		p.log.WithError(err).Warn("allowance check failed, assuming zero")
		allowance = new(big.Int)
	}
	if allowance.Cmp(amount) >= 0 {
		return nil, nil
	}
	approveData, err := erc20ABI.Pack("approve", spender, id.MaxUint256)
	if err != nil {
		return nil, err
	}
	return &model.PreparedTransaction{
		To:      token.Hex(),
		Data:    hexData(approveData),
		Value:   "0",
		ChainID: id.HomeChainID,
	}, nil
}

type borrowMessageInputs struct {
	isBorrow        bool
	needsRoute      bool
	isBridge        bool
	isTransfer      bool
	shortfall       *big.Int
	targetRaw       *big.Int
	targetSymbol    string
	targetChainName string
	toAddress       string
	txCount         int
}

func composeBorrowMessage(in borrowMessageInputs) string {
	var b strings.Builder
	b.WriteString("I've prepared your request: ")

	borrowStr := ""
	if in.isBorrow {
		borrowStr = fmt.Sprintf("borrowing **%s USDC**", id.FormatBaseUnits(in.shortfall, registry.USDCDecimals))
	}

	switch {
	case in.needsRoute:
		actionStr := fmt.Sprintf("swapping for **%s**", in.targetSymbol)
		if in.isBridge {
			actionStr = fmt.Sprintf("bridging to **%s** on **%s**", in.targetSymbol, in.targetChainName)
		}
		if in.isBorrow {
			b.WriteString(borrowStr + " and then " + actionStr + ".")
		} else {
			b.WriteString("Using balance to " + actionStr + ".")
		}
	case in.isTransfer:
		if in.isBorrow {
			b.WriteString(borrowStr + fmt.Sprintf(" and sending it to **%s** on Base.", in.toAddress))
		} else {
			b.WriteString(fmt.Sprintf("Sending **%s USDC** from your balance to **%s**.",
				id.FormatBaseUnits(in.targetRaw, registry.USDCDecimals), in.toAddress))
		}
	default:
		if in.isBorrow {
			b.WriteString(fmt.Sprintf("borrowing **%s USDC** to your wallet.", id.FormatBaseUnits(in.shortfall, registry.USDCDecimals)))
		} else {
			b.WriteString("You already have the desired USDC balance in your wallet.")
		}
	}

	b.WriteString(fmt.Sprintf("\n\n**Please sign the %d transaction(s).**", in.txCount))
	return b.String()
}
