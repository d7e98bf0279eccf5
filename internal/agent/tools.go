package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/planner"
	"github.com/loanify/agent/internal/providers/duckduckgo"
)

// FallbackToolName is forced when the model selects no tool, so every graph
// run terminates through a tool result.
const FallbackToolName = "fallback"

const fallbackGreeting = "Welcome to Loanify, your DeFi liquidity strategist. \n\nI can help you supply assets or manage loans on Aave, and execute cross-chain bridges or swaps via LiFi. \n\nWhat is your next move? You can say things like: \n\nSupply 1 ETH to Aave, or Bridge USDC to Base."

// Tool wraps a builder as a named, schema-described callable. Handlers take
// the raw JSON arguments chosen by the model plus the per-request chat
// context (wallet address), and always produce a ToolResult.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, args json.RawMessage, chatCtx model.ChatContext) model.ToolResult
}

// Registry holds the agent's tools in a stable order.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools = append(r.tools, t)
		r.byName[t.Name] = t
	}
	return r
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Specs returns the schema advertisements for a model invocation.
func (r *Registry) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, ToolSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return specs
}

// Execute runs a named tool. Unknown names and malformed arguments become
// fail results rather than errors, mirroring how the builders handle their
// own failures.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage, chatCtx model.ChatContext) model.ToolResult {
	t, ok := r.Lookup(name)
	if !ok {
		return model.ToolResult{
			Status:  model.StatusFail,
			Message: fmt.Sprintf("Tool %q is not available.", name),
		}
	}
	return t.Handler(ctx, args, chatCtx)
}

func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func decodeArgs(args json.RawMessage, out any) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, out)
}

func badArgs(tool string, err error) model.ToolResult {
	return model.ToolResult{
		Status:   model.StatusFail,
		LastTool: tool,
		Message:  fmt.Sprintf("Invalid tool arguments: %v", err),
	}
}

// DefaultRegistry wires the full tool set: the greeting fallback, web search
// and the five transaction builders.
func DefaultRegistry(p *planner.Planner, search *duckduckgo.Client) *Registry {
	return NewRegistry(
		fallbackTool(),
		webSearchTool(search),
		depositTool(p),
		repayTool(p),
		withdrawTool(p),
		swapOrBridgeTool(p),
		borrowAndBridgeTool(p),
	)
}

func fallbackTool() Tool {
	return Tool{
		Name:        FallbackToolName,
		Description: "Loanify greeting covering Aave lending and LiFi bridging.",
		Parameters:  objectSchema(nil, map[string]any{}),
		Handler: func(context.Context, json.RawMessage, model.ChatContext) model.ToolResult {
			return model.ToolResult{
				Status:   model.StatusSuccess,
				LastTool: FallbackToolName,
				Message:  fallbackGreeting,
			}
		},
	}
}

func webSearchTool(search *duckduckgo.Client) Tool {
	return Tool{
		Name:        "web_search",
		Description: "Searches the web for current information, facts, and news.",
		Parameters: objectSchema([]string{"query"}, map[string]any{
			"query": stringProp("The search query"),
		}),
		Handler: func(ctx context.Context, args json.RawMessage, _ model.ChatContext) model.ToolResult {
			var in struct {
				Query string `json:"query"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return badArgs("web_search", err)
			}
			res, err := search.Search(ctx, in.Query)
			if err != nil {
				return model.ToolResult{Status: model.StatusFail, LastTool: "web_search", Message: err.Error()}
			}
			return model.ToolResult{Status: model.StatusSuccess, LastTool: "web_search", Message: res}
		},
	}
}

func depositTool(p *planner.Planner) Tool {
	return Tool{
		Name:        "prepare_aave_deposit",
		Description: "Prepares a transaction object for depositing ETH into Aave on Base. This executes when user wants to deposit or supply ETH into Aave.",
		Parameters: objectSchema([]string{"amountInEth"}, map[string]any{
			"amountInEth": stringProp("The amount of ETH to supply (e.g. 0.01)"),
		}),
		Handler: func(ctx context.Context, args json.RawMessage, chatCtx model.ChatContext) model.ToolResult {
			var in struct {
				AmountInEth string `json:"amountInEth"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return badArgs("prepare_aave_deposit", err)
			}
			return p.BuildAaveDeposit(ctx, in.AmountInEth, chatCtx.Address)
		},
	}
}

func repayTool(p *planner.Planner) Tool {
	return Tool{
		Name:        "prepare_aave_repay",
		Description: "Prepares transactions to repay borrowed USDC on Aave. Handles ERC20 approval if necessary.",
		Parameters: objectSchema([]string{"amountUsdc"}, map[string]any{
			"amountUsdc": stringProp("Amount to repay or 'MAX' to clear the full debt."),
		}),
		Handler: func(ctx context.Context, args json.RawMessage, chatCtx model.ChatContext) model.ToolResult {
			var in struct {
				AmountUsdc string `json:"amountUsdc"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return badArgs("prepare_aave_repay", err)
			}
			return p.BuildAaveRepay(ctx, in.AmountUsdc, chatCtx.Address)
		},
	}
}

func withdrawTool(p *planner.Planner) Tool {
	return Tool{
		Name:        "prepare_aave_withdraw",
		Description: "Prepares transactions to withdraw ETH from Aave on Base. Handles aWETH approval if necessary.",
		Parameters: objectSchema([]string{"amountEth"}, map[string]any{
			"amountEth": stringProp("Amount of ETH to withdraw or 'MAX' for full balance."),
		}),
		Handler: func(ctx context.Context, args json.RawMessage, chatCtx model.ChatContext) model.ToolResult {
			var in struct {
				AmountEth string `json:"amountEth"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return badArgs("prepare_aave_withdraw", err)
			}
			return p.BuildAaveWithdraw(ctx, in.AmountEth, chatCtx.Address)
		},
	}
}

func swapOrBridgeTool(p *planner.Planner) Tool {
	return Tool{
		Name:        "prepare_swap_or_bridge",
		Description: "Swaps or bridges tokens from Base. Can send to an optional destination address.",
		Parameters: objectSchema([]string{"fromTokenSymbol", "toTokenSymbol", "amount", "swap"}, map[string]any{
			"fromTokenSymbol":      stringProp("Token to send from Base"),
			"toTokenSymbol":        stringProp("Token to receive"),
			"destinationChainName": stringProp("Target chain name (ignored if swap is true)"),
			"amount":               stringProp("Human amount (e.g., '10.5')"),
			"swap":                 map[string]any{"type": "boolean", "description": "True for swap on Base, false for bridge"},
			"toAddress":            stringProp("Optional destination wallet address if different from sender"),
		}),
		Handler: func(ctx context.Context, args json.RawMessage, chatCtx model.ChatContext) model.ToolResult {
			var in struct {
				FromTokenSymbol      string `json:"fromTokenSymbol"`
				ToTokenSymbol        string `json:"toTokenSymbol"`
				DestinationChainName string `json:"destinationChainName"`
				Amount               string `json:"amount"`
				Swap                 bool   `json:"swap"`
				ToAddress            string `json:"toAddress"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return badArgs("prepare_swap_or_bridge", err)
			}
			return p.BuildSwapOrBridge(ctx, planner.SwapOrBridgeParams{
				FromTokenSymbol:      in.FromTokenSymbol,
				ToTokenSymbol:        in.ToTokenSymbol,
				DestinationChainName: in.DestinationChainName,
				Amount:               in.Amount,
				Swap:                 in.Swap,
				ToAddress:            in.ToAddress,
			}, chatCtx.Address)
		},
	}
}

func borrowAndBridgeTool(p *planner.Planner) Tool {
	return Tool{
		Name:        "borrow_and_bridge",
		Description: "Comprehensive DeFi tool to borrow USDC from Aave (only if the wallet balance is insufficient) and then optionally transfer, swap, or bridge the total amount to a target token, chain, or recipient.",
		Parameters: objectSchema([]string{"borrowAmountUsdc"}, map[string]any{
			"borrowAmountUsdc":     stringProp("Amount of USDC to borrow (e.g. '1000')"),
			"toTokenSymbol":        stringProp("Target token (defaults to USDC if empty)"),
			"destinationChainName": stringProp("Target chain (defaults to Base if empty)"),
			"toAddress":            stringProp("Recipient address (defaults to sender if empty)"),
		}),
		Handler: func(ctx context.Context, args json.RawMessage, chatCtx model.ChatContext) model.ToolResult {
			var in struct {
				BorrowAmountUsdc     string `json:"borrowAmountUsdc"`
				ToTokenSymbol        string `json:"toTokenSymbol"`
				DestinationChainName string `json:"destinationChainName"`
				ToAddress            string `json:"toAddress"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return badArgs("borrow_and_bridge", err)
			}
			return p.BuildBorrowAndBridge(ctx, planner.BorrowAndBridgeParams{
				BorrowAmountUSDC:     in.BorrowAmountUsdc,
				ToTokenSymbol:        in.ToTokenSymbol,
				DestinationChainName: in.DestinationChainName,
				ToAddress:            in.ToAddress,
			}, chatCtx.Address)
		},
	}
}
