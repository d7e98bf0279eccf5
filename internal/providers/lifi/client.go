package lifi

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/httpx"
	"github.com/loanify/agent/internal/registry"
)

// Client fetches executable swap/bridge quotes from the LiFi routing API.
// Quotes come back with an EVM transaction payload ready to sign; hex-encoded
// numeric fields are normalized to decimal strings before the quote is
// returned, so callers never see raw 0x values.
type Client struct {
	http       *httpx.Client
	baseURL    string
	apiKey     string
	integrator string
}

func New(httpClient *httpx.Client, apiKey string) *Client {
	return &Client{
		http:       httpClient,
		baseURL:    registry.LiFiBaseURL,
		apiKey:     apiKey,
		integrator: "loanify",
	}
}

// SetBaseURL overrides the routing API endpoint, for configuration and
// tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// QuoteParams identifies a single-step route request. FromAmount is in the
// source token's base units. ToAddress defaults to FromAddress when empty.
type QuoteParams struct {
	FromChainID   int64
	ToChainID     int64
	FromToken     string
	ToToken       string
	FromAmount    string
	FromAddress   string
	ToAddress     string
	Order         string
	DenyExchanges []string
}

// GasCost is one entry of the quote's estimated gas cost breakdown.
type GasCost struct {
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	AmountUSD string `json:"amountUSD"`
	Token     struct {
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	} `json:"token"`
}

// Quote is the subset of the LiFi quote response the agent and gateway use.
type Quote struct {
	ID     string `json:"id"`
	Tool   string `json:"tool"`
	Action struct {
		FromChainID int64  `json:"fromChainId"`
		ToChainID   int64  `json:"toChainId"`
		FromAmount  string `json:"fromAmount"`
	} `json:"action"`
	Estimate struct {
		ToAmount          string    `json:"toAmount"`
		ToAmountMin       string    `json:"toAmountMin"`
		ApprovalAddress   string    `json:"approvalAddress"`
		ExecutionDuration int64     `json:"executionDuration"`
		GasCosts          []GasCost `json:"gasCosts"`
	} `json:"estimate"`
	ToolDetails struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"toolDetails"`
	TransactionRequest struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		ChainID  int64  `json:"chainId"`
		GasLimit string `json:"gasLimit"`
		GasPrice string `json:"gasPrice"`
	} `json:"transactionRequest"`
}

func (c *Client) Quote(ctx context.Context, params QuoteParams) (Quote, error) {
	if strings.TrimSpace(params.FromAmount) == "" {
		return Quote{}, agenterr.New(agenterr.CodeUsage, "quote requires a from amount in base units")
	}
	if strings.TrimSpace(params.FromAddress) == "" {
		return Quote{}, agenterr.New(agenterr.CodeUsage, "quote requires a from address")
	}
	toAddress := strings.TrimSpace(params.ToAddress)
	if toAddress == "" {
		toAddress = params.FromAddress
	}

	vals := url.Values{}
	vals.Set("fromChain", strconv.FormatInt(params.FromChainID, 10))
	vals.Set("toChain", strconv.FormatInt(params.ToChainID, 10))
	vals.Set("fromToken", params.FromToken)
	vals.Set("toToken", params.ToToken)
	vals.Set("fromAmount", params.FromAmount)
	vals.Set("fromAddress", params.FromAddress)
	vals.Set("toAddress", toAddress)
	vals.Set("integrator", c.integrator)
	if params.Order != "" {
		vals.Set("order", params.Order)
	}
	for _, deny := range params.DenyExchanges {
		vals.Add("denyExchanges", deny)
	}

	reqURL := c.baseURL + "/quote?" + vals.Encode()
	hReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Quote{}, agenterr.Wrap(agenterr.CodeInternal, "build quote request", err)
	}
	if c.apiKey != "" {
		hReq.Header.Set("x-lifi-api-key", c.apiKey)
	}

	var quote Quote
	if _, err := c.http.DoJSON(ctx, hReq, &quote); err != nil {
		return Quote{}, err
	}
	if strings.TrimSpace(quote.TransactionRequest.To) == "" || strings.TrimSpace(quote.TransactionRequest.Data) == "" {
		return Quote{}, agenterr.New(agenterr.CodeNoRoute, "quote missing executable transaction payload")
	}
	if quote.TransactionRequest.ChainID != 0 && quote.TransactionRequest.ChainID != params.FromChainID {
		return Quote{}, agenterr.New(agenterr.CodeInternal, "quote transaction chain does not match source chain")
	}

	quote.TransactionRequest.Data = ensureHexPrefix(quote.TransactionRequest.Data)
	if quote.TransactionRequest.Value, err = hexToDecimal(quote.TransactionRequest.Value); err != nil {
		return Quote{}, agenterr.Wrap(agenterr.CodeInternal, "parse quote transaction value", err)
	}
	if quote.TransactionRequest.GasLimit, err = hexToDecimal(quote.TransactionRequest.GasLimit); err != nil {
		return Quote{}, agenterr.Wrap(agenterr.CodeInternal, "parse quote gas limit", err)
	}
	if quote.TransactionRequest.GasPrice, err = hexToDecimal(quote.TransactionRequest.GasPrice); err != nil {
		return Quote{}, agenterr.Wrap(agenterr.CodeInternal, "parse quote gas price", err)
	}
	return quote, nil
}

// RouteName returns a human-readable label for the quote's route.
func (q Quote) RouteName() string {
	if strings.TrimSpace(q.ToolDetails.Name) != "" {
		return q.ToolDetails.Name
	}
	return q.Tool
}

func ensureHexPrefix(v string) string {
	clean := strings.TrimSpace(v)
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		return clean
	}
	return "0x" + clean
}

func hexToDecimal(v string) (string, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return "0", nil
	}
	if !strings.HasPrefix(clean, "0x") && !strings.HasPrefix(clean, "0X") {
		if _, ok := new(big.Int).SetString(clean, 10); !ok {
			return "", fmt.Errorf("invalid numeric value %q", v)
		}
		return clean, nil
	}
	n := new(big.Int)
	if _, ok := n.SetString(clean[2:], 16); !ok {
		return "", fmt.Errorf("invalid hex value %q", v)
	}
	return n.String(), nil
}
