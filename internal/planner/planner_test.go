package planner

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loanify/agent/internal/httpx"
	"github.com/loanify/agent/internal/providers/lifi"
)

const testSender = "0x00000000000000000000000000000000000000AA"

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcCallParams struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Input string `json:"input"`
}

func (p rpcCallParams) calldata() string {
	if p.Input != "" {
		return p.Input
	}
	return p.Data
}

// fakeChain answers the subset of JSON-RPC the builders use: allowance and
// balanceOf reads via eth_call, eth_estimateGas and eth_gasPrice.
type fakeChain struct {
	allowance *big.Int
	balance   *big.Int
	gas       uint64
	gasPrice  *big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		allowance: big.NewInt(0),
		balance:   big.NewInt(0),
		gas:       100_000,
		gasPrice:  big.NewInt(1_000_000_000),
	}
}

func (f *fakeChain) server(t *testing.T) *httptest.Server {
	t.Helper()
	allowanceSel := hex.EncodeToString(erc20ABI.Methods["allowance"].ID)
	balanceSel := hex.EncodeToString(erc20ABI.Methods["balanceOf"].ID)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch req.Method {
		case "eth_call":
			var call rpcCallParams
			if len(req.Params) > 0 {
				if err := json.Unmarshal(req.Params[0], &call); err != nil {
					writeRPCError(w, req.ID, -32602, err.Error())
					return
				}
			}
			selector := strings.TrimPrefix(call.calldata(), "0x")[:8]
			switch selector {
			case allowanceSel:
				writeUint256Result(t, w, req.ID, "allowance", f.allowance)
			case balanceSel:
				writeUint256Result(t, w, req.ID, "balanceOf", f.balance)
			default:
				writeRPCError(w, req.ID, -32601, "unexpected eth_call selector "+selector)
			}
		case "eth_estimateGas":
			writeRPCResult(w, req.ID, fmt.Sprintf("0x%x", f.gas))
		case "eth_gasPrice":
			writeRPCResult(w, req.ID, fmt.Sprintf("0x%x", f.gasPrice))
		default:
			writeRPCError(w, req.ID, -32601, "method not supported in test: "+req.Method)
		}
	}))
}

func writeUint256Result(t *testing.T, w http.ResponseWriter, id json.RawMessage, method string, value *big.Int) {
	t.Helper()
	encoded, err := erc20ABI.Methods[method].Outputs.Pack(value)
	if err != nil {
		t.Fatalf("pack %s response: %v", method, err)
	}
	writeRPCResult(w, id, "0x"+hex.EncodeToString(encoded))
}

func writeRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%q}`, rawID(id), result)
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":%d,"message":%q}}`, rawID(id), code, message)
}

func rawID(id json.RawMessage) string {
	if len(id) == 0 {
		return "1"
	}
	return string(id)
}

func newQuoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{
			"id": "q-1",
			"tool": "stargate",
			"action": {"fromChainId": 8453, "toChainId": 42161, "fromAmount": "1000000"},
			"estimate": {
				"toAmount": "995000",
				"toAmountMin": "990000",
				"approvalAddress": "0x0000000000000000000000000000000000000DDD",
				"executionDuration": 45,
				"gasCosts": [{"amountUSD":"0.10"}]
			},
			"toolDetails": {"key":"stargate","name":"Stargate"},
			"transactionRequest": {
				"to": "0x0000000000000000000000000000000000000DDD",
				"data": "0x1234",
				"value": "0x0",
				"chainId": 8453
			}
		}`)
	}))
}

func newTestPlanner(t *testing.T, rpcURL, quoteURL string) *Planner {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	lifiClient := lifi.New(httpx.New(2*time.Second, 0), "")
	if quoteURL != "" {
		lifiClient.SetBaseURL(quoteURL)
	}
	p, err := New(lifiClient, rpcURL, log)
	if err != nil {
		t.Fatalf("New planner: %v", err)
	}
	return p
}
