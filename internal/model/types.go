package model

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// PreparedTransaction is the wire contract between the agent and the wallet
// client. Value/gas fields are decimal strings so the JSON survives any
// consumer's number precision. It is produced by a builder, consumed once by
// the signer and never persisted.
type PreparedTransaction struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gasLimit,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
	ChainID  int64  `json:"chainId"`
}

// ToolResult is the universal contract every tool returns (JSON-encoded) so
// the invoker and the UI can treat all tools uniformly. Tx is present only
// for state-changing tools; when present it is non-empty and approval
// transactions precede the transaction they unlock.
type ToolResult struct {
	Status   string                `json:"status,omitempty"`
	LastTool string                `json:"last_tool,omitempty"`
	Tx       []PreparedTransaction `json:"tx,omitempty"`
	Message  string                `json:"message"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string      `json:"message"`
	Context ChatContext `json:"context"`
}

// ChatContext carries per-request caller state into tool execution.
type ChatContext struct {
	Address   string `json:"address"`
	SessionID string `json:"sessionId,omitempty"`
}

// QuoteRequest is the body of the gateway's POST /api/quote.
type QuoteRequest struct {
	Amount      string `json:"amount"`
	FromChain   int64  `json:"fromChain"`
	ToChain     int64  `json:"toChain"`
	FromToken   string `json:"fromToken"`
	ToToken     string `json:"toToken"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress,omitempty"`
	Decimals    int    `json:"decimals"`
}

// QuoteResult is the success payload of POST /api/quote.
type QuoteResult struct {
	FromChain         int64  `json:"fromChain"`
	ToChain           int64  `json:"toChain"`
	FromAmount        string `json:"fromAmount"`
	ToAmount          string `json:"toAmount"`
	ExecutionDuration int64  `json:"executionDuration"`
	GasCosts          any    `json:"gasCosts"`
	Route             any    `json:"route"`
	Quote             any    `json:"quote"`
}

// QuoteResponse is the gateway's quote envelope. Error is one of
// InvalidRequest, NoRouteFound or API_Error when set.
type QuoteResponse struct {
	Error   *string      `json:"error"`
	Message string       `json:"message,omitempty"`
	Result  *QuoteResult `json:"result,omitempty"`
}

const (
	QuoteErrInvalidRequest = "InvalidRequest"
	QuoteErrNoRouteFound   = "NoRouteFound"
	QuoteErrAPIError       = "API_Error"
)
