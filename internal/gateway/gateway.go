// Package gateway is the backend-for-frontend: it brokers wallet-app calls to
// the agent API (injecting the shared secret server-side) and exposes a LiFi
// quote endpoint with locale-tolerant amount parsing.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/loanify/agent/internal/config"
	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/id"
	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/providers/lifi"
)

type Gateway struct {
	agentURL string
	agentKey string
	forward  *retryablehttp.Client
	lifi     *lifi.Client
	log      *logrus.Logger
	http     *http.Server
}

func New(settings config.Settings, lifiClient *lifi.Client, log *logrus.Logger) *Gateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	forward := retryablehttp.NewClient()
	forward.RetryMax = settings.Retries
	forward.HTTPClient.Timeout = settings.Timeout
	forward.Logger = nil

	g := &Gateway{
		agentURL: settings.AgentURL,
		agentKey: settings.AgentAPIKey,
		forward:  forward,
		lifi:     lifiClient,
		log:      log,
	}
	g.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", settings.Port),
		Handler:      g.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: settings.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return g
}

func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chatWithAgent", g.handleChatWithAgent)
	mux.HandleFunc("/api/quote", g.handleQuote)
	return mux
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (g *Gateway) Run() error {
	errCh := make(chan error, 1)
	go func() {
		g.log.WithField("addr", g.http.Addr).Info("Gateway listening")
		err := g.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		g.log.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := g.http.Shutdown(ctx); err != nil {
		return agenterr.Wrap(agenterr.CodeInternal, "gateway shutdown", err)
	}
	return <-errCh
}

// handleChatWithAgent relays the wallet app's chat body to the agent API with
// the shared key attached. Transport or decode failures collapse to an empty
// object so the app never sees a gateway-level error for an agent outage.
func (g *Gateway) handleChatWithAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	result := g.forwardToAgent(r.Context(), body)
	writeJSON(w, http.StatusOK, result)
}

func (g *Gateway) forwardToAgent(ctx context.Context, body []byte) json.RawMessage {
	empty := json.RawMessage(`{}`)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.agentURL, bytes.NewReader(body))
	if err != nil {
		g.log.WithError(err).Warn("Agent request build failed")
		return empty
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", g.agentKey)

	resp, err := g.forward.Do(req)
	if err != nil {
		g.log.WithError(err).Warn("Agent unreachable")
		return empty
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil || !json.Valid(payload) {
		g.log.Warn("Agent returned an unreadable body")
		return empty
	}
	return json.RawMessage(payload)
}

func (g *Gateway) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req model.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeQuoteError(w, http.StatusBadRequest, model.QuoteErrAPIError, "Invalid request body")
		return
	}

	sanitized := id.SanitizeLocaleAmount(req.Amount, req.Decimals)
	if strings.TrimSpace(req.FromToken) == "" || strings.TrimSpace(req.ToToken) == "" || sanitized == "0" {
		writeQuoteError(w, http.StatusBadRequest, model.QuoteErrInvalidRequest, "Invalid amount or missing tokens.")
		return
	}

	quote, err := g.lifi.Quote(r.Context(), lifi.QuoteParams{
		FromChainID:   req.FromChain,
		ToChainID:     req.ToChain,
		FromToken:     req.FromToken,
		ToToken:       req.ToToken,
		FromAmount:    sanitized,
		FromAddress:   req.FromAddress,
		ToAddress:     req.ToAddress,
		Order:         "FASTEST",
		DenyExchanges: []string{"fly"},
	})
	if err != nil {
		if typed, ok := agenterr.As(err); ok && typed.Code == agenterr.CodeNoRoute {
			writeQuoteError(w, http.StatusNotFound, model.QuoteErrNoRouteFound,
				"No route available. Try changing the amount or token pair.")
			return
		}
		g.log.WithError(err).Error("Quote failed")
		writeQuoteError(w, http.StatusInternalServerError, model.QuoteErrAPIError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.QuoteResponse{
		Error: nil,
		Result: &model.QuoteResult{
			FromChain:         req.FromChain,
			ToChain:           req.ToChain,
			FromAmount:        quote.Action.FromAmount,
			ToAmount:          quote.Estimate.ToAmount,
			ExecutionDuration: quote.Estimate.ExecutionDuration,
			GasCosts:          quote.Estimate.GasCosts,
			Route:             quoteToRoute(quote),
			Quote:             quote,
		},
	})
}

// quoteToRoute reshapes a single quote into the route form the wallet app's
// execution screen expects: the quote becomes the route's only step.
func quoteToRoute(q lifi.Quote) map[string]any {
	return map[string]any{
		"id":          q.ID,
		"fromChainId": q.Action.FromChainID,
		"toChainId":   q.Action.ToChainID,
		"fromAmount":  q.Action.FromAmount,
		"toAmount":    q.Estimate.ToAmount,
		"steps":       []lifi.Quote{q},
	}
}

func writeQuoteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.QuoteResponse{Error: &code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
