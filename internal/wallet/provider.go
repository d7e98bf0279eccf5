// Package wallet holds the signing account, its session lifecycle and the
// sequential executor for prepared transaction batches.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/id"
)

type Status string

const (
	StatusLoading      Status = "loading"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

const sessionTTL = 7 * 24 * time.Hour

type session struct {
	Address   string `json:"address"`
	ExpiresAt int64  `json:"expiresAt"`
}

type Provider struct {
	mu sync.Mutex

	client      *ethclient.Client
	signer      Signer
	sessionPath string
	log         *logrus.Entry

	status  Status
	account common.Address
	balance string

	pollInterval time.Duration
	stepTimeout  time.Duration
}

func NewProvider(rpcURL string, txSigner Signer, sessionPath string, log *logrus.Logger) (*Provider, error) {
	if txSigner == nil {
		return nil, agenterr.New(agenterr.CodeUsage, "wallet requires a signer")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUnavailable, "connect wallet rpc", err)
	}
	return &Provider{
		client:       client,
		signer:       txSigner,
		sessionPath:  sessionPath,
		log:          log.WithField("component", "wallet"),
		status:       StatusLoading,
		pollInterval: 2 * time.Second,
		stepTimeout:  2 * time.Minute,
	}, nil
}

// Connect binds the provider to the signer's account, persists the session
// and refreshes the balance. A failed balance read still leaves the wallet
// connected.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.account = p.signer.Address()
	p.status = StatusConnected
	if err := p.saveSession(); err != nil {
		p.log.WithError(err).Warn("Failed to persist wallet session")
	}
	p.refreshBalanceLocked(ctx)
	return nil
}

// Disconnect clears the account state and removes the persisted session.
func (p *Provider) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.account = common.Address{}
	p.balance = ""
	p.status = StatusDisconnected
	if p.sessionPath != "" {
		if err := os.Remove(p.sessionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.log.WithError(err).Warn("Failed to remove wallet session")
		}
	}
}

// Restore re-establishes a previously persisted session. Missing, expired or
// mismatched sessions leave the wallet disconnected without error.
func (p *Provider) Restore(ctx context.Context) error {
	p.mu.Lock()
	sess, err := p.readSession()
	if err != nil || sess == nil {
		p.account = common.Address{}
		p.balance = ""
		p.status = StatusDisconnected
		p.mu.Unlock()
		return nil
	}
	if !strings.EqualFold(sess.Address, p.signer.Address().Hex()) {
		p.log.Warn("Persisted session does not match the configured signer")
		p.account = common.Address{}
		p.balance = ""
		p.status = StatusDisconnected
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.Connect(ctx)
}

func (p *Provider) Account() (common.Address, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account, p.status == StatusConnected
}

// Balance returns the last observed ETH balance as a decimal string.
func (p *Provider) Balance() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Provider) Close() {
	p.client.Close()
}

func (p *Provider) refreshBalanceLocked(ctx context.Context) {
	wei, err := p.client.BalanceAt(ctx, p.account, nil)
	if err != nil {
		p.log.WithError(err).Warn("Failed to read wallet balance")
		return
	}
	p.balance = id.FormatBaseUnits(wei, 18)
}

func (p *Provider) saveSession() error {
	if p.sessionPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.sessionPath), 0o755); err != nil {
		return err
	}
	buf, err := json.Marshal(session{
		Address:   p.account.Hex(),
		ExpiresAt: time.Now().Add(sessionTTL).Unix(),
	})
	if err != nil {
		return err
	}
	return os.WriteFile(p.sessionPath, buf, 0o600)
}

func (p *Provider) readSession() (*session, error) {
	if p.sessionPath == "" {
		return nil, nil
	}
	buf, err := os.ReadFile(p.sessionPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var sess session
	if err := json.Unmarshal(buf, &sess); err != nil {
		return nil, err
	}
	if sess.ExpiresAt <= time.Now().Unix() {
		return nil, nil
	}
	return &sess, nil
}
