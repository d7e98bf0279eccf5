package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/model"
)

// ExecuteSequential submits prepared transactions strictly in order, waiting
// for each receipt before the next submission. The first failure aborts the
// remainder of the batch; already-confirmed transactions are not rolled back.
func (p *Provider) ExecuteSequential(ctx context.Context, txs []model.PreparedTransaction) ([]common.Hash, error) {
	account, connected := p.Account()
	if !connected {
		return nil, agenterr.New(agenterr.CodeUsage, "wallet is not connected")
	}
	if len(txs) == 0 {
		return nil, agenterr.New(agenterr.CodeUsage, "batch has no executable transactions")
	}

	hashes := make([]common.Hash, 0, len(txs))
	for i, tx := range txs {
		hash, err := p.submit(ctx, account, tx)
		if err != nil {
			p.log.WithError(err).WithField("step", i).Error("Transaction failed, stopping sequence")
			return hashes, err
		}
		hashes = append(hashes, hash)
		p.mu.Lock()
		p.refreshBalanceLocked(ctx)
		p.mu.Unlock()
	}
	return hashes, nil
}

func (p *Provider) submit(ctx context.Context, from common.Address, prepared model.PreparedTransaction) (common.Hash, error) {
	if strings.TrimSpace(prepared.To) == "" {
		return common.Hash{}, agenterr.New(agenterr.CodeUsage, "transaction is missing a target address")
	}
	target := common.HexToAddress(prepared.To)
	data, err := decodeHex(prepared.Data)
	if err != nil {
		return common.Hash{}, agenterr.Wrap(agenterr.CodeUsage, "decode transaction calldata", err)
	}
	value, err := parseDecimal(prepared.Value)
	if err != nil {
		return common.Hash{}, agenterr.Wrap(agenterr.CodeUsage, "parse transaction value", err)
	}

	chainID := big.NewInt(prepared.ChainID)
	if prepared.ChainID == 0 {
		chainID, err = p.client.ChainID(ctx)
		if err != nil {
			return common.Hash{}, agenterr.Wrap(agenterr.CodeUnavailable, "read chain id", err)
		}
	}

	nonce, err := p.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, agenterr.Wrap(agenterr.CodeUnavailable, "fetch nonce", err)
	}

	msg := ethereum.CallMsg{From: from, To: &target, Value: value, Data: data}
	var gasLimit uint64
	if strings.TrimSpace(prepared.GasLimit) != "" {
		gasLimit, err = strconv.ParseUint(prepared.GasLimit, 10, 64)
		if err != nil {
			return common.Hash{}, agenterr.Wrap(agenterr.CodeUsage, "parse gas limit", err)
		}
	} else {
		gasLimit, err = p.client.EstimateGas(ctx, msg)
		if err != nil {
			return common.Hash{}, agenterr.Wrap(agenterr.CodeUnavailable, "estimate gas", err)
		}
	}

	var gasPrice *big.Int
	if strings.TrimSpace(prepared.GasPrice) != "" {
		gasPrice, err = parseDecimal(prepared.GasPrice)
		if err != nil {
			return common.Hash{}, agenterr.Wrap(agenterr.CodeUsage, "parse gas price", err)
		}
	} else {
		gasPrice, err = p.client.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, agenterr.Wrap(agenterr.CodeUnavailable, "fetch gas price", err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &target,
		Value:    value,
		Data:     data,
	})
	signed, err := p.signer.SignTx(chainID, tx)
	if err != nil {
		return common.Hash{}, agenterr.Wrap(agenterr.CodeInternal, "sign transaction", err)
	}
	if err := p.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, agenterr.Wrap(agenterr.CodeUnavailable, "broadcast transaction", err)
	}

	if err := p.waitForReceipt(ctx, signed.Hash()); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

func (p *Provider) waitForReceipt(ctx context.Context, hash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := p.client.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return agenterr.New(agenterr.CodeUnavailable, "transaction reverted on-chain")
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) && waitCtx.Err() == nil {
			p.log.WithError(err).Debug("Receipt poll failed")
		}
		select {
		case <-waitCtx.Done():
			return agenterr.Wrap(agenterr.CodeUnavailable, "timed out waiting for receipt", waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func parseDecimal(v string) (*big.Int, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return big.NewInt(0), nil
	}
	out, ok := new(big.Int).SetString(clean, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", v)
	}
	return out, nil
}

func decodeHex(v string) ([]byte, error) {
	clean := strings.TrimSpace(v)
	clean = strings.TrimPrefix(clean, "0x")
	if clean == "" {
		return []byte{}, nil
	}
	if len(clean)%2 != 0 {
		clean = "0" + clean
	}
	buf, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return buf, nil
}
