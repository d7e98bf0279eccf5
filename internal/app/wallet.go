package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/id"
	"github.com/loanify/agent/internal/model"
	"github.com/loanify/agent/internal/registry"
	"github.com/loanify/agent/internal/wallet"
)

func (s *runtimeState) newWalletCommand() *cobra.Command {
	root := &cobra.Command{Use: "wallet", Short: "Wallet session and transaction execution"}

	root.AddCommand(&cobra.Command{
		Use:   "connect",
		Short: "Connect the local signer and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := s.newWalletProvider()
			if err != nil {
				return err
			}
			defer provider.Close()
			if err := provider.Connect(cmd.Context()); err != nil {
				return err
			}
			return s.printWalletState(cmd, provider)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "disconnect",
		Short: "Clear the persisted wallet session",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := s.newWalletProvider()
			if err != nil {
				return err
			}
			defer provider.Close()
			provider.Disconnect()
			return s.printWalletState(cmd, provider)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the restored wallet session and balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := s.newWalletProvider()
			if err != nil {
				return err
			}
			defer provider.Close()
			if err := provider.Restore(cmd.Context()); err != nil {
				return err
			}
			return s.printWalletState(cmd, provider)
		},
	})

	var batchFile string
	execute := &cobra.Command{
		Use:   "execute",
		Short: "Execute a prepared transaction batch sequentially",
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := readBatch(batchFile)
			if err != nil {
				return err
			}
			provider, err := s.newWalletProvider()
			if err != nil {
				return err
			}
			defer provider.Close()
			if err := provider.Restore(cmd.Context()); err != nil {
				return err
			}
			if _, connected := provider.Account(); !connected {
				if err := provider.Connect(cmd.Context()); err != nil {
					return err
				}
			}

			hashes, execErr := provider.ExecuteSequential(cmd.Context(), txs)
			confirmed := make([]string, 0, len(hashes))
			for _, h := range hashes {
				confirmed = append(confirmed, h.Hex())
			}
			out := map[string]any{
				"confirmed": confirmed,
				"total":     len(txs),
				"balance":   provider.Balance(),
			}
			if execErr != nil {
				out["error"] = execErr.Error()
			}
			if err := printJSON(cmd, out); err != nil {
				return err
			}
			return execErr
		},
	}
	execute.Flags().StringVar(&batchFile, "file", "", "Path to a tool result or transaction array JSON")
	_ = execute.MarkFlagRequired("file")
	root.AddCommand(execute)

	return root
}

func (s *runtimeState) newWalletProvider() (*wallet.Provider, error) {
	signer, err := wallet.NewLocalSignerFromEnv()
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUsage, "load signing key", err)
	}
	rpcURL, err := registry.ResolveRPCURL(s.settings.RPCURL, id.HomeChainID)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUsage, "resolve rpc url", err)
	}
	sessionPath := filepath.Join(filepath.Dir(s.settings.ThreadStorePath), "wallet-session.json")
	return wallet.NewProvider(rpcURL, signer, sessionPath, s.log)
}

func (s *runtimeState) printWalletState(cmd *cobra.Command, provider *wallet.Provider) error {
	account, connected := provider.Account()
	out := map[string]any{
		"status":  string(provider.Status()),
		"balance": provider.Balance(),
	}
	if connected {
		out["address"] = account.Hex()
	}
	return printJSON(cmd, out)
}

// readBatch accepts either a full tool result envelope or a bare transaction
// array, matching the two shapes the agent hands back.
func readBatch(path string) ([]model.PreparedTransaction, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CodeUsage, "read batch file", err)
	}

	var result model.ToolResult
	if err := json.Unmarshal(buf, &result); err == nil && len(result.Tx) > 0 {
		return result.Tx, nil
	}
	var txs []model.PreparedTransaction
	if err := json.Unmarshal(buf, &txs); err == nil && len(txs) > 0 {
		return txs, nil
	}
	return nil, agenterr.New(agenterr.CodeUsage, "batch file contains no transactions")
}

func printJSON(cmd *cobra.Command, payload any) error {
	buf, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return agenterr.Wrap(agenterr.CodeInternal, "encode output", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(buf))
	return err
}
