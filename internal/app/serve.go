package app

import (
	"github.com/spf13/cobra"

	"github.com/loanify/agent/internal/agent"
	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/httpx"
	"github.com/loanify/agent/internal/planner"
	"github.com/loanify/agent/internal/providers/duckduckgo"
	"github.com/loanify/agent/internal/providers/lifi"
	"github.com/loanify/agent/internal/server"
)

func (s *runtimeState) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the agent API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.settings.ModelBaseURL == "" {
				return agenterr.New(agenterr.CodeUsage, "model base url is required (model.base_url or LOANIFY_MODEL_BASE_URL)")
			}
			if s.settings.APISecret == "" {
				s.log.Warn("No API secret configured, every request will be rejected")
			}

			httpClient := httpx.New(s.settings.Timeout, s.settings.Retries)
			lifiClient := lifi.New(httpClient, s.settings.LiFiAPIKey)
			if s.settings.LiFiBaseURL != "" {
				lifiClient.SetBaseURL(s.settings.LiFiBaseURL)
			}
			search := duckduckgo.New(httpClient)

			plan, err := planner.New(lifiClient, s.settings.RPCURL, s.log)
			if err != nil {
				return err
			}
			chat := agent.NewChatModel(httpClient, s.settings.ModelBaseURL, s.settings.ModelAPIKey, s.settings.ModelID)
			graph := agent.NewGraph(chat, agent.DefaultRegistry(plan, search), s.log)

			var checkpoint agent.Checkpointer
			if s.settings.ThreadStoreEnabled {
				store, err := agent.OpenThreadStore(s.settings.ThreadStorePath, s.settings.ThreadLockPath)
				if err != nil {
					return agenterr.Wrap(agenterr.CodeInternal, "open thread store", err)
				}
				defer func() { _ = store.Close() }()
				checkpoint = store
			}

			invoker := agent.NewInvoker(graph, checkpoint, s.log)
			return server.New(invoker, s.settings, s.log).Run()
		},
	}
}
