package app

import (
	"github.com/spf13/cobra"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/gateway"
	"github.com/loanify/agent/internal/httpx"
	"github.com/loanify/agent/internal/providers/lifi"
)

func (s *runtimeState) newGatewayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the backend-for-frontend gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.settings.AgentURL == "" {
				return agenterr.New(agenterr.CodeUsage, "agent url is required (gateway.agent_url or AI_URL)")
			}

			httpClient := httpx.New(s.settings.Timeout, s.settings.Retries)
			lifiClient := lifi.New(httpClient, s.settings.LiFiAPIKey)
			if s.settings.LiFiBaseURL != "" {
				lifiClient.SetBaseURL(s.settings.LiFiBaseURL)
			}
			return gateway.New(s.settings, lifiClient, s.log).Run()
		},
	}
}
