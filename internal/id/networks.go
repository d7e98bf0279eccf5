package id

import (
	"strings"

	agenterr "github.com/loanify/agent/internal/errors"
)

// Network is a chain the agent can bridge to. The list is static and loaded
// at startup; entries are only used for fuzzy lookup and chainId stamping.
type Network struct {
	ID   int64
	Name string
}

// HomeChainID is the origin chain for every prepared transaction. The agent
// operates on Base; other networks appear only as bridge destinations.
const HomeChainID int64 = 8453

var networks = []Network{
	{ID: 1, Name: "Ethereum"},
	{ID: 10, Name: "Optimism"},
	{ID: 56, Name: "BNB Chain"},
	{ID: 100, Name: "Gnosis"},
	{ID: 137, Name: "Polygon"},
	{ID: 5000, Name: "Mantle"},
	{ID: 8453, Name: "Base"},
	{ID: 42161, Name: "Arbitrum"},
	{ID: 43114, Name: "Avalanche"},
	{ID: 59144, Name: "Linea"},
	{ID: 81457, Name: "Blast"},
	{ID: 534352, Name: "Scroll"},
}

// Networks returns the static network list.
func Networks() []Network {
	out := make([]Network, len(networks))
	copy(out, networks)
	return out
}

// NetworkByID returns the network with the given chain id.
func NetworkByID(chainID int64) (Network, bool) {
	for _, n := range networks {
		if n.ID == chainID {
			return n, true
		}
	}
	return Network{}, false
}

// BestNetworkMatch resolves free-text input to the network whose name scores
// highest under Dice-coefficient similarity. There is no minimum confidence
// floor: any non-empty input resolves to some network, so callers should echo
// the matched name back to the user before anything is signed.
func BestNetworkMatch(input string) (Network, error) {
	clean := strings.TrimSpace(input)
	if clean == "" {
		return Network{}, agenterr.New(agenterr.CodeUsage, "destination chain name is empty")
	}
	if len(networks) == 0 {
		return Network{}, agenterr.New(agenterr.CodeInternal, "network list is empty")
	}
	best := networks[0]
	bestScore := -1.0
	for _, n := range networks {
		score := Similarity(clean, n.Name)
		if score > bestScore {
			best = n
			bestScore = score
		}
	}
	return best, nil
}
