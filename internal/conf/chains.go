package conf

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// ChainRegistry maps chain-agnostic chain identifiers (namespace:reference)
// to the human readable network names shown in sign-in messages.
type ChainRegistry map[string]string

// DefaultChains is the registry used when no registry file is configured.
func DefaultChains() ChainRegistry {
	return ChainRegistry{
		"eip155:1":        "Ethereum",
		"eip155:10":       "OP Mainnet",
		"eip155:56":       "BNB Smart Chain",
		"eip155:137":      "Polygon",
		"eip155:8453":     "Base",
		"eip155:42161":    "Arbitrum One",
		"eip155:11155111": "Sepolia",

		"bip122:000000000019d6689c085ae165831e93": "Bitcoin",
		"bip122:000000000933ea01ad0ee984209779ba": "Bitcoin Testnet",

		"solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp": "Solana",
		"solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1": "Solana Devnet",
		"solana:4uhcVJyU9pJkvQyS88uRDiswHXSCkY3z": "Solana Testnet",
	}
}

// NetworkName resolves chainID, returning false when it is unknown.
func (r ChainRegistry) NetworkName(chainID string) (string, bool) {
	name, ok := r[chainID]
	return name, ok
}

type chainRegistryFile struct {
	Chains []struct {
		ID   string `toml:"id"`
		Name string `toml:"name"`
	} `toml:"chain"`
}

// LoadChainRegistry returns DefaultChains extended (and overridden) by the
// chains listed in the TOML file at path:
//
//	[[chain]]
//	id = "eip155:100"
//	name = "Gnosis"
func LoadChainRegistry(path string) (ChainRegistry, error) {
	registry := DefaultChains()
	if path == "" {
		return registry, nil
	}

	var raw chainRegistryFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, errors.Wrap(err, "load chain registry")
	}

	for i, chain := range raw.Chains {
		id := strings.TrimSpace(chain.ID)
		name := strings.TrimSpace(chain.Name)
		if id == "" || name == "" {
			return nil, errors.Errorf("chain registry entry %d needs both id and name", i)
		}
		if !strings.Contains(id, ":") {
			return nil, errors.Errorf("chain registry entry %d: %q is not of the form namespace:reference", i, id)
		}
		registry[id] = name
	}

	return registry, nil
}
