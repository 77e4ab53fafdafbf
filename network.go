package x402

import (
	"fmt"
	"math/big"
)

const (
	// Default token decimals for USDC
	DefaultDecimals = 6

	// Default validity period for a transfer authorization (1 hour)
	DefaultValidityPeriod = 3600 // seconds
)

var (
	// Network chain IDs
	ChainIDBase        = big.NewInt(8453)
	ChainIDBaseSepolia = big.NewInt(84532)
)

// AssetInfo contains information about an ERC20 token
type AssetInfo struct {
	Address  string
	Name     string
	Version  string
	Decimals int
}

// NetworkConfig contains network-specific configuration. TokenName and
// TokenVersion feed the EIP-712 domain; the verifying contract comes from
// the challenge's asset field.
type NetworkConfig struct {
	ChainID      *big.Int
	TokenName    string
	TokenVersion string
	DefaultAsset AssetInfo
}

// NetworkConfigs maps the network identifiers a challenge may carry to
// their chain configuration. Only EIP-3009 supporting stablecoins are
// usable as assets.
var NetworkConfigs = map[string]NetworkConfig{
	"base": {
		ChainID:      ChainIDBase,
		TokenName:    "USD Coin",
		TokenVersion: "2",
		DefaultAsset: AssetInfo{
			Address:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", // USDC on Base
			Name:     "USD Coin",
			Version:  "2",
			Decimals: DefaultDecimals,
		},
	},
	"base-sepolia": {
		ChainID:      ChainIDBaseSepolia,
		TokenName:    "USD Coin",
		TokenVersion: "2",
		DefaultAsset: AssetInfo{
			Address:  "0x036CbD53842c5426634e7929541eC2318f3dCF7e", // USDC on Base Sepolia
			Name:     "USD Coin",
			Version:  "2",
			Decimals: DefaultDecimals,
		},
	},
}

// GetNetworkConfig returns the configuration for a network identifier.
func GetNetworkConfig(network string) (*NetworkConfig, error) {
	config, ok := NetworkConfigs[network]
	if !ok {
		return nil, NewPaymentError(ErrCodeUnsupportedNetwork,
			fmt.Sprintf("unsupported network: %s", network), nil)
	}
	return &config, nil
}

// IsValidNetwork reports whether the network identifier is supported.
func IsValidNetwork(network string) bool {
	_, ok := NetworkConfigs[network]
	return ok
}
