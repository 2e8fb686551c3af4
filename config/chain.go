package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/eth-go"
	"gopkg.in/yaml.v3"
)

//go:embed sei.yaml
var seiChainYAML []byte

var ErrUnsupportedChain = errors.New("unsupported chain")

type TokenDefinition struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals int64  `yaml:"decimals"`
}

// Chain holds everything a deployment is parameterized with. Addresses are normalized to lowercase
// 0x-hex so they compare directly against entity ids.
type Chain struct {
	ChainID        uint64 `yaml:"chainId"`
	Name           string `yaml:"name"`
	NativeCurrency string `yaml:"nativeCurrency"`
	RPCURLEnv      string `yaml:"rpcUrlEnv"`
	StartBlock     uint64 `yaml:"startBlock"`

	FactoryAddress   string   `yaml:"factoryAddress"`
	ReferenceToken   string   `yaml:"referenceToken"`
	StableTokenPairs []string `yaml:"stableTokenPairs"`
	Whitelist        []string `yaml:"whitelist"`
	Stablecoins      []string `yaml:"stablecoins"`

	MinimumUSDThresholdNewPairsRaw  string `yaml:"minimumUSDThresholdNewPairs"`
	MinimumLiquidityThresholdETHRaw string `yaml:"minimumLiquidityThresholdETH"`
	FeePercentRaw                   string `yaml:"feePercent"`

	StaticTokenDefinitions []TokenDefinition `yaml:"staticTokenDefinitions"`
	SkipTotalSupply        []string          `yaml:"skipTotalSupply"`

	MinimumUSDThresholdNewPairs  decimal.Decimal `yaml:"-"`
	MinimumLiquidityThresholdETH decimal.Decimal `yaml:"-"`
	FeePercent                   decimal.Decimal `yaml:"-"`

	whitelist       map[string]bool
	stablecoins     map[string]bool
	skipTotalSupply map[string]bool
	staticDefs      map[string]*TokenDefinition
}

var builtin = map[uint64][]byte{
	1329: seiChainYAML,
}

// ForChainID returns the embedded configuration of a supported chain.
func ForChainID(chainID uint64) (*Chain, error) {
	content, found := builtin[chainID]
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	return Decode(content)
}

func LoadFile(path string) (*Chain, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chain config %q: %w", path, err)
	}

	chain, err := Decode(content)
	if err != nil {
		return nil, fmt.Errorf("chain config %q: %w", path, err)
	}
	return chain, nil
}

func Decode(content []byte) (*Chain, error) {
	var chain *Chain
	if err := yaml.NewDecoder(bytes.NewReader(content)).Decode(&chain); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if chain == nil {
		return nil, fmt.Errorf("empty chain config")
	}

	if err := chain.init(); err != nil {
		return nil, err
	}
	return chain, nil
}

func (c *Chain) init() (err error) {
	if c.FactoryAddress, err = normalize(c.FactoryAddress); err != nil {
		return fmt.Errorf("factory address: %w", err)
	}
	if c.ReferenceToken, err = normalize(c.ReferenceToken); err != nil {
		return fmt.Errorf("reference token: %w", err)
	}
	if c.StableTokenPairs, err = normalizeAll(c.StableTokenPairs); err != nil {
		return fmt.Errorf("stable token pairs: %w", err)
	}
	if c.Whitelist, err = normalizeAll(c.Whitelist); err != nil {
		return fmt.Errorf("whitelist: %w", err)
	}
	if c.Stablecoins, err = normalizeAll(c.Stablecoins); err != nil {
		return fmt.Errorf("stablecoins: %w", err)
	}
	if c.SkipTotalSupply, err = normalizeAll(c.SkipTotalSupply); err != nil {
		return fmt.Errorf("skip total supply: %w", err)
	}

	if c.MinimumUSDThresholdNewPairs, err = parseDecimal(c.MinimumUSDThresholdNewPairsRaw, "0"); err != nil {
		return fmt.Errorf("minimum usd threshold new pairs: %w", err)
	}
	if c.MinimumLiquidityThresholdETH, err = parseDecimal(c.MinimumLiquidityThresholdETHRaw, "0"); err != nil {
		return fmt.Errorf("minimum liquidity threshold eth: %w", err)
	}
	if c.FeePercent, err = parseDecimal(c.FeePercentRaw, "0.003"); err != nil {
		return fmt.Errorf("fee percent: %w", err)
	}

	c.whitelist = toSet(c.Whitelist)
	c.stablecoins = toSet(c.Stablecoins)
	c.skipTotalSupply = toSet(c.SkipTotalSupply)
	c.staticDefs = make(map[string]*TokenDefinition, len(c.StaticTokenDefinitions))
	for i := range c.StaticTokenDefinitions {
		def := &c.StaticTokenDefinitions[i]
		if def.Address, err = normalize(def.Address); err != nil {
			return fmt.Errorf("static token definition %d: %w", i, err)
		}
		c.staticDefs[def.Address] = def
	}

	return nil
}

func (c *Chain) IsWhitelisted(token string) bool {
	return c.whitelist[token]
}

func (c *Chain) IsStablecoin(token string) bool {
	return c.stablecoins[token]
}

func (c *Chain) SkipsTotalSupply(token string) bool {
	return c.skipTotalSupply[token]
}

// StaticDefinition returns the hardcoded metadata of a token known to misbehave on chain, if any.
func (c *Chain) StaticDefinition(token string) (*TokenDefinition, bool) {
	def, found := c.staticDefs[token]
	return def, found
}

// RPCURL resolves the RPC endpoint from the chain's environment variable.
func (c *Chain) RPCURL() string {
	if c.RPCURLEnv == "" {
		return ""
	}
	return os.Getenv(c.RPCURLEnv)
}

func normalize(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("empty address")
	}
	addr, err := eth.NewAddress(address)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}
	return addr.Pretty(), nil
}

func normalizeAll(addresses []string) ([]string, error) {
	out := make([]string, 0, len(addresses))
	for _, address := range addresses {
		a, err := normalize(address)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func parseDecimal(raw, fallback string) (decimal.Decimal, error) {
	if raw == "" {
		raw = fallback
	}
	return decimal.NewFromString(raw)
}

func toSet(in []string) map[string]bool {
	out := make(map[string]bool, len(in))
	for _, v := range in {
		out[v] = true
	}
	return out
}
