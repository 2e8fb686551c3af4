package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/streamingfast/uniswap-v2-indexer/config"
)

const envPrefix = "UNIV2"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "exchange",
	Short:        "Uniswap v2 subgraph indexer over JSON-RPC",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().Uint64("chain-id", 1329, "Chain to index, resolved against the embedded chain configurations")
	rootCmd.PersistentFlags().String("chain-config", "", "Path to a chain configuration YAML file, replaces the embedded one")

	cobra.OnInitialize(func() {
		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()
	})
}

// bindFlags makes every flag of cmd readable through viper, flags winning over UNIV2_* env vars.
func bindFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if bindErr := viper.BindPFlag(flag.Name, flag); bindErr != nil && err == nil {
			err = fmt.Errorf("binding flag %q: %w", flag.Name, bindErr)
		}
	})
	return err
}

func loadChain() (*config.Chain, error) {
	if path := viper.GetString("chain-config"); path != "" {
		return config.LoadFile(path)
	}
	return config.ForChainID(viper.GetUint64("chain-id"))
}
