package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/config"
	"github.com/streamingfast/uniswap-v2-indexer/effects"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"github.com/streamingfast/uniswap-v2-indexer/exchange"
	"github.com/streamingfast/uniswap-v2-indexer/sink"
	"github.com/streamingfast/uniswap-v2-indexer/sink/mongo"
	"github.com/streamingfast/uniswap-v2-indexer/sink/postgres"
	"github.com/streamingfast/uniswap-v2-indexer/source"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Index the configured factory and its pairs from the chain's RPC endpoint",
	PreRunE: func(cmd *cobra.Command, _ []string) error { return bindFlags(cmd) },
	RunE:    runRun,
	Args:    cobra.NoArgs,
}

func init() {
	runCmd.Flags().String("rpc-url", "", "JSON-RPC endpoint, defaults to the chain's rpcUrlEnv environment variable")
	runCmd.Flags().Int64P("start-block", "s", -1, "Block to start from, -1 resumes from the sink cursor or the chain start block")
	runCmd.Flags().Uint64P("stop-block", "t", 0, "Last block to index, 0 follows the chain head")
	runCmd.Flags().Uint64("batch-size", 1000, "Blocks per eth_getLogs range")
	runCmd.Flags().Uint64("confirmations", 0, "Blocks to stay behind the chain head")
	runCmd.Flags().Duration("poll-interval", 2*time.Second, "Delay between head checks once caught up")
	runCmd.Flags().Bool("preload", false, "Skip the day/hour bucket updates of Mint and Burn")
	runCmd.Flags().Bool("resolve-senders", false, "Fetch each transaction's signer for Swap.from")

	runCmd.Flags().Duration("rpc-timeout", 20*time.Second, "Timeout of a single token contract call")
	runCmd.Flags().Float64("rpc-rate-limit", 24, "Token contract calls per second")
	runCmd.Flags().Int("effects-cache-size", 100000, "Token metadata entries kept in memory")
	runCmd.Flags().Bool("strict-decimals", false, "Abort pair creation instead of defaulting unresolvable decimals to 18")

	runCmd.Flags().String("sink", "noop", "Where block deltas go: noop, postgres or mongo")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN of the postgres sink")
	runCmd.Flags().String("mongodb-url", "mongodb://localhost:27017", "Mongo URL of the mongo sink")
	runCmd.Flags().String("mongodb-name", "uniswap", "Mongo database name of the mongo sink")
	runCmd.Flags().String("cursor-name", "default", "Cursor key of this indexer in the sink")

	runCmd.Flags().String("metrics-listen-addr", ":9102", "Prometheus metrics listen address, empty disables")
	runCmd.Flags().String("pprof-listen-addr", "localhost:6060", "pprof listen address, empty disables")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setup(viper.GetString("pprof-listen-addr"), viper.GetString("metrics-listen-addr"))

	chain, err := loadChain()
	if err != nil {
		return fmt.Errorf("chain config: %w", err)
	}

	rpcURL := viper.GetString("rpc-url")
	if rpcURL == "" {
		rpcURL = chain.RPCURL()
	}
	if rpcURL == "" {
		return fmt.Errorf("no RPC endpoint for chain %d, set --rpc-url or %s", chain.ChainID, chain.RPCURLEnv)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("dialing rpc: %w", err)
	}
	defer client.Close()

	remoteChainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("fetching chain id: %w", err)
	}
	if remoteChainID.Uint64() != chain.ChainID {
		return fmt.Errorf("rpc endpoint serves chain %s, configuration is for %d", remoteChainID, chain.ChainID)
	}

	effectOpts := []effects.Option{
		effects.WithTimeout(viper.GetDuration("rpc-timeout")),
		effects.WithRateLimit(viper.GetFloat64("rpc-rate-limit")),
	}
	if viper.GetBool("strict-decimals") {
		effectOpts = append(effectOpts, effects.WithStrictDecimals())
	}
	tokenEffects, err := effects.NewRPC(client, chain, viper.GetInt("effects-cache-size"), effectOpts...)
	if err != nil {
		return fmt.Errorf("token effects: %w", err)
	}

	out, err := newSink(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			zlog.Warn("closing sink", zap.Error(err))
		}
	}()

	poller, err := source.NewPoller(client, eth.MustNewAddress(chain.FactoryAddress),
		source.WithBatchSize(viper.GetUint64("batch-size")),
		source.WithConfirmations(viper.GetUint64("confirmations")),
		source.WithPollInterval(viper.GetDuration("poll-interval")),
		source.WithStopBlock(viper.GetUint64("stop-block")),
		source.WithTransactionSenders(viper.GetBool("resolve-senders")),
	)
	if err != nil {
		return fmt.Errorf("log poller: %w", err)
	}

	store := state.New(chain.Name)
	startBlock, err := restore(ctx, out, store, chain, poller)
	if err != nil {
		return err
	}

	subgraph := exchange.New(store, chain, tokenEffects,
		exchange.WithRegistrar(poller),
		exchange.WithPreload(viper.GetBool("preload")),
	)
	subgraph.LogStatus()

	err = poller.Run(ctx, startBlock, exchange.NewRuntime(subgraph, out))
	if errors.Is(err, context.Canceled) {
		zlog.Info("indexer stopped")
		return nil
	}
	return err
}

func newSink(ctx context.Context) (sink.Sink, error) {
	cursorName := viper.GetString("cursor-name")

	switch kind := viper.GetString("sink"); kind {
	case "noop", "":
		return sink.Noop{}, nil
	case "postgres":
		dsn := viper.GetString("pg-dsn")
		if dsn == "" {
			return nil, fmt.Errorf("postgres sink requires --pg-dsn")
		}
		s, err := postgres.New(ctx, dsn, postgres.WithName(cursorName))
		if err != nil {
			return nil, fmt.Errorf("postgres sink: %w", err)
		}
		return s, nil
	case "mongo":
		s, err := mongo.New(ctx, viper.GetString("mongodb-url"), viper.GetString("mongodb-name"), mongo.WithName(cursorName))
		if err != nil {
			return nil, fmt.Errorf("mongo sink: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sink %q", kind)
	}
}

// restore rehydrates the store from the sink and returns the block to start from.
func restore(ctx context.Context, out sink.Sink, store *state.Store, chain *config.Chain, poller *source.Poller) (uint64, error) {
	startBlock := chain.StartBlock

	if restorer, ok := out.(sink.Restorer); ok {
		cursor, err := restorer.Restore(ctx, store)
		if err != nil {
			return 0, fmt.Errorf("restoring store: %w", err)
		}
		if cursor != nil {
			startBlock = cursor.BlockNumber + 1
			zlog.Info("resuming from sink cursor", zap.Uint64("block_num", cursor.BlockNumber), zap.String("block_hash", cursor.BlockHash))
		}

		for _, pair := range store.IDs(entity.TablePair) {
			poller.RegisterPair(eth.MustNewAddress(pair))
		}
	}

	if override := viper.GetInt64("start-block"); override >= 0 {
		startBlock = uint64(override)
	}
	return startBlock, nil
}
