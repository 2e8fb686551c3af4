package effects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	UnknownSymbol = "UNKNOWN"
	UnknownName   = "Unknown Token"

	DefaultDecimals = 18

	// MaxDecimals is the largest value an ERC-20 uint8 decimals can hold.
	MaxDecimals = 255
)

var (
	decimalsMethod    = eth.MustNewMethodDef("decimals() (uint256)")
	nameMethod        = eth.MustNewMethodDef("name() (string)")
	symbolMethod      = eth.MustNewMethodDef("symbol() (string)")
	totalSupplyMethod = eth.MustNewMethodDef("totalSupply() (uint256)")
	balanceOfMethod   = eth.MustNewMethodDef("balanceOf(address) (uint256)")
)

// nullBytes32 is the word some broken tokens answer with instead of a bytes32 string.
var nullBytes32 = common.LeftPadBytes([]byte{0x01}, 32)

// Caller is the eth_call transport, satisfied by *ethclient.Client.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type TokenMetadata struct {
	Symbol string
	Name   string
	// Decimals is nil when it could not be resolved and no default applies.
	Decimals    *big.Int
	TotalSupply *big.Int
}

type RPC struct {
	caller Caller
	chain  *config.Chain

	timeout        time.Duration
	attempts       uint64
	retryDelay     time.Duration
	limiter        *rate.Limiter
	cache          *lru.Cache
	strictDecimals bool

	logger *zap.Logger
}

type Option func(r *RPC)

// WithTimeout bounds every single eth_call attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(r *RPC) { r.timeout = timeout }
}

func WithRetries(attempts uint64, delay time.Duration) Option {
	return func(r *RPC) {
		r.attempts = attempts
		r.retryDelay = delay
	}
}

// WithRateLimit caps the calls per second shared by every effect.
func WithRateLimit(callsPerSecond float64) Option {
	return func(r *RPC) { r.limiter = rate.NewLimiter(rate.Limit(callsPerSecond), 1) }
}

// WithStrictDecimals leaves Decimals unresolved instead of defaulting to 18 when the call fails.
func WithStrictDecimals() Option {
	return func(r *RPC) { r.strictDecimals = true }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *RPC) { r.logger = logger }
}

func NewRPC(caller Caller, chain *config.Chain, cacheSize int, opts ...Option) (*RPC, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating effect cache: %w", err)
	}

	r := &RPC{
		caller:     caller,
		chain:      chain,
		timeout:    20 * time.Second,
		attempts:   5,
		retryDelay: 2 * time.Second,
		limiter:    rate.NewLimiter(24, 1),
		cache:      cache,
		logger:     zlog,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// FetchTokenMetadata resolves symbol, name, decimals and total supply of an ERC-20 token. Failures
// fall back to placeholder values, only a cancelled context is returned as an error.
func (r *RPC) FetchTokenMetadata(ctx context.Context, token eth.Address) (*TokenMetadata, error) {
	address := token.Pretty()
	md := &TokenMetadata{}

	if def, found := r.chain.StaticDefinition(address); found {
		md.Symbol = def.Symbol
		md.Name = def.Name
		md.Decimals = big.NewInt(def.Decimals)
	}

	group, gctx := errgroup.WithContext(ctx)
	if md.Symbol == "" {
		group.Go(func() (err error) {
			md.Symbol, err = r.fetchString(gctx, token, symbolMethod, UnknownSymbol, false)
			return
		})
		group.Go(func() (err error) {
			md.Name, err = r.fetchString(gctx, token, nameMethod, UnknownName, true)
			return
		})
		group.Go(func() (err error) {
			md.Decimals, err = r.fetchDecimals(gctx, token)
			return
		})
	}
	group.Go(func() (err error) {
		md.TotalSupply, err = r.fetchTotalSupply(gctx, token)
		return
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return md, nil
}

// FetchBalance returns the token balance of user, 0 when the call fails. Balances are never cached.
func (r *RPC) FetchBalance(ctx context.Context, token, user eth.Address) (*big.Int, error) {
	data := make([]byte, 0, 36)
	data = append(data, balanceOfMethod.MethodID()...)
	data = append(data, common.LeftPadBytes(user, 32)...)

	raw, err := r.call(ctx, token, data)
	if err == nil {
		var balance *big.Int
		if balance, err = decodeUint(balanceOfMethod, raw); err == nil {
			return balance, nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.logger.Warn("balanceOf call failed, using zero balance",
		zap.String("token", token.Pretty()),
		zap.String("user", user.Pretty()),
		zap.Error(err),
	)
	return new(big.Int), nil
}

func (r *RPC) fetchString(ctx context.Context, token eth.Address, method *eth.MethodDef, fallback string, cacheable bool) (string, error) {
	key := cacheKey(method, token)
	if cacheable {
		if v, found := r.cache.Get(key); found {
			return v.(string), nil
		}
	}

	raw, err := r.call(ctx, token, method.MethodID())
	if err != nil && ctx.Err() != nil {
		return "", ctx.Err()
	}

	value := ""
	if err == nil {
		value = decodeString(method, raw)
	}
	if value == "" {
		r.logger.Warn("all string attempts failed, using fallback",
			zap.String("method", method.Name),
			zap.String("token", token.Pretty()),
			zap.String("fallback", fallback),
			zap.Error(err),
		)
		return fallback, nil
	}

	if cacheable {
		r.cache.Add(key, value)
	}
	return value, nil
}

func (r *RPC) fetchDecimals(ctx context.Context, token eth.Address) (*big.Int, error) {
	key := cacheKey(decimalsMethod, token)
	if v, found := r.cache.Get(key); found {
		return new(big.Int).Set(v.(*big.Int)), nil
	}

	raw, err := r.call(ctx, token, decimalsMethod.MethodID())
	if err == nil {
		var decimals *big.Int
		if decimals, err = decodeUint(decimalsMethod, raw); err == nil {
			if !ValidDecimals(decimals) {
				err = fmt.Errorf("decimals %s out of range [0, %d]", decimals, MaxDecimals)
			} else {
				r.cache.Add(key, decimals)
				return new(big.Int).Set(decimals), nil
			}
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if r.strictDecimals {
		r.logger.Warn("decimals call failed", zap.String("token", token.Pretty()), zap.Error(err))
		return nil, nil
	}

	r.logger.Warn("decimals call failed, using default decimals",
		zap.String("token", token.Pretty()),
		zap.Int("default", DefaultDecimals),
		zap.Error(err),
	)
	return big.NewInt(DefaultDecimals), nil
}

func (r *RPC) fetchTotalSupply(ctx context.Context, token eth.Address) (*big.Int, error) {
	if r.chain.SkipsTotalSupply(token.Pretty()) {
		return new(big.Int), nil
	}

	key := cacheKey(totalSupplyMethod, token)
	if v, found := r.cache.Get(key); found {
		return new(big.Int).Set(v.(*big.Int)), nil
	}

	raw, err := r.call(ctx, token, totalSupplyMethod.MethodID())
	if err == nil {
		var supply *big.Int
		if supply, err = decodeUint(totalSupplyMethod, raw); err == nil {
			r.cache.Add(key, supply)
			return new(big.Int).Set(supply), nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.logger.Warn("totalSupply call failed, using zero", zap.String("token", token.Pretty()), zap.Error(err))
	return new(big.Int), nil
}

// call performs one rate limited eth_call with per attempt timeout and constant backoff between attempts.
func (r *RPC) call(ctx context.Context, to eth.Address, data []byte) ([]byte, error) {
	addr := common.BytesToAddress(to)
	msg := ethereum.CallMsg{To: &addr, Data: data}

	var out []byte
	operation := func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		raw, err := r.caller.CallContract(callCtx, msg, nil)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		// an empty answer is a revert on a non contract address, retrying will not change it
		if len(raw) == 0 {
			return backoff.Permanent(errEmptyResponse)
		}
		out = raw
		return nil
	}

	retries := uint64(0)
	if r.attempts > 0 {
		retries = r.attempts - 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(r.retryDelay), retries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return out, nil
}

var errEmptyResponse = errors.New("empty eth_call response")

// ValidDecimals reports whether d fits the uint8 range of ERC-20 decimals.
func ValidDecimals(d *big.Int) bool {
	return d != nil && d.Sign() >= 0 && d.Cmp(big.NewInt(MaxDecimals)) <= 0
}

func decodeUint(method *eth.MethodDef, raw []byte) (*big.Int, error) {
	decoded, err := method.DecodeOutput(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s() response: %w", method.Name, err)
	}
	value, ok := decoded[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decoding %s() response: unexpected type %T", method.Name, decoded[0])
	}
	return value, nil
}

// decodeString reads an ABI string answer, then falls back to the bytes32 layout some old tokens use.
func decodeString(method *eth.MethodDef, raw []byte) string {
	if len(raw) >= 64 {
		if decoded, err := method.DecodeOutput(raw); err == nil {
			if value, ok := decoded[0].(string); ok && value != "" {
				return value
			}
		}
	}

	if len(raw) != 32 || bytes.Equal(raw, nullBytes32) {
		return ""
	}
	return strings.ToValidUTF8(string(bytes.TrimRight(raw, "\x00")), "")
}

func cacheKey(method *eth.MethodDef, token eth.Address) string {
	return method.Name + ":" + token.Pretty()
}
