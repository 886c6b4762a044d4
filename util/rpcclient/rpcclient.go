package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"sync/atomic"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
)

type ClientConfig struct {
	URL             string        `koanf:"url"`
	Timeout         time.Duration `koanf:"timeout"`
	Retries         uint          `koanf:"retries"`
	RetryErrors     string        `koanf:"retry-errors"`
	ArgLogLimit     uint          `koanf:"arg-log-limit"`
	HeaderCacheSize int           `koanf:"header-cache-size"`
}

type ClientConfigFetcher func() *ClientConfig

var DefaultClientConfig = ClientConfig{
	URL:             "",
	Timeout:         10 * time.Second,
	Retries:         0,
	ArgLogLimit:     2048,
	HeaderCacheSize: 256,
}

var TestClientConfig = ClientConfig{
	URL:             "self",
	Timeout:         time.Second,
	ArgLogLimit:     2048,
	HeaderCacheSize: 16,
}

func ClientConfigAddOptions(prefix string, f *flag.FlagSet, defaultConfig *ClientConfig) {
	f.String(prefix+".url", defaultConfig.URL, "URL of the L2 node RPC endpoint")
	f.Duration(prefix+".timeout", defaultConfig.Timeout, "per-response timeout (0-disabled)")
	f.Uint(prefix+".retries", defaultConfig.Retries, "number of retries in case of failure(0 mean one attempt)")
	f.String(prefix+".retry-errors", defaultConfig.RetryErrors, "Errors matching this regular expression are automatically retried")
	f.Uint(prefix+".arg-log-limit", defaultConfig.ArgLogLimit, "limit size of arguments in log entries")
	f.Int(prefix+".header-cache-size", defaultConfig.HeaderCacheSize, "number of canonical headers kept in the in-memory cache (0-disabled)")
}

func (c *ClientConfig) Validate() error {
	if c.URL == "" {
		return errors.New("rpc client url is required")
	}
	if c.RetryErrors != "" {
		if _, err := regexp.Compile(c.RetryErrors); err != nil {
			return fmt.Errorf("invalid retry-errors regexp: %w", err)
		}
	}
	return nil
}

// Client wraps a raw rpc connection with per-call timeouts, optional
// retries for matching errors, and a cache of immutable canonical
// headers. It satisfies the gasopt.NetworkReader interface.
type Client struct {
	config      ClientConfigFetcher
	client      *rpc.Client
	headerCache *lru.Cache[uint64, *types.Header]
	logId       atomic.Uint64
}

func NewClient(config ClientConfigFetcher) *Client {
	return &Client{config: config}
}

func (c *Client) Start(ctx context.Context) error {
	url := c.config().URL
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", url, err)
	}
	c.client = client
	if size := c.config().HeaderCacheSize; size > 0 {
		c.headerCache, err = lru.New[uint64, *types.Header](size)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func limitString(limit int, str string) string {
	if limit == 0 || len(str) <= limit {
		return str
	}
	prefix := str[:limit/2-1]
	postfix := str[len(str)-limit/2+1:]
	return fmt.Sprintf("%v..%v", prefix, postfix)
}

func logArgs(limit int, args ...interface{}) string {
	res := "["
	for i, arg := range args {
		marshalled, err := json.Marshal(arg)
		if err != nil {
			res += "\"CANNOT MARSHALL:" + limitString(limit, err.Error()) + "\""
		} else {
			res += limitString(limit, string(marshalled))
		}
		if i < len(args)-1 {
			res += ", "
		}
	}
	res += "]"
	return res
}

func (c *Client) CallContext(ctx_in context.Context, result interface{}, method string, args ...interface{}) error {
	if c.client == nil {
		return errors.New("not connected")
	}
	logId := c.logId.Add(1)
	log.Trace("sending RPC request", "method", method, "logId", logId, "args", logArgs(int(c.config().ArgLogLimit), args...))
	var err error
	for i := 0; i < int(c.config().Retries)+1; i++ {
		if ctx_in.Err() != nil {
			return ctx_in.Err()
		}
		var ctx context.Context
		var cancelCtx context.CancelFunc
		timeout := c.config().Timeout
		if timeout > 0 {
			ctx, cancelCtx = context.WithTimeout(ctx_in, timeout)
		} else {
			ctx, cancelCtx = context.WithCancel(ctx_in)
		}
		err = c.client.CallContext(ctx, result, method, args...)
		cancelCtx()
		logger := log.Trace
		limit := int(c.config().ArgLogLimit)
		if err != nil {
			logger = log.Info
			limit = 0
		}
		logger("rpc response", "method", method, "logId", logId, "err", err, "attempt", i, "args", logArgs(limit, args...))
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		retryErrors := c.config().RetryErrors
		if retryErrors != "" {
			match, regexErr := regexp.MatchString(retryErrors, err.Error())
			if regexErr != nil {
				log.Warn("rpcclient: bad value for retry-errors. Not retrying.", "err", err, "value", retryErrors)
			}
			if match {
				continue
			}
		}
		return err
	}
	return err
}

// SuggestGasPrice returns the network's currently suggested gas price
// in wei.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price hexutil.Big
	if err := c.CallContext(ctx, &price, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return (*big.Int)(&price), nil
}

// EstimateGas simulates the given call and returns the gas it would
// consume. Fails if the call would revert.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas hexutil.Uint64
	if err := c.CallContext(ctx, &gas, "eth_estimateGas", toCallArg(msg)); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

// HeaderByNumber returns the header for the given block number, or the
// latest header when number is nil. Only headers requested by explicit
// number are cached, since the latest block changes under us.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if number != nil && c.headerCache != nil {
		if header, ok := c.headerCache.Get(number.Uint64()); ok {
			return header, nil
		}
	}
	var header *types.Header
	if err := c.CallContext(ctx, &header, "eth_getBlockByNumber", toBlockNumArg(number), false); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, ethereum.NotFound
	}
	if number != nil && c.headerCache != nil {
		c.headerCache.Add(number.Uint64(), header)
	}
	return header, nil
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return hexutil.EncodeBig(number)
}

func toCallArg(msg ethereum.CallMsg) interface{} {
	arg := map[string]interface{}{
		"from": msg.From,
		"to":   msg.To,
	}
	if len(msg.Data) > 0 {
		arg["data"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	if msg.GasPrice != nil {
		arg["gasPrice"] = (*hexutil.Big)(msg.GasPrice)
	}
	return arg
}
