package rpcclient

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/offchainlabs/gastuner/util/testhelpers"
)

type estimateGasArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
}

type testEthService struct {
	mutex         sync.Mutex
	gasPrice      int64
	estimate      uint64
	gasPriceFails int
	headerCalls   int
}

func (s *testEthService) GasPrice() (*hexutil.Big, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.gasPriceFails > 0 {
		s.gasPriceFails--
		return nil, errors.New("flaky backend")
	}
	return (*hexutil.Big)(big.NewInt(s.gasPrice)), nil
}

func (s *testEthService) EstimateGas(args estimateGasArgs) (hexutil.Uint64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if args.Data != nil && len(*args.Data) > 0 && (*args.Data)[0] == 0xff {
		return 0, errors.New("execution reverted")
	}
	return hexutil.Uint64(s.estimate), nil
}

func (s *testEthService) GetBlockByNumber(number string, fullTx bool) (*types.Header, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.headerCalls++
	blockNumber := big.NewInt(7)
	if number != "latest" {
		parsed, err := hexutil.DecodeBig(number)
		if err != nil {
			return nil, err
		}
		blockNumber = parsed
	}
	return &types.Header{
		ParentHash: common.Hash{},
		Difficulty: big.NewInt(1),
		Number:     blockNumber,
		GasLimit:   30_000_000,
		GasUsed:    15_000_000,
		Time:       1700000000,
		Extra:      []byte{},
	}, nil
}

func newTestSetup(t *testing.T, service *testEthService, config ClientConfig) *Client {
	t.Helper()
	server := rpc.NewServer()
	Require(t, server.RegisterName("eth", service))
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	config.URL = httpServer.URL
	client := NewClient(func() *ClientConfig { return &config })
	Require(t, client.Start(context.Background()))
	t.Cleanup(client.Close)
	return client
}

func TestTypedCalls(t *testing.T) {
	ctx := context.Background()
	service := &testEthService{gasPrice: 42, estimate: 21000}
	client := newTestSetup(t, service, TestClientConfig)

	price, err := client.SuggestGasPrice(ctx)
	Require(t, err)
	if price.Int64() != 42 {
		Fail(t, "expected gas price 42, got", price)
	}

	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{})
	Require(t, err)
	if gas != 21000 {
		Fail(t, "expected estimate 21000, got", gas)
	}

	header, err := client.HeaderByNumber(ctx, nil)
	Require(t, err)
	if header.GasUsed != 15_000_000 || header.GasLimit != 30_000_000 {
		Fail(t, "unexpected header", header)
	}
}

func TestEstimateGasRevert(t *testing.T) {
	ctx := context.Background()
	service := &testEthService{estimate: 21000}
	client := newTestSetup(t, service, TestClientConfig)

	_, err := client.EstimateGas(ctx, ethereum.CallMsg{Data: []byte{0xff}})
	if err == nil {
		Fail(t, "revert should propagate")
	}
}

func TestRetryMatchingErrors(t *testing.T) {
	ctx := context.Background()
	service := &testEthService{gasPrice: 42, gasPriceFails: 2}
	config := TestClientConfig
	config.Retries = 2
	config.RetryErrors = "flaky.*"
	client := newTestSetup(t, service, config)

	price, err := client.SuggestGasPrice(ctx)
	Require(t, err)
	if price.Int64() != 42 {
		Fail(t, "expected gas price 42 after retries, got", price)
	}
}

func TestNoRetryWithoutMatch(t *testing.T) {
	ctx := context.Background()
	service := &testEthService{gasPrice: 42, gasPriceFails: 1}
	config := TestClientConfig
	config.Retries = 2
	config.RetryErrors = "some other error"
	client := newTestSetup(t, service, config)

	if _, err := client.SuggestGasPrice(ctx); err == nil {
		Fail(t, "non-matching errors must not be retried")
	}
}

func TestHeaderCaching(t *testing.T) {
	ctx := context.Background()
	service := &testEthService{}
	client := newTestSetup(t, service, TestClientConfig)

	for i := 0; i < 3; i++ {
		_, err := client.HeaderByNumber(ctx, big.NewInt(5))
		Require(t, err)
	}
	if service.headerCalls != 1 {
		Fail(t, "headers by explicit number should be cached, saw", service.headerCalls, "calls")
	}

	for i := 0; i < 2; i++ {
		_, err := client.HeaderByNumber(ctx, nil)
		Require(t, err)
	}
	if service.headerCalls != 3 {
		Fail(t, "the latest header must never be cached, saw", service.headerCalls, "calls")
	}
}

func TestLimitString(t *testing.T) {
	if limitString(0, "unlimited") != "unlimited" {
		Fail(t, "limit 0 should disable truncation")
	}
	limited := limitString(8, "0123456789abcdef")
	if len(limited) > 10 || limited[3] != '.' {
		Fail(t, "unexpected truncation:", limited)
	}
}

func TestConfigValidate(t *testing.T) {
	config := DefaultClientConfig
	if err := config.Validate(); err == nil {
		Fail(t, "empty url should be rejected")
	}
	config.URL = "http://localhost:8545"
	Require(t, config.Validate())
	config.RetryErrors = "("
	if err := config.Validate(); err == nil {
		Fail(t, "invalid regexp should be rejected")
	}
}

func Require(t *testing.T, err error, printables ...interface{}) {
	t.Helper()
	testhelpers.RequireImpl(t, err, printables...)
}

func Fail(t *testing.T, printables ...interface{}) {
	t.Helper()
	testhelpers.FailImpl(t, printables...)
}
