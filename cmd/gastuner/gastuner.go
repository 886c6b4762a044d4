// Copyright 2021-2024, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	flag "github.com/spf13/pflag"

	"github.com/offchainlabs/gastuner/cmd/genericconf"
	"github.com/offchainlabs/gastuner/cmd/util"
	"github.com/offchainlabs/gastuner/gasmonitor"
	"github.com/offchainlabs/gastuner/gasopt"
	"github.com/offchainlabs/gastuner/util/colors"
	"github.com/offchainlabs/gastuner/util/rpcclient"
)

func main() {
	args := os.Args
	if len(args) < 2 {
		printSampleUsage()
		os.Exit(1)
	}

	var err error
	switch strings.ToLower(args[1]) {
	case "price":
		err = startPrice(args[2:])
	case "estimate":
		err = startEstimate(args[2:])
	case "batch":
		err = startBatch(args[2:])
	case "watch":
		err = startWatch(args[2:])
	case "--help", "-h":
		printSampleUsage()
	default:
		err = fmt.Errorf("unknown command %q, valid commands are 'price', 'estimate', 'batch', 'watch'", args[1])
	}
	if err != nil {
		log.Error("error running gastuner", "err", err)
		os.Exit(1)
	}
}

func printSampleUsage() {
	progname := os.Args[0]
	fmt.Printf("\n")
	fmt.Printf("Sample usage: %s [price|estimate|batch|watch] --node.url <rpc url> ...\n", progname)
	fmt.Printf("              %s price --help\n", progname)
}

type GastunerConfig struct {
	Conf          genericconf.ConfConfig          `koanf:"conf"`
	Node          rpcclient.ClientConfig          `koanf:"node"`
	Gas           gasopt.Config                   `koanf:"gas"`
	Monitor       gasmonitor.Config               `koanf:"monitor"`
	TxFile        string                          `koanf:"tx-file"`
	Priority      string                          `koanf:"priority"`
	LogLevel      int                             `koanf:"log-level"`
	LogType       string                          `koanf:"log-type"`
	FileLogging   genericconf.FileLoggingConfig   `koanf:"file-logging"`
	Metrics       bool                            `koanf:"metrics"`
	MetricsServer genericconf.MetricsServerConfig `koanf:"metrics-server"`
}

var GastunerConfigDefault = GastunerConfig{
	Conf:          genericconf.ConfConfigDefault,
	Node:          rpcclient.DefaultClientConfig,
	Gas:           gasopt.DefaultConfig,
	Monitor:       gasmonitor.DefaultConfig,
	TxFile:        "",
	Priority:      "",
	LogLevel:      int(log.LvlInfo),
	LogType:       "plaintext",
	FileLogging:   genericconf.DefaultFileLoggingConfig,
	Metrics:       false,
	MetricsServer: genericconf.MetricsServerConfigDefault,
}

func configAddOptions(f *flag.FlagSet) {
	genericconf.ConfConfigAddOptions("conf", f)
	rpcclient.ClientConfigAddOptions("node", f, &rpcclient.DefaultClientConfig)
	gasopt.ConfigAddOptions("gas", f)
	gasmonitor.ConfigAddOptions("monitor", f)
	f.String("tx-file", GastunerConfigDefault.TxFile, "path to a JSON file with the draft transaction(s) to price")
	f.String("priority", GastunerConfigDefault.Priority, "priority tier to quote (slow, standard, fast, instant)")
	f.Int("log-level", GastunerConfigDefault.LogLevel, "log level")
	f.String("log-type", GastunerConfigDefault.LogType, "log type (plaintext or json)")
	genericconf.FileLoggingConfigAddOptions("file-logging", f)
	f.Bool("metrics", GastunerConfigDefault.Metrics, "enable metrics")
	genericconf.MetricsServerAddOptions("metrics-server", f)
}

func parseConfig(args []string) (*GastunerConfig, error) {
	f := flag.NewFlagSet("gastuner", flag.ContinueOnError)
	configAddOptions(f)

	k, err := util.BeginCommonParse(f, args)
	if err != nil {
		return nil, err
	}
	var config GastunerConfig
	if err := util.EndCommonParse(k, &config); err != nil {
		return nil, err
	}
	if config.Conf.Dump {
		if err := util.DumpConfig(k); err != nil {
			return nil, err
		}
	}
	if err := genericconf.InitLog(config.LogType, log.Lvl(config.LogLevel), &config.FileLogging); err != nil {
		return nil, err
	}
	if err := config.Node.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func newOptimizer(ctx context.Context, config *GastunerConfig) (*gasopt.Optimizer, *rpcclient.Client, error) {
	nodeConfig := config.Node
	client := rpcclient.NewClient(func() *rpcclient.ClientConfig { return &nodeConfig })
	if err := client.Start(ctx); err != nil {
		return nil, nil, err
	}
	optimizer, err := gasopt.NewOptimizer(&config.Gas, client)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return optimizer, client, nil
}

// gastuner price

func startPrice(args []string) error {
	config, err := parseConfig(args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	optimizer, client, err := newOptimizer(ctx, config)
	if err != nil {
		return err
	}
	defer client.Close()

	if config.Priority != "" {
		quote, err := optimizer.PriceForPriority(ctx, gasopt.Priority(config.Priority))
		if err != nil {
			return err
		}
		return printQuote(string(config.Priority), quote)
	}
	quote, err := optimizer.OptimalGasPrice(ctx)
	if err != nil {
		return err
	}
	if err := printQuote("optimal", quote); err != nil {
		return err
	}
	for _, priority := range []gasopt.Priority{gasopt.PrioritySlow, gasopt.PriorityStandard, gasopt.PriorityFast, gasopt.PriorityInstant} {
		quote, err := optimizer.PriceForPriority(ctx, priority)
		if err != nil {
			return err
		}
		if err := printQuote(string(priority), quote); err != nil {
			return err
		}
	}
	return nil
}

func printQuote(label string, quote gasopt.PriceQuote) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	if quote.Degraded {
		colors.PrintYellow(label, ": ", string(payload))
	} else {
		colors.PrintMint(label, ": ", string(payload))
	}
	return nil
}

// gastuner estimate

func readDrafts(path string) ([]gasopt.DraftTransaction, error) {
	if path == "" {
		return nil, fmt.Errorf("--tx-file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var drafts []gasopt.DraftTransaction
	if err := json.Unmarshal(data, &drafts); err != nil {
		// accept a single transaction object as well
		var draft gasopt.DraftTransaction
		if objErr := json.Unmarshal(data, &draft); objErr != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		drafts = []gasopt.DraftTransaction{draft}
	}
	return drafts, nil
}

func startEstimate(args []string) error {
	config, err := parseConfig(args)
	if err != nil {
		return err
	}
	drafts, err := readDrafts(config.TxFile)
	if err != nil {
		return err
	}
	if len(drafts) != 1 {
		return fmt.Errorf("estimate expects exactly one transaction, got %d (use 'batch' for more)", len(drafts))
	}
	ctx := context.Background()
	optimizer, client, err := newOptimizer(ctx, config)
	if err != nil {
		return err
	}
	defer client.Close()

	annotated, err := optimizer.OptimizeContractCall(ctx, &drafts[0])
	if err != nil {
		return err
	}
	return printJSON(annotated)
}

// gastuner batch

func startBatch(args []string) error {
	config, err := parseConfig(args)
	if err != nil {
		return err
	}
	drafts, err := readDrafts(config.TxFile)
	if err != nil {
		return err
	}
	ctx := context.Background()
	optimizer, client, err := newOptimizer(ctx, config)
	if err != nil {
		return err
	}
	defer client.Close()

	annotated, err := optimizer.BatchTransactions(ctx, drafts)
	if err != nil {
		return err
	}
	if err := printJSON(annotated); err != nil {
		return err
	}
	if stats, ok := optimizer.Stats(); ok {
		log.Info("batch estimation complete", "count", stats.Count, "meanRaw", stats.MeanRawEstimate, "meanBuffered", stats.MeanBufferedEstimate, "bufferEfficiency", stats.BufferEfficiency)
	}
	return nil
}

func printJSON(v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}

// gastuner watch

func startWatch(args []string) error {
	config, err := parseConfig(args)
	if err != nil {
		return err
	}
	if err := util.StartMetrics(config.Metrics, &config.MetricsServer); err != nil {
		return err
	}
	ctx := context.Background()
	optimizer, client, err := newOptimizer(ctx, config)
	if err != nil {
		return err
	}
	defer client.Close()

	monitor, err := gasmonitor.NewMonitor(&config.Monitor, optimizer)
	if err != nil {
		return err
	}
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer log.Info("cleanly shutting down gas monitor")

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	monitor.StopAndWait()
	report := monitor.Report()
	return printJSON(report)
}
