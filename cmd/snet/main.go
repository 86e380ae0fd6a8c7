// Command snet is the marketplace client: account and escrow management,
// payment channels, paid service calls, and provider claim cycles.
//
// Configuration comes from SNET_* environment variables; see the config
// package for the full list.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	snet "github.com/singnet/snet-client-go"
	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/config"
	"github.com/singnet/snet-client-go/logger"
	"github.com/singnet/snet-client-go/metrics"
	"github.com/singnet/snet-client-go/types"
)

// Exit codes: 0 success, 1 usage or configuration mistakes, 42 operational
// failures surfaced as typed errors.
const (
	exitOK    = 0
	exitUsage = 1
	exitError = 42
)

type globalOpts struct {
	yes       bool
	verbose   bool
	quiet     bool
	traceback bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("snet", flag.ContinueOnError)
	opts := &globalOpts{}
	fs.BoolVar(&opts.yes, "yes", false, "skip transaction confirmation prompts")
	fs.BoolVar(&opts.verbose, "verbose", false, "debug logging")
	fs.BoolVar(&opts.quiet, "quiet", false, "errors only")
	fs.BoolVar(&opts.traceback, "print-traceback", false, "print full error details")
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		usage()
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration:", err)
		return exitUsage
	}

	level := cfg.LogLevel
	if opts.verbose {
		level = "debug"
	}
	if opts.quiet {
		level = "error"
	}
	log := logger.NewZapLogger(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clientOpts := []snet.Option{snet.WithLogger(log)}
	if !opts.yes {
		clientOpts = append(clientOpts, snet.WithConfirm(promptConfirm))
	}
	if cfg.MetricsAddr != "" {
		clientOpts = append(clientOpts, snet.WithMetrics(metrics.NewPrometheusRecorder()))
		go serveMetrics(cfg.MetricsAddr, log)
	}
	client, err := snet.New(ctx, cfg, clientOpts...)
	if err != nil {
		return render(opts, err)
	}
	defer client.Close()

	cmd, cmdArgs := rest[0], rest[1:]
	var cmdErr error
	switch cmd {
	case "account":
		cmdErr = cmdAccount(ctx, client, cmdArgs)
	case "channel":
		cmdErr = cmdChannel(ctx, client, cmdArgs)
	case "call":
		cmdErr = cmdCall(ctx, client, cmdArgs)
	case "claim":
		cmdErr = cmdClaim(ctx, client, cmdArgs)
	case "organization":
		cmdErr = cmdOrganization(ctx, client, cmdArgs)
	case "service":
		cmdErr = cmdService(ctx, client, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		return exitUsage
	}
	if cmdErr != nil {
		return render(opts, cmdErr)
	}
	return exitOK
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: snet [flags] <command> [args]

Commands:
  account       balance, deposit, withdraw, transfer
  channel       open, extend, add-funds, print, claim-timeout
  call          invoke a paid service method
  claim         run a provider claim cycle
  organization  list, info, create, change-metadata, change-owner,
                add-members, remove-members, delete
  service       info, register, update, delete

Flags:
  -yes               skip transaction confirmation prompts
  -verbose           debug logging
  -quiet             errors only
  -print-traceback   print full error details
`)
}

var errUsage = errors.New("usage")

func render(opts *globalOpts, err error) int {
	if errors.Is(err, errUsage) {
		return exitUsage
	}
	var te *types.Error
	if errors.As(err, &te) {
		fmt.Fprintf(os.Stderr, "error[%s]: %s\n", te.Code, te.Message)
		if opts.traceback {
			if te.Data != nil {
				fmt.Fprintf(os.Stderr, "  data: %v\n", te.Data)
			}
		} else {
			fmt.Fprintln(os.Stderr, "re-run with -print-traceback for details")
		}
		return exitError
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return exitError
}

// serveMetrics exposes the prometheus registry for the lifetime of the
// process. Useful when the CLI runs long claim cycles under a scheduler.
func serveMetrics(addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics endpoint failed", map[string]any{"addr": addr, "err": err.Error()})
	}
}

// promptConfirm shows the transaction about to be broadcast and waits for
// consent on stdin.
func promptConfirm(p blockchain.TxPreview) bool {
	fmt.Printf("about to submit %s\n", p.Method)
	fmt.Printf("  from:      %s\n", p.From.Hex())
	fmt.Printf("  to:        %s\n", p.To.Hex())
	fmt.Printf("  nonce:     %d\n", p.Nonce)
	fmt.Printf("  gas price: %s wei\n", p.GasPrice)
	fmt.Printf("  gas limit: %d\n", p.GasLimit)
	fmt.Print("Proceed? (y/n): ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
