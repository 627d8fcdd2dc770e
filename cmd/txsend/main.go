package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gov-txengine-sol/internal/config"
	"gov-txengine-sol/pkg/engine"
	"gov-txengine-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/conf"
)

var cmdMain = &cobra.Command{
	Use:   "txsend",
	Short: "Broadcast governance transactions and wait for confirmation",
	Run:   printUsageAndExit1,
}

var cmdSend = &cobra.Command{
	Use:   "send",
	Short: "Sign and broadcast the batches described by a manifest",
	Args:  cobra.NoArgs,
	Run:   runSend,
}

var cmdFee = &cobra.Command{
	Use:   "fee [account...]",
	Short: "Estimate the priority fee (micro-lamports per CU) for the given writable accounts",
	Run:   runFee,
}

var flagMain struct {
	ConfigFile  string
	MetricsAddr string
}

var flagSend struct {
	Manifest string
	Mode     string
}

var (
	colorOK   = color.New(color.FgGreen)
	colorFail = color.New(color.FgRed)
	colorWarn = color.New(color.FgYellow)
	colorInfo = color.New(color.FgCyan)
)

func init() {
	cmdMain.PersistentFlags().StringVarP(&flagMain.ConfigFile, "config", "f", "etc/txsend.yaml", "the config file")
	cmdMain.PersistentFlags().StringVar(&flagMain.MetricsAddr, "metrics-addr", "", "Expose /metrics on this address (overrides config)")
	cmdSend.Flags().StringVarP(&flagSend.Manifest, "manifest", "m", "", "Manifest file describing the batches")
	cmdSend.Flags().StringVar(&flagSend.Mode, "mode", "", "parallel, sequential or stop_on_failure (overrides manifest)")
	_ = cmdSend.MarkFlagRequired("manifest")

	cmdMain.AddCommand(cmdSend, cmdFee)
}

func main() {
	if err := cmdMain.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	var c config.Config
	conf.MustLoad(flagMain.ConfigFile, &c)
	if flagMain.MetricsAddr != "" {
		c.MetricsAddr = flagMain.MetricsAddr
	}
	c.KeypairPath = expandHome(c.KeypairPath)
	check(c.Validate())
	check(logger.Init(c.LogConf.ToLogOption()))
	return c
}

func runSend(_ *cobra.Command, _ []string) {
	c := loadConfig()
	defer logger.Sync()
	if c.KeypairPath == "" {
		fatalf("keypair_path is required to send transactions")
	}

	manifest, err := LoadManifest(flagSend.Manifest)
	check(err)
	mode, err := resolveMode(flagSend.Mode, manifest.Mode)
	check(err)

	eng, err := engine.New(c, nil)
	check(err)
	defer eng.Close()

	batches, generated, err := manifest.Build(eng.Wallet().PublicKey(), filepath.Dir(flagSend.Manifest))
	check(err)
	for _, g := range generated {
		colorInfo.Printf("generated signer %s: %s\n", g.Name, g.PublicKey.ToBase58())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := eng.Submit(ctx, batches, mode, engine.Callbacks{
		OnSuccess: func(signature string, index, total int) {
			colorOK.Printf("[%d/%d] confirmed %s\n", index+1, total, signature)
		},
		OnFailure: func(err error, index, total int) {
			var timeout *engine.TimeoutError
			if errors.As(err, &timeout) {
				colorWarn.Printf("[%d/%d] %v (may still land, check an explorer)\n", index+1, total, err)
				return
			}
			colorFail.Printf("[%d/%d] %v\n", index+1, total, err)
		},
	})
	if err != nil {
		eng.Close()
		fatalf("%v", err)
	}

	confirmed, failed, notSubmitted := report.Counts()
	summary := fmt.Sprintf("submission %s (%s, fee %d): %d confirmed, %d failed, %d not submitted",
		report.SubmissionID, report.Mode, report.PriorityFee, confirmed, failed, notSubmitted)
	if report.Succeeded() {
		colorOK.Println(summary)
		return
	}
	colorFail.Println(summary)
	eng.Close()
	os.Exit(1)
}

func runFee(_ *cobra.Command, args []string) {
	c := loadConfig()
	defer logger.Sync()

	accounts := make([]common.PublicKey, 0, len(args))
	for _, a := range args {
		pk, err := parsePubkey(a, nil)
		check(err)
		accounts = append(accounts, pk)
	}

	eng, err := engine.New(c, nil)
	check(err)
	defer eng.Close()

	fmt.Println(eng.EstimateFee(context.Background(), accounts...))
}

// resolveMode 命令行优先，其次 manifest，默认失败即停
func resolveMode(flag, manifest string) (engine.Mode, error) {
	switch {
	case flag != "":
		return engine.ParseMode(flag)
	case manifest != "":
		return engine.ParseMode(manifest)
	default:
		return engine.ModeStopOnFailure, nil
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func printUsageAndExit1(cmd *cobra.Command, _ []string) {
	_ = cmd.Usage()
	os.Exit(1)
}

func fatalf(format string, args ...any) {
	colorFail.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}
