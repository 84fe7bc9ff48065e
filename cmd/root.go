package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"surgeq/internal/banner"
	"surgeq/internal/cli"
	"surgeq/internal/logging"
	"surgeq/internal/metrics"
	"surgeq/internal/runner"
	"surgeq/internal/tui/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "surgeq",
	Short: "SurgeQ - Fixed-Budget HTTP Load Generator",
	Long: `
SurgeQ fires a fixed number of HTTP requests at one URL from a pool of
concurrent workers and reports throughput and the status code distribution.

It supports two output modes:
1. Headless (Default): progress line and summary on stdout, CI friendly
2. TUI (--tui): full-screen live view`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromViper(viper.GetViper())
		if err != nil {
			return err
		}

		if viper.GetBool("tui") {
			return runTUI(cfg, viper.GetString("metrics-addr"))
		}
		_, err = cli.Start(cfg, cli.Options{MetricsAddr: viper.GetString("metrics-addr")})
		return err
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.surgeq.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	defaults := runner.DefaultConfig()
	f := rootCmd.Flags()
	f.StringP("url", "u", "", "Target URL (required)")
	f.IntP("requests", "n", defaults.TotalRequests, "Total number of requests")
	f.IntP("concurrency", "c", defaults.Concurrency, "Number of concurrent workers")
	f.IntP("batch-size", "b", defaults.BatchSize, "Max in-flight requests per worker")
	f.IntP("timeout", "t", int(defaults.Timeout/time.Millisecond), "Request timeout in ms")
	f.StringP("method", "m", defaults.Method, "HTTP method")
	f.StringSliceP("header", "H", []string{}, "HTTP header, repeatable (e.g. \"Key: Value\")")
	f.StringP("data", "d", "", "Request body")
	f.BoolP("insecure", "k", false, "Skip TLS certificate verification")
	f.BoolP("follow-redirects", "f", defaults.FollowRedirects, "Follow HTTP redirects")
	f.IntP("max-redirects", "r", defaults.MaxRedirects, "Maximum redirects to follow")
	f.Int("report-interval", defaults.ReportInterval, "Progress cadence in completed requests per worker")
	f.Bool("keep-alive", defaults.KeepAlive, "Reuse connections")
	f.Int("max-sockets", defaults.MaxSockets, "Max connections per worker")
	f.Bool("tui", false, "Show the full-screen live view")
	f.String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")

	_ = viper.BindPFlags(rootCmd.Flags())
	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".surgeq")
		}
	}
	viper.SetEnvPrefix("SURGEQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	readErr := viper.ReadInConfig()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(viper.GetString("log-level")),
		Pretty: true,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("config")
	if readErr == nil {
		logger.Info().Str("file", viper.ConfigFileUsed()).Msg("Using config file")
	} else if cfgFile != "" {
		logger.Warn().Err(readErr).Str("file", cfgFile).Msg("Could not read config file")
	}
}

// configFromViper merges flags, config file and environment into a run config.
func configFromViper(v *viper.Viper) (runner.Config, error) {
	cfg := runner.DefaultConfig()

	cfg.URL = v.GetString("url")
	cfg.Method = strings.ToUpper(v.GetString("method"))
	cfg.TotalRequests = v.GetInt("requests")
	cfg.Concurrency = v.GetInt("concurrency")
	cfg.BatchSize = v.GetInt("batch-size")
	cfg.Timeout = time.Duration(v.GetInt("timeout")) * time.Millisecond
	cfg.Headers = runner.ParseHeaders(headerList(v))
	if data := v.GetString("data"); data != "" {
		cfg.Body = []byte(data)
	}
	cfg.VerifyTLS = !v.GetBool("insecure")
	cfg.FollowRedirects = v.GetBool("follow-redirects")
	cfg.MaxRedirects = v.GetInt("max-redirects")
	cfg.ReportInterval = v.GetInt("report-interval")
	cfg.KeepAlive = v.GetBool("keep-alive")
	cfg.MaxSockets = v.GetInt("max-sockets")

	if err := cfg.Validate(); err != nil {
		return runner.Config{}, err
	}
	return cfg, nil
}

// headerList reads the header key. Flags and YAML lists arrive as slices; an env
// var or YAML scalar arrives as one string holding comma or newline separated
// "Name: value" pairs. A comma segment without a colon belongs to the previous
// value, so "Accept: a, b" stays one header.
func headerList(v *viper.Viper) []string {
	raw, ok := v.Get("header").(string)
	if !ok {
		return v.GetStringSlice("header")
	}

	var headers []string
	for _, line := range strings.Split(raw, "\n") {
		for _, part := range strings.Split(line, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			if !strings.Contains(part, ":") && len(headers) > 0 {
				headers[len(headers)-1] += "," + part
				continue
			}
			headers = append(headers, strings.TrimSpace(part))
		}
	}
	return headers
}

func runTUI(cfg runner.Config, metricsAddr string) error {
	updates := make(runner.StatsUpdateChan, 100)
	c, err := runner.NewCoordinator(cfg, updates)
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c.Metrics = metrics.NewRecorder()
		c.Metrics.Serve(ctx, metricsAddr, logging.NewLogger("metrics"))
	}

	report, err := app.Start(c)
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Println("Run abandoned before completion.")
		return nil
	}
	cli.PrintSummary(os.Stdout, report)
	return nil
}
