package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seewindcn/dnspod-ddns"
)

// options holds the raw command line values before they are merged with the environment and the config file.
type options struct {
	flags      config
	refresh    int
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "dnspod-ddns",
		Short: "Keeps a DNS A record pointed at the public IP of this host",
		Long: `dnspod-ddns looks up the A record <sub-domain>.<domain> at the DNS provider,
then checks the public IP of this host every --interval seconds and updates the
record when the address changed. Every --refresh ticks the record is read back
from the provider to pick up changes made elsewhere.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd, os.LookupEnv)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.Verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, logger, cfg); err != nil {
				logger.Error("exiting", zap.Error(err))
				return err
			}
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func (o *options) bind(cmd *cobra.Command) {
	home, _ := os.UserHomeDir()

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "Path to a YAML config file")
	f.StringVarP(&o.flags.Token, "token", "t", "", "DNS provider API token (dnspod: SecretId,SecretKey)")
	f.StringVarP(&o.flags.KeyFile, "key-file", "k", filepath.Join(home, ".dnspod-ddns"), "Path to a file holding the API token, used when no token is given")
	f.StringVarP(&o.flags.Provider, "provider", "p", "dnspod", "DNS provider: dnspod|cloudflare")
	f.StringVarP(&o.flags.Domain, "domain", "d", "", "DNS zone, e.g. example.com")
	f.StringVarP(&o.flags.SubDomain, "sub-domain", "s", "", "Record host label within the zone, e.g. home")
	f.IntVarP(&o.flags.Interval, "interval", "i", 0, "Seconds to wait between IP checks")
	f.IntVarP(&o.refresh, "refresh", "r", 0, "Number of checks between two full reads of the record from the provider")
	f.BoolVarP(&o.flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	f.StringVar(&o.flags.IPURL, "ip-url", ddns.DefaultIPServiceURL, "Web service answering with the public IP")
	f.StringVar(&o.flags.IP, "ip", "", "Use this IPv4 address instead of looking it up")
	f.StringVar(&o.flags.Interface, "interface", "", "Use the IPv4 address of this network interface instead of a web service")
	f.BoolVar(&o.flags.Once, "once", false, "Reconcile once and exit")
}

// load merges the config file, the environment and the parsed flags of cmd, and validates the result.
func (o *options) load(cmd *cobra.Command, lookupEnv func(string) (string, bool)) (*config, error) {
	cfg := &config{}
	if o.configPath != "" {
		fileCfg, err := loadConfigFile(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	applyEnv(cfg, lookupEnv)
	applyFlags(cfg, cmd, &o.flags, o.refresh)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger, cfg *config) error {
	logger.Debug("config is valid",
		zap.String("provider", cfg.Provider),
		zap.String("domain", cfg.Domain),
		zap.String("subDomain", cfg.SubDomain),
		zap.Int("interval", cfg.Interval),
		zap.Intp("refresh", cfg.Refresh),
	)

	target, err := ddns.NewTarget(cfg.SubDomain, cfg.Domain)
	if err != nil {
		return err
	}
	token, err := loadToken(ctx, logger, cfg)
	if err != nil {
		return err
	}
	resolver, err := cfg.resolver()
	if err != nil {
		return fmt.Errorf("error creating IP resolver: %w", err)
	}

	usingProvider := ddns.UsingDNSPod
	if cfg.Provider == "cloudflare" {
		usingProvider = ddns.UsingCloudflare
	}
	client, err := ddns.New(target,
		usingProvider(token),
		ddns.UsingResolver(resolver),
		ddns.WithRefresh(*cfg.Refresh),
		ddns.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("error creating ddns client: %w", err)
	}
	return serve(ctx, client, cfg)
}

// serve drives client until ctx is done, or for a single cycle with --once.
// A failed startup resync is returned; a cancelled context is not an error.
func serve(ctx context.Context, client *ddns.Client, cfg *config) error {
	if cfg.Once {
		return client.RunOnce(ctx)
	}
	err := client.Run(ctx, time.Duration(cfg.Interval)*time.Second)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// interrupted during the initial resync
		return nil
	}
	return err
}
