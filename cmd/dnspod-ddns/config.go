package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seewindcn/dnspod-ddns"
)

// config is the merged process configuration.
// Sources in order of precedence: command line flags, DDNS_* environment variables, the YAML config file.
type config struct {
	Token     string `yaml:"token"`
	KeyFile   string `yaml:"key-file"`
	Provider  string `yaml:"provider"`
	Domain    string `yaml:"domain"`
	SubDomain string `yaml:"sub-domain"`
	Interval  int    `yaml:"interval"` // seconds between ticks
	Refresh   *int   `yaml:"refresh"`  // ticks between resyncs
	Verbose   bool   `yaml:"verbose"`
	IPURL     string `yaml:"ip-url"`
	IP        string `yaml:"ip"`
	Interface string `yaml:"interface"`
	Once      bool   `yaml:"once"`
}

var providers = []string{"dnspod", "cloudflare"}

func loadConfigFile(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// applyEnv overrides cfg with the DDNS_* variables found in the environment.
func applyEnv(cfg *config, lookup func(string) (string, bool)) {
	for name, field := range map[string]*string{
		"DDNS_TOKEN":      &cfg.Token,
		"DDNS_PROVIDER":   &cfg.Provider,
		"DDNS_DOMAIN":     &cfg.Domain,
		"DDNS_SUB_DOMAIN": &cfg.SubDomain,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*field = v
		}
	}
}

// applyFlags overrides cfg with the flags that were set on the command line.
func applyFlags(cfg *config, cmd *cobra.Command, f *config, refresh int) {
	changed := cmd.Flags().Changed
	set := func(name string, dst *string, src string) {
		if changed(name) {
			*dst = src
		}
	}
	set("token", &cfg.Token, f.Token)
	set("provider", &cfg.Provider, f.Provider)
	set("domain", &cfg.Domain, f.Domain)
	set("sub-domain", &cfg.SubDomain, f.SubDomain)
	set("ip-url", &cfg.IPURL, f.IPURL)
	set("ip", &cfg.IP, f.IP)
	set("interface", &cfg.Interface, f.Interface)
	if changed("key-file") || cfg.KeyFile == "" {
		cfg.KeyFile = f.KeyFile
	}
	if changed("interval") {
		cfg.Interval = f.Interval
	}
	if changed("refresh") {
		cfg.Refresh = &refresh
	}
	if changed("verbose") {
		cfg.Verbose = f.Verbose
	}
	if changed("once") {
		cfg.Once = f.Once
	}
	if cfg.Provider == "" {
		cfg.Provider = f.Provider
	}
	if cfg.IPURL == "" {
		cfg.IPURL = f.IPURL
	}
}

func (cfg *config) validate() error {
	var errs []error
	if cfg.Domain == "" {
		errs = append(errs, errors.New("domain is required"))
	}
	if cfg.SubDomain == "" {
		errs = append(errs, errors.New("sub-domain is required"))
	}
	if !cfg.Once {
		if cfg.Interval <= 0 {
			errs = append(errs, fmt.Errorf("interval must be a positive number of seconds; got %d", cfg.Interval))
		}
	}
	switch {
	case cfg.Refresh == nil:
		errs = append(errs, errors.New("refresh is required"))
	case *cfg.Refresh < 0:
		errs = append(errs, fmt.Errorf("refresh must not be negative; got %d", *cfg.Refresh))
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if !contains(providers, cfg.Provider) {
		errs = append(errs, fmt.Errorf("unsupported provider %q (supported: %s)", cfg.Provider, strings.Join(providers, ", ")))
	}
	if cfg.IP != "" && cfg.Interface != "" {
		errs = append(errs, errors.New("ip and interface are mutually exclusive"))
	}
	return errors.Join(errs...)
}

// resolver builds the IP source selected by the configuration.
func (cfg *config) resolver() (ddns.Resolver, error) {
	switch {
	case cfg.IP != "":
		return ddns.FromString(cfg.IP)
	case cfg.Interface != "":
		return ddns.InterfaceResolver(cfg.Interface), nil
	default:
		return ddns.WebResolver(cfg.IPURL)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
