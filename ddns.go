package ddns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

// DefaultRefresh is the number of ticks between two resyncs when WithRefresh is not used.
const DefaultRefresh = 60

// New creates a Client that keeps target pointed at the public IP of the host.
//
// A provider must be registered with one of UsingDNSPod, UsingCloudflare or UsingProvider.
// Without UsingResolver or UsingWebResolver the public IP is fetched from DefaultIPServiceURL.
func New(target Target, options ...clientOption) (*Client, error) {
	if target.Domain == "" {
		return nil, fmt.Errorf("ddns.New: domain cannot be empty")
	}
	if target.SubDomain == "" {
		return nil, fmt.Errorf("ddns.New: sub domain cannot be empty")
	}
	c := &Client{
		target:  target,
		refresh: DefaultRefresh,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("ddns.New: option %d returned an error: %s", i, err)
		}
	}

	if c.Provider == nil {
		return nil, fmt.Errorf("ddns.New: no DNS provider was registered and there is no default option - use ddns.UsingDNSPod or similar")
	}
	if c.Resolver == nil {
		r, err := WebResolver(DefaultIPServiceURL)
		if err != nil {
			return nil, fmt.Errorf("ddns.New: %w", err)
		}
		c.Resolver = r
	}

	// this lets us propagate the logger and http client to dependencies registered after WithLogger/UsingHTTPClient
	withLogger(c.logger)(c)
	if c.httpClient != nil {
		if err := withHTTPClient(c.httpClient)(c); err != nil {
			return nil, fmt.Errorf("ddns.New: %w", err)
		}
	}
	return c, nil
}

type clientOption func(*Client) error

// UsingDNSPod registers the DNSPod provider.
// token holds a Tencent Cloud API key pair formatted as "SecretId,SecretKey".
func UsingDNSPod(token string) clientOption {
	return func(c *Client) (err error) {
		if c.Provider, err = newDNSPodProvider(token, c.target.Domain, "", ""); err != nil {
			return fmt.Errorf("ddns.UsingDNSPod: error creating dnspod DNS provider: %w", err)
		}
		return nil
	}
}

// UsingCloudflare registers the Cloudflare provider. token is an API token with DNS edit permission on the zone.
func UsingCloudflare(token string) clientOption {
	return func(c *Client) (err error) {
		if c.Provider, err = newCloudflareProvider(token, c.target.Domain); err != nil {
			return fmt.Errorf("ddns.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		return nil
	}
}

// UsingProvider registers a custom provider.
func UsingProvider(provider Provider) clientOption {
	return func(c *Client) error {
		if provider == nil {
			return errors.New("provider cannot be nil")
		}
		c.Provider = provider
		return nil
	}
}

func UsingResolver(resolver Resolver) clientOption {
	return func(c *Client) error {
		c.Resolver = resolver
		return nil
	}
}

func UsingWebResolver(serviceURL string) clientOption {
	return func(c *Client) (err error) {
		c.Resolver, err = WebResolver(serviceURL)
		return err
	}
}

// WithRefresh sets the number of ticks between two resyncs of the cached record with the provider.
// Zero resyncs on every tick.
func WithRefresh(ticks int) clientOption {
	return func(c *Client) error {
		if ticks < 0 {
			return fmt.Errorf("refresh must not be negative; got %d", ticks)
		}
		c.refresh = ticks
		return nil
	}
}

func WithLogger(logger *zap.Logger) clientOption {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

func withLogger(logger *zap.Logger) clientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		c.logger = logger
		type setLogger interface {
			SetLogger(*zap.Logger)
		}

		if p, ok := c.Provider.(setLogger); ok {
			p.SetLogger(logger.Named(providerName(c.Provider)))
		}
		if r, ok := c.Resolver.(setLogger); ok {
			r.SetLogger(logger.Named("resolver"))
		}
		return nil
	}
}

func UsingHTTPClient(httpclient *http.Client) clientOption {
	return func(c *Client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		c.httpClient = httpclient
		return nil
	}
}

func withHTTPClient(httpclient *http.Client) clientOption {
	return func(c *Client) error {
		type setHTTPClient interface {
			SetHTTPClient(*http.Client)
		}
		if hc, ok := c.Resolver.(setHTTPClient); ok {
			hc.SetHTTPClient(httpclient)
		}
		switch p := c.Provider.(type) {
		case *cloudflareProvider:
			return cloudflare.HTTPClient(httpclient)(p.api)
		case *dnspodProvider:
			p.sdk.WithHttpTransport(httpclient.Transport)
		case setHTTPClient:
			p.SetHTTPClient(httpclient)
		}
		return nil
	}
}

func providerName(p Provider) string {
	switch p.(type) {
	case *dnspodProvider:
		return "dnspod"
	case *cloudflareProvider:
		return "cloudflare"
	default:
		return "provider"
	}
}

// State is what a Client knows about the managed record between two cycles.
//
// RecordID and RecordValue are always replaced together by a resync.
// Ticks counts the cycles since the last successful resync and never exceeds the refresh threshold.
type State struct {
	RecordID    string
	RecordValue string
	Ticks       int
}

// Client reconciles one address record with the public IP of the host.
// A Client holds no mutable state of its own; the record state is passed through Cycle.
type Client struct {
	Resolver
	Provider

	target     Target
	refresh    int
	logger     *zap.Logger
	httpClient *http.Client
}

// Target returns the record managed by c.
func (c *Client) Target() Target { return c.target }

// Sync reads the record identity and value from the provider.
//
// An absent record is reported as an error wrapping ErrRecordNotFound.
func (c *Client) Sync(ctx context.Context) (State, error) {
	rec, err := c.LookupRecord(ctx, c.target.SubDomain)
	if err != nil {
		return State{}, fmt.Errorf("error looking up %s: %w", c.target, err)
	}
	switch r := rec.(type) {
	case AddressRecord:
		c.logger.Info("got record", zap.Stringer("name", c.target), zap.String("id", r.ID), zap.String("value", r.Value))
		return State{RecordID: r.ID, RecordValue: r.Value}, nil
	case NotFound:
		return State{}, fmt.Errorf("%w: %s", ErrRecordNotFound, c.target)
	default:
		return State{}, fmt.Errorf("unexpected lookup result %T for %s", rec, c.target)
	}
}

// Cycle runs one reconciliation step starting from s and returns the resulting state.
//
// Failures are logged and never abort the step: a failed IP lookup or update leaves the record state as it was,
// and a failed resync keeps the previous state until the next tick retries it.
func (c *Client) Cycle(ctx context.Context, s State) State {
	s, _ = c.cycle(ctx, s)
	return s
}

func (c *Client) cycle(ctx context.Context, s State) (State, error) {
	var errs []error

	ip, err := c.Resolve(ctx)
	switch {
	case err != nil:
		c.logger.Warn("failed to get public IP", zap.Error(err))
		errs = append(errs, fmt.Errorf("error getting public IP: %w", err))
	case ip == s.RecordValue:
		c.logger.Debug("ip not changed", zap.String("ip", ip))
	default:
		c.logger.Info("updating record", zap.Stringer("name", c.target), zap.String("from", s.RecordValue), zap.String("to", ip))
		if err := c.UpdateRecord(ctx, c.target.SubDomain, s.RecordID, ip); err != nil {
			c.logger.Warn("failed to update record", zap.Stringer("name", c.target), zap.Error(err))
			errs = append(errs, fmt.Errorf("error updating %s to %s: %w", c.target, ip, err))
			break
		}
		c.logger.Info("record updated", zap.Stringer("name", c.target), zap.String("value", ip))
		s.RecordValue = ip
	}

	if s.Ticks < c.refresh {
		s.Ticks++
	}
	if s.Ticks >= c.refresh {
		fresh, err := c.Sync(ctx)
		if err != nil {
			c.logger.Warn("failed to resync record, keeping cached state",
				zap.String("id", s.RecordID),
				zap.String("value", s.RecordValue),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("error resyncing: %w", err))
		} else {
			s = fresh
		}
	}

	return s, errors.Join(errs...)
}

// RunOnce performs the startup resync followed by a single cycle.
// Unlike Cycle, it reports the failures of that cycle to the caller.
func (c *Client) RunOnce(ctx context.Context) error {
	s, err := c.Sync(ctx)
	if err != nil {
		return fmt.Errorf("initial resync: %w", err)
	}
	_, err = c.cycle(ctx, s)
	return err
}

// Run performs the startup resync and then reconciles the record every interval until ctx is done.
//
// The first cycle runs immediately after the resync.
// Run only returns an error when the startup resync fails; cancelling ctx returns nil.
func (c *Client) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("ddns.Run: interval must be positive; got %s", interval)
	}
	s, err := c.Sync(ctx)
	if err != nil {
		return fmt.Errorf("initial resync: %w", err)
	}
	c.logger.Info("starting reconciliation loop",
		zap.Stringer("name", c.target),
		zap.Duration("interval", interval),
		zap.Int("refresh", c.refresh),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s = c.Cycle(ctx, s)

		select {
		case <-ctx.Done():
			c.logger.Info("stopping reconciliation loop", zap.Error(ctx.Err()))
			return nil
		case <-ticker.C:
		}
	}
}
