package ddns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultIPServiceURL is the IP echo service used when no other resolver is configured.
// It answers plain HTTP GET requests with the client's address as the response body.
const DefaultIPServiceURL = "http://ns1.dnspod.net:6666"

// an address never needs more than a few dozen bytes
const maxResponseSize = 1024

// WebResolver constructs a resolver which asks an external web service for the "public" IP address.
//
// serviceURL must speak http and answer "200 OK" with the address as the response body.
// Surrounding whitespace is trimmed; the text is not otherwise validated.
// All other responses, including bodies larger than 1 KiB, are reported as a *NetworkError.
//
// The recommended approach is to run your own service over https.
func WebResolver(serviceURL string) (Resolver, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	return &webResolver{serviceURL: u, logger: zap.NewNop()}, nil
}

type webResolver struct {
	httpClient *http.Client
	serviceURL *url.URL
	logger     *zap.Logger
}

// Resolve implements ddns.Resolver.
func (wr *webResolver) Resolve(ctx context.Context) (string, error) {
	ip, err := wr.lookup(ctx)
	if err != nil {
		return "", &NetworkError{URL: wr.serviceURL.String(), Err: err}
	}
	return ip, nil
}

func (wr *webResolver) lookup(ctx context.Context) (string, error) {
	// 15 seconds is an eternity for the size of the request we're making,
	// but this ensures that every tick eventually completes even with http.DefaultClient (no timeout).
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wr.serviceURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	wr.logger.Debug("ip service responded", zap.String("url", wr.serviceURL.String()), zap.String("status", resp.Status))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http request returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}
	if len(body) > maxResponseSize {
		return "", fmt.Errorf("response body exceeds %d bytes", maxResponseSize)
	}
	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", errors.New("empty response body")
	}
	wr.logger.Debug("got public IP", zap.String("ip", ip))
	return ip, nil
}

func (wr *webResolver) SetHTTPClient(c *http.Client) {
	wr.httpClient = c
}

func (wr *webResolver) SetLogger(logger *zap.Logger) {
	wr.logger = logger
}
