package ddns

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDefaults(t *testing.T) {
	c, err := New(Target{SubDomain: "home", Domain: "example.com"}, UsingDNSPod("id,key"))
	require.NoError(t, err)

	assert.Equal(t, DefaultRefresh, c.refresh)
	wr, ok := c.Resolver.(*webResolver)
	require.True(t, ok, "expected the web resolver by default; got %T", c.Resolver)
	assert.Equal(t, DefaultIPServiceURL, wr.serviceURL.String())
	assert.NotNil(t, c.logger)
}

func TestNewPropagatesDependencies(t *testing.T) {
	hc := &http.Client{}
	logger := zap.NewExample()

	// options given before the provider still reach it
	c, err := New(Target{SubDomain: "home", Domain: "example.com"},
		UsingHTTPClient(hc),
		WithLogger(logger),
		UsingWebResolver("https://ip.example.com/"),
		UsingCloudflare("token"),
	)
	require.NoError(t, err)

	wr := c.Resolver.(*webResolver)
	assert.Same(t, hc, wr.httpClient)
	cf := c.Provider.(*cloudflareProvider)
	assert.NotNil(t, cf.logger)
	assert.Equal(t, "example.com", cf.domain)
}

func TestNewRejectsBadToken(t *testing.T) {
	_, err := New(Target{SubDomain: "home", Domain: "example.com"}, UsingDNSPod("no-comma"))
	require.Error(t, err)
}

func TestNewNamesResolverLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "1.2.3.4\n")
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c, err := New(Target{SubDomain: "home", Domain: "example.com"},
		UsingWebResolver(srv.URL),
		UsingDNSPod("id,key"),
		WithLogger(zap.New(core)),
	)
	require.NoError(t, err)

	ip, err := c.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", ip)

	entries := logs.FilterMessage("got public IP").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "resolver", entries[0].LoggerName)
	assert.Equal(t, "1.2.3.4", entries[0].ContextMap()["ip"])
}
