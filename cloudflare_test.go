package ddns

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cloudflare/cloudflare-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultInfo = `"result_info":{"page":1,"per_page":100,"count":%d,"total_count":%d,"total_pages":1}`

type cloudflareAPI struct {
	mu          sync.Mutex
	zoneLookups int
	records     string // JSON array of DNS records
	patched     map[string]string
}

func (api *cloudflareAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/zones", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.zoneLookups++
		api.mu.Unlock()
		io.WriteString(w, `{"success":true,"errors":[],"messages":[],"result":[
			{"id":"zone-com","name":"com"},
			{"id":"zone-example","name":"example.com"},
			{"id":"zone-other","name":"other.com"}
		],`+fmt.Sprintf(resultInfo, 3, 3)+`}`)
	})
	mux.HandleFunc("/zones/zone-example/dns_records", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "A", r.URL.Query().Get("type"))
		assert.Equal(t, "home.example.com", r.URL.Query().Get("name"))
		api.mu.Lock()
		records := api.records
		api.mu.Unlock()
		var n []json.RawMessage
		assert.NoError(t, json.Unmarshal([]byte(records), &n))
		io.WriteString(w, `{"success":true,"errors":[],"messages":[],"result":`+records+`,`+fmt.Sprintf(resultInfo, len(n), len(n))+`}`)
	})
	mux.HandleFunc("/zones/zone-example/dns_records/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/zones/zone-example/dns_records/"):]
		if id != "rec-1" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"success":false,"errors":[{"code":81044,"message":"Record does not exist."}],"messages":[],"result":null}`)
			return
		}
		var body struct {
			Type    string `json:"type"`
			Name    string `json:"name"`
			Content string `json:"content"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "A", body.Type)
		assert.Equal(t, "home.example.com", body.Name)
		api.mu.Lock()
		api.patched[id] = body.Content
		api.mu.Unlock()
		io.WriteString(w, `{"success":true,"errors":[],"messages":[],"result":{"id":"rec-1","type":"A","name":"home.example.com","content":"`+body.Content+`"}}`)
	})
	return mux
}

func newTestCloudflare(t *testing.T, api *cloudflareAPI) *cloudflareProvider {
	t.Helper()
	api.patched = map[string]string{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	cf, err := newCloudflareProvider("test-token", "example.com",
		cloudflare.BaseURL(srv.URL),
		cloudflare.UsingRateLimit(1000),
	)
	require.NoError(t, err)
	return cf
}

func TestCloudflareLookupRecord(t *testing.T) {
	api := &cloudflareAPI{records: `[
		{"id":"rec-1","type":"A","name":"home.example.com","content":"1.2.3.4","zone_id":"zone-example"}
	]`}
	cf := newTestCloudflare(t, api)

	rec, err := cf.LookupRecord(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, AddressRecord{ID: "rec-1", Value: "1.2.3.4"}, rec)

	// the zone ID is cached
	_, err = cf.LookupRecord(context.Background(), "home")
	require.NoError(t, err)
	api.mu.Lock()
	assert.Equal(t, 1, api.zoneLookups)
	api.mu.Unlock()
	assert.Equal(t, "zone-example", cf.zoneID)
}

func TestCloudflareLookupRecordNotFound(t *testing.T) {
	cf := newTestCloudflare(t, &cloudflareAPI{records: `[]`})

	rec, err := cf.LookupRecord(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, NotFound{}, rec)
}

func TestCloudflareUpdateRecord(t *testing.T) {
	api := &cloudflareAPI{records: `[]`}
	cf := newTestCloudflare(t, api)

	require.NoError(t, cf.UpdateRecord(context.Background(), "home", "rec-1", "1.2.3.5"))
	api.mu.Lock()
	assert.Equal(t, map[string]string{"rec-1": "1.2.3.5"}, api.patched)
	api.mu.Unlock()

	err := cf.UpdateRecord(context.Background(), "home", "stale", "1.2.3.5")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "update", perr.Op)
}

func TestCloudflareUnknownZone(t *testing.T) {
	api := &cloudflareAPI{records: `[]`}
	cf := newTestCloudflare(t, api)
	cf.domain = "example.net"

	_, err := cf.LookupRecord(context.Background(), "home")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "cloudflare", perr.Provider)
}
