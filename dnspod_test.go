package ddns

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dnspodAPI serves the two Tencent Cloud API actions used by the provider.
type dnspodAPI struct {
	mu       sync.Mutex
	list     string // Response body for DescribeRecordList
	modified []map[string]any
}

func (api *dnspodAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	api.mu.Lock()
	defer api.mu.Unlock()

	switch r.Header.Get("X-TC-Action") {
	case "DescribeRecordList":
		io.WriteString(w, `{"Response":`+api.list+`}`)
	case "ModifyDynamicDNS":
		if params["RecordId"] != float64(7001) {
			io.WriteString(w, `{"Response":{"Error":{"Code":"InvalidParameter.RecordIdInvalid","Message":"record id invalid"},"RequestId":"req-2"}}`)
			return
		}
		api.modified = append(api.modified, params)
		io.WriteString(w, `{"Response":{"RecordId":7001,"RequestId":"req-3"}}`)
	default:
		io.WriteString(w, `{"Response":{"Error":{"Code":"InvalidAction","Message":"unknown action"},"RequestId":"req-0"}}`)
	}
}

func newTestDNSPod(t *testing.T, api *dnspodAPI) *dnspodProvider {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	p, err := newDNSPodProvider("AKIDtest, secret", "example.com", strings.TrimPrefix(srv.URL, "http://"), "HTTP")
	require.NoError(t, err)
	return p
}

func TestDNSPodToken(t *testing.T) {
	for _, token := range []string{"", "onlyid", ",key", "id,"} {
		_, err := newDNSPodProvider(token, "example.com", "", "")
		assert.Error(t, err, "token %q", token)
	}
}

func TestDNSPodLookupRecord(t *testing.T) {
	api := &dnspodAPI{list: `{"RecordCountInfo":{"SubdomainCount":2,"ListCount":2,"TotalCount":2},"RecordList":[
		{"RecordId":7000,"Name":"home","Type":"A","Line":"电信","Value":"5.6.7.8"},
		{"RecordId":7001,"Name":"home","Type":"A","Line":"默认","Value":"1.2.3.4"}
	],"RequestId":"req-1"}`}
	p := newTestDNSPod(t, api)

	rec, err := p.LookupRecord(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, AddressRecord{ID: "7001", Value: "1.2.3.4"}, rec)
}

func TestDNSPodLookupRecordNotFound(t *testing.T) {
	api := &dnspodAPI{list: `{"Error":{"Code":"ResourceNotFound.NoDataOfRecord","Message":"no records"},"RequestId":"req-1"}`}
	p := newTestDNSPod(t, api)

	rec, err := p.LookupRecord(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, NotFound{}, rec)
}

func TestDNSPodLookupRecordError(t *testing.T) {
	api := &dnspodAPI{list: `{"Error":{"Code":"AuthFailure.SignatureFailure","Message":"bad signature"},"RequestId":"req-1"}`}
	p := newTestDNSPod(t, api)

	_, err := p.LookupRecord(context.Background(), "home")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "lookup", perr.Op)
	assert.Contains(t, err.Error(), "AuthFailure.SignatureFailure")
}

func TestDNSPodUpdateRecord(t *testing.T) {
	api := &dnspodAPI{list: `{"RecordList":[
		{"RecordId":7001,"Name":"home","Type":"A","Line":"电信","Value":"1.2.3.4"}
	],"RequestId":"req-1"}`}
	p := newTestDNSPod(t, api)

	_, err := p.LookupRecord(context.Background(), "home")
	require.NoError(t, err)
	require.NoError(t, p.UpdateRecord(context.Background(), "home", "7001", "1.2.3.5"))

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.modified, 1)
	assert.Equal(t, "example.com", api.modified[0]["Domain"])
	assert.Equal(t, "home", api.modified[0]["SubDomain"])
	assert.Equal(t, "1.2.3.5", api.modified[0]["Value"])
	assert.Equal(t, "电信", api.modified[0]["RecordLine"], "the line of the looked up record is kept")
}

func TestDNSPodUpdateRecordRejected(t *testing.T) {
	p := newTestDNSPod(t, &dnspodAPI{})

	err := p.UpdateRecord(context.Background(), "home", "6999", "1.2.3.5")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "update", perr.Op)

	err = p.UpdateRecord(context.Background(), "home", "not-a-number", "1.2.3.5")
	require.ErrorAs(t, err, &perr)
}
