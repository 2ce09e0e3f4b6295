package ddns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

func newCloudflareProvider(token, domain string, opts ...cloudflare.Option) (cf *cloudflareProvider, err error) {
	cf = new(cloudflareProvider)
	cf.api, err = cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	cf.domain = domain
	cf.logger = zap.NewNop()
	return cf, nil
}

// cloudflareProvider implements ddns.Provider.
//
// The zone ID is looked up on first use and reused afterwards.
type cloudflareProvider struct {
	api    *cloudflare.API
	domain string
	logger *zap.Logger

	mu     sync.Mutex
	zoneID string
}

func (cf *cloudflareProvider) LookupRecord(ctx context.Context, subdomain string) (Record, error) {
	zid, err := cf.getZoneID(ctx)
	if err != nil {
		return nil, &ProviderError{Provider: "cloudflare", Op: "lookup", Err: err}
	}
	name := Target{SubDomain: subdomain, Domain: cf.domain}.FQDN()
	cf.logger.Debug("looking up A records", zap.String("zoneId", zid), zap.String("name", name))

	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.ListDNSRecordsParams{
		Type: "A",
		Name: name,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "cloudflare", Op: "lookup", Err: fmt.Errorf("error listing DNS records: %w", err)}
	}
	cf.logger.Debug("found existing records", zap.Int("count", len(records)))

	for _, r := range records {
		if r.Type == "A" && strings.EqualFold(r.Name, name) {
			return AddressRecord{ID: r.ID, Value: r.Content}, nil
		}
	}
	return NotFound{}, nil
}

func (cf *cloudflareProvider) UpdateRecord(ctx context.Context, subdomain, id, value string) error {
	zid, err := cf.getZoneID(ctx)
	if err != nil {
		return &ProviderError{Provider: "cloudflare", Op: "update", Err: err}
	}
	name := Target{SubDomain: subdomain, Domain: cf.domain}.FQDN()
	cf.logger.Debug("updating A record", zap.String("id", id), zap.String("name", name), zap.String("content", value))

	_, err = cf.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.UpdateDNSRecordParams{
		ID:      id,
		Type:    "A",
		Name:    name,
		Content: value,
	})
	if err != nil {
		return &ProviderError{Provider: "cloudflare", Op: "update", Err: fmt.Errorf("unable to update DNS record %s: %w", id, err)}
	}
	return nil
}

func (cf *cloudflareProvider) getZoneID(ctx context.Context) (string, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	if cf.zoneID != "" {
		return cf.zoneID, nil
	}

	zones, err := cf.api.ListZones(ctx)
	if err != nil {
		return "", fmt.Errorf("error listing zones: %w", err)
	}

	max := 0
	var zid string
	for _, z := range zones {
		if (cf.domain == z.Name || strings.HasSuffix(cf.domain, "."+z.Name)) && len(z.Name) > max {
			max, zid = len(z.Name), z.ID
		}
	}
	if max == 0 {
		return "", errors.New("unable to find a zone matching \"" + cf.domain + "\"")
	}
	cf.logger.Debug("got zone ID", zap.String("zoneId", zid))
	cf.zoneID = zid
	return zid, nil
}

func (cf *cloudflareProvider) SetLogger(logger *zap.Logger) {
	cf.logger = logger
}
