package ddns

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"
	"go.uber.org/zap"
)

const (
	dnspodEndpoint    = "dnspod.tencentcloudapi.com"
	dnspodRegion      = "ap-guangzhou"
	dnspodDefaultLine = "默认"

	// returned by DescribeRecordList when the domain has no matching records
	dnspodNoRecords = "ResourceNotFound.NoDataOfRecord"
)

// newDNSPodProvider creates a DNSPod provider for the zone domain.
//
// token holds the Tencent Cloud API credential as "SecretId,SecretKey".
// endpoint and scheme override the API host, and are only set by tests.
func newDNSPodProvider(token, domain, endpoint, scheme string) (*dnspodProvider, error) {
	id, key, ok := strings.Cut(token, ",")
	id, key = strings.TrimSpace(id), strings.TrimSpace(key)
	if !ok || id == "" || key == "" {
		return nil, errors.New("dnspod token must have the form \"SecretId,SecretKey\"")
	}
	if endpoint == "" {
		endpoint = dnspodEndpoint
	}

	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = endpoint
	if scheme != "" {
		cpf.HttpProfile.Scheme = scheme
	}
	sdk, err := dnspod.NewClient(common.NewCredential(id, key), dnspodRegion, cpf)
	if err != nil {
		return nil, fmt.Errorf("error creating dnspod api client: %w", err)
	}
	return &dnspodProvider{
		sdk:    sdk,
		domain: domain,
		logger: zap.NewNop(),
		lines:  map[uint64]string{},
	}, nil
}

// dnspodProvider implements ddns.Provider on top of the DNSPod API of Tencent Cloud.
type dnspodProvider struct {
	sdk    *dnspod.Client
	domain string
	logger *zap.Logger

	mu sync.Mutex
	// record line of every record returned by LookupRecord, needed again when the record is modified
	lines map[uint64]string
}

func (p *dnspodProvider) LookupRecord(ctx context.Context, subdomain string) (Record, error) {
	req := dnspod.NewDescribeRecordListRequest()
	req.Domain = common.StringPtr(p.domain)
	req.Subdomain = common.StringPtr(subdomain)
	req.RecordType = common.StringPtr("A")
	req.SetContext(ctx)

	p.logger.Debug("looking up dnspod record", zap.String("domain", p.domain), zap.String("subDomain", subdomain))
	resp, err := p.sdk.DescribeRecordList(req)
	if err != nil {
		var sdkErr *sdkerrors.TencentCloudSDKError
		if errors.As(err, &sdkErr) && sdkErr.Code == dnspodNoRecords {
			return NotFound{}, nil
		}
		return nil, &ProviderError{Provider: "dnspod", Op: "lookup", Err: err}
	}
	if resp == nil || resp.Response == nil {
		return nil, &ProviderError{Provider: "dnspod", Op: "lookup", Err: errors.New("empty response")}
	}

	var found *dnspod.RecordListItem
	for _, it := range resp.Response.RecordList {
		if it == nil || it.RecordId == nil || it.Value == nil {
			continue
		}
		if it.Type != nil && *it.Type != "A" {
			continue
		}
		if it.Name != nil && !strings.EqualFold(*it.Name, subdomain) {
			continue
		}
		if found == nil || (it.Line != nil && *it.Line == dnspodDefaultLine) {
			found = it
		}
	}
	if found == nil {
		return NotFound{}, nil
	}

	line := dnspodDefaultLine
	if found.Line != nil && *found.Line != "" {
		line = *found.Line
	}
	p.mu.Lock()
	p.lines[*found.RecordId] = line
	p.mu.Unlock()

	return AddressRecord{
		ID:    strconv.FormatUint(*found.RecordId, 10),
		Value: *found.Value,
	}, nil
}

func (p *dnspodProvider) UpdateRecord(ctx context.Context, subdomain, id, value string) error {
	rid, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return &ProviderError{Provider: "dnspod", Op: "update", Err: fmt.Errorf("invalid record id %q: %w", id, err)}
	}

	p.mu.Lock()
	line, ok := p.lines[rid]
	p.mu.Unlock()
	if !ok {
		line = dnspodDefaultLine
	}

	req := dnspod.NewModifyDynamicDNSRequest()
	req.Domain = common.StringPtr(p.domain)
	req.SubDomain = common.StringPtr(subdomain)
	req.RecordId = common.Uint64Ptr(rid)
	req.RecordLine = common.StringPtr(line)
	req.Value = common.StringPtr(value)
	req.SetContext(ctx)

	p.logger.Debug("modifying dnspod record",
		zap.Uint64("recordId", rid),
		zap.String("line", line),
		zap.String("value", value),
	)
	if _, err := p.sdk.ModifyDynamicDNS(req); err != nil {
		return &ProviderError{Provider: "dnspod", Op: "update", Err: err}
	}
	return nil
}

func (p *dnspodProvider) SetLogger(logger *zap.Logger) {
	p.logger = logger
}
