package ddns

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// Target identifies the record kept up to date: SubDomain is the host label within the zone Domain.
// A SubDomain of "@" refers to the zone apex.
type Target struct {
	SubDomain string
	Domain    string
}

// NewTarget validates subdomain and domain and converts internationalized labels to their ASCII form.
func NewTarget(subdomain, domain string) (Target, error) {
	subdomain = strings.TrimSuffix(strings.TrimSpace(subdomain), ".")
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")

	if domain == "" {
		return Target{}, errors.New("domain cannot be empty")
	}
	if !strings.Contains(domain, ".") {
		return Target{}, errors.New("domain must have at least one dot")
	}
	if subdomain == "" {
		return Target{}, errors.New("sub domain cannot be empty")
	}

	d, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return Target{}, fmt.Errorf("invalid domain %q: %w", domain, err)
	}
	s := subdomain
	if s != "@" {
		// labels like "*" are accepted by providers but rejected by the lookup profile
		if s, err = idna.ToASCII(subdomain); err != nil {
			return Target{}, fmt.Errorf("invalid sub domain %q: %w", subdomain, err)
		}
	}
	return Target{SubDomain: strings.ToLower(s), Domain: d}, nil
}

// FQDN returns the fully qualified name of the record, without the trailing dot.
func (t Target) FQDN() string {
	if t.SubDomain == "" || t.SubDomain == "@" {
		return t.Domain
	}
	return t.SubDomain + "." + t.Domain
}

func (t Target) String() string { return t.FQDN() }
