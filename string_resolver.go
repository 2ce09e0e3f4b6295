package ddns

import (
	"context"
	"fmt"
	"net/netip"
)

// FromString constructs a resolver that always reports addr.
func FromString(addr string) (Resolver, error) {
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse IP: %w", err)
	}
	if !a.Is4() {
		return nil, fmt.Errorf("%s is not an IPv4 address", a)
	}
	return stringResolver(a.String()), nil
}

type stringResolver string

func (s stringResolver) Resolve(context.Context) (string, error) {
	return string(s), nil
}
