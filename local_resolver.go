package ddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that reports the first IPv4 address assigned to the named interface.
// Loopback addresses are skipped.
//
// This is only useful when the host holds its public address directly, e.g. on a PPPoE link.
func InterfaceResolver(iface string) Resolver {
	return interfaceResolver{name: iface, addrs: interfaceAddrs}
}

type interfaceResolver struct {
	name  string
	addrs func(name string) ([]net.Addr, error)
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("error getting interface %s by name: %w", name, err)
	}
	a, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("error looking up addresses for interface %s: %w", name, err)
	}
	return a, nil
}

func (r interfaceResolver) Resolve(ctx context.Context) (string, error) {
	adds, err := r.addrs(r.name)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
	var parseErrors []error
	for _, addr := range adds {
		ip, err := netip.ParsePrefix(addr.String())
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("error parsing local ip %s for interface %s: %s", addr.String(), r.name, err))
			continue
		}
		if a := ip.Addr(); a.Is4() && !a.IsLoopback() {
			return a.String(), nil
		}
	}
	parseErrors = append(parseErrors, fmt.Errorf("interface %s has no IPv4 address", r.name))
	return "", &NetworkError{Err: errors.Join(parseErrors...)}
}
