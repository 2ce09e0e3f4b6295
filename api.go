package ddns

import (
	"context"
)

// Resolver reports the public IP address of the host.
//
// The returned text is trusted as-is; resolvers do not check that it parses as an address.
type Resolver interface {
	Resolve(context.Context) (string, error)
}

// Provider reads and writes the address record managed by a Client.
//
// A Provider is bound to a single zone when it is constructed.
// A lookup that finds no address record is not an error: it returns NotFound.
type Provider interface {
	LookupRecord(ctx context.Context, subdomain string) (Record, error)
	UpdateRecord(ctx context.Context, subdomain, id, value string) error
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(context.Context) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context) (string, error) {
	return f(ctx)
}
