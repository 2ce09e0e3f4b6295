package ddns

import "fmt"

// Record is the result of looking up the managed record at a provider.
//
// It is one of NotFound or AddressRecord.
// Records of other types are reported as NotFound.
type Record interface {
	record()
}

// NotFound means the provider holds no address record for the name.
type NotFound struct{}

func (NotFound) record() {}

func (NotFound) String() string { return "not found" }

// AddressRecord is an A record as observed at the provider.
type AddressRecord struct {
	ID    string // provider-assigned identifier
	Value string // IPv4 address stored in the record
}

func (AddressRecord) record() {}

func (r AddressRecord) String() string {
	return fmt.Sprintf("A(%s, %s)", r.ID, r.Value)
}
