package blend

import "github.com/samcharles93/blendkit/pkg/sdna"

// AddressMap maps origin addresses to the value stored at them: a
// *sdna.Buffer until linking reinterprets it, or a decoded object or list.
type AddressMap struct {
	m     map[sdna.Address]any
	order []sdna.Address
}

func NewAddressMap() *AddressMap {
	return &AddressMap{m: map[sdna.Address]any{}}
}

func (a *AddressMap) Lookup(addr sdna.Address) (any, bool) {
	v, ok := a.m[addr]
	return v, ok
}

// Store records v at addr and reports whether an earlier entry was
// replaced.
func (a *AddressMap) Store(addr sdna.Address, v any) bool {
	_, had := a.m[addr]
	if !had {
		a.order = append(a.order, addr)
	}
	a.m[addr] = v
	return had
}

func (a *AddressMap) Len() int { return len(a.m) }

// Addresses returns every stored address in insertion order.
func (a *AddressMap) Addresses() []sdna.Address { return a.order }
