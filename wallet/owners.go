package wallet

import "sync"

// Owners is the append-only address set spec §5's shared-resource policy
// describes: addOwner may be called from the host thread at any time, but
// addresses are never removed while a sync is active (removal is simply not
// exposed).
type Owners struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

// NewOwners builds an Owners set seeded with addrs.
func NewOwners(addrs ...string) *Owners {
	o := &Owners{set: make(map[string]struct{}, len(addrs))}
	for _, a := range addrs {
		o.set[a] = struct{}{}
	}
	return o
}

// Add registers addr as an owned address. Safe to call concurrently with
// Contains/List from a running sync.
func (o *Owners) Add(addr string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.set[addr] = struct{}{}
}

// Contains reports whether addr is an owned address.
func (o *Owners) Contains(addr string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.set[addr]
	return ok
}

// List returns a snapshot of every owned address, in no particular order.
func (o *Owners) List() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.set))
	for a := range o.set {
		out = append(out, a)
	}
	return out
}
