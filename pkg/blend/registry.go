package blend

import "github.com/samcharles93/blendkit/pkg/sdna"

// Entry is one named object of the main database.
type Entry struct {
	Key string
	// Name is the object's ID name without its two-letter type prefix.
	Name   string
	Object *sdna.Object
}

// Registry groups main-database objects by block key, keeping file order
// both across keys and within each key.
type Registry struct {
	keys     []string
	byKey    map[string][]*Entry
	byObject map[*sdna.Object]*Entry
	ordered  []*Entry
}

func NewRegistry() *Registry {
	return &Registry{byKey: map[string][]*Entry{}, byObject: map[*sdna.Object]*Entry{}}
}

func (r *Registry) Add(key, name string, o *sdna.Object) *Entry {
	if _, ok := r.byKey[key]; !ok {
		r.keys = append(r.keys, key)
	}
	e := &Entry{Key: key, Name: name, Object: o}
	r.byKey[key] = append(r.byKey[key], e)
	r.ordered = append(r.ordered, e)
	if _, dup := r.byObject[o]; !dup {
		r.byObject[o] = e
	}
	return e
}

// Keys returns the registry keys in first-seen order.
func (r *Registry) Keys() []string { return r.keys }

// Get returns the entries for key.
func (r *Registry) Get(key string) []*Entry { return r.byKey[key] }

// Find returns the entry with the given key and name.
func (r *Registry) Find(key, name string) (*Entry, bool) {
	for _, e := range r.byKey[key] {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Entries returns every entry in file order.
func (r *Registry) Entries() []*Entry { return r.ordered }

// Grouped returns every entry grouped by key, keys in first-seen order.
func (r *Registry) Grouped() []*Entry {
	out := make([]*Entry, 0, len(r.ordered))
	for _, k := range r.keys {
		out = append(out, r.byKey[k]...)
	}
	return out
}

func (r *Registry) Len() int { return len(r.ordered) }

// EntryOf returns the entry registered for o.
func (r *Registry) EntryOf(o *sdna.Object) (*Entry, bool) {
	e, ok := r.byObject[o]
	return e, ok
}
