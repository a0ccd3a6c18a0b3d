package resolver

import "github.com/kennyhq/contactlink/internal/types"

// index owns the contacts of one run: contact id -> contact with its growable
// identity list, plus the (kind, value) -> owning contact map enforcing that
// an identity belongs to at most one contact. The first contact to claim an
// identity keeps it.
type index struct {
	order    []string
	contacts map[string]*types.Contact
	owner    map[string]string
}

func newIndex() *index {
	return &index{
		contacts: make(map[string]*types.Contact),
		owner:    make(map[string]string),
	}
}

// add registers c, dropping identities already owned by an earlier contact
// (or repeated within c). A contact whose id is already present is merged
// into the existing one.
func (x *index) add(c *types.Contact) {
	existing, ok := x.contacts[c.ID]
	if !ok {
		ids := c.Identities
		c.Identities = nil
		x.contacts[c.ID] = c
		x.order = append(x.order, c.ID)
		for _, id := range ids {
			x.attach(c.ID, id)
		}
		return
	}
	for _, id := range c.Identities {
		x.attach(existing.ID, id)
	}
}

// attach appends id to the contact unless some contact already owns it
func (x *index) attach(contactID string, id types.Identity) {
	if x.owned(id) {
		return
	}
	c := x.contacts[contactID]
	c.Identities = append(c.Identities, id)
	x.owner[id.Key()] = contactID
}

func (x *index) owned(id types.Identity) bool {
	_, ok := x.owner[id.Key()]
	return ok
}

// list returns contacts in insertion order
func (x *index) list() []*types.Contact {
	out := make([]*types.Contact, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, x.contacts[id])
	}
	return out
}
