package model

import "encoding/json"

// Node is one entry in a navigation tree: an Item or a Divider. The
// interface is sealed so traversals can type-switch exhaustively.
type Node interface {
	isNode()
	// Key returns the node's identity for active/expand/breadcrumb lookups.
	// It may be empty; an empty key never matches anything, including
	// another empty key.
	Key() string
}

// Item is a navigable menu entry. To is an internal route path; Href is an
// external URL. Only To participates in active-route matching.
type Item struct {
	ID          string `json:"id,omitempty"`
	Value       string `json:"value,omitempty"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Badge       string `json:"badge,omitempty"`

	To     string `json:"to,omitempty"`
	Href   string `json:"href,omitempty"`
	Target string `json:"target,omitempty"`

	Disabled bool `json:"disabled,omitempty"`
	External bool `json:"external,omitempty"`
	Hidden   bool `json:"-"`

	// Capability requirements: the viewer needs at least one listed
	// permission AND at least one listed role; an empty list is vacuously
	// satisfied. VisibleWhen is an optional CEL expression evaluated
	// against the viewer.
	Permissions []string `json:"-"`
	Roles       []string `json:"-"`
	VisibleWhen string   `json:"-"`

	// OnClick bypasses navigation entirely when set.
	OnClick func() `json:"-"`

	Children []Node `json:"children,omitempty"`
}

func (Item) isNode() {}

// Key resolves the item's identity: explicit ID, then Value, then the label
// as a fallback.
func (it Item) Key() string {
	if it.ID != "" {
		return it.ID
	}
	if it.Value != "" {
		return it.Value
	}
	return it.Label
}

// Divider is a visual separator. It passes through filtering and search
// unconditionally and never matches a route.
type Divider struct {
	ID string `json:"id,omitempty"`
}

func (Divider) isNode() {}

// Key returns the divider's identity.
func (d Divider) Key() string {
	return d.ID
}

// MarshalJSON tags dividers explicitly so clients need no duck-typing.
func (d Divider) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID      string `json:"id,omitempty"`
		Divider bool   `json:"divider"`
	}{ID: d.ID, Divider: true})
}

// Items is the engine's construction input. Grouping (array-of-arrays) is a
// presentation concern: it is resolved to one flat ordered sequence here,
// once, and never consulted again.
type Items struct {
	nodes []Node
}

// Flat builds an input from a single ordered sequence.
func Flat(nodes ...Node) Items {
	return Items{nodes: nodes}
}

// Grouped builds an input from ordered groups, concatenated in order.
func Grouped(groups ...[]Node) Items {
	var nodes []Node
	for _, group := range groups {
		nodes = append(nodes, group...)
	}
	return Items{nodes: nodes}
}

// Nodes returns the flattened sequence.
func (i Items) Nodes() []Node {
	return i.nodes
}
