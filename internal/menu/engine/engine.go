// Package engine derives all interactive view state for a navigation menu
// from a static declarative tree, the current location and the viewer's
// capabilities, without mutating the source tree.
package engine

import (
	"sort"
	"strings"

	"fitness-gateway/internal/menu/domain/model"
	"fitness-gateway/internal/shared/logger"
)

// Config is the engine's construction input.
type Config struct {
	Items model.Items

	// Styling hooks
	ActiveItemClass   string
	InactiveItemClass string
	DisabledItemClass string

	// Behavior toggles
	ExpandOnHover   bool
	Collapsible     bool
	DefaultExpanded bool
	ShowIcons       bool
	ShowBadges      bool
	CloseOnSelect   bool
}

// Viewer is the capability set the tree is filtered by.
type Viewer struct {
	Permissions []string
	Roles       []string
}

// VisibilityEvaluator evaluates an item's VisibleWhen expression against the
// viewer. Implementations live outside the engine so the pure tree logic
// carries no expression-language dependency.
type VisibilityEvaluator interface {
	Allowed(expr string, vars map[string]interface{}) (bool, error)
}

// Navigator performs an internal route navigation.
type Navigator func(path string)

// Opener opens an external URL in the given target context.
type Opener func(url, target string)

// Option configures an Engine.
type Option func(*Engine)

// WithNavigator sets the internal navigation callback.
func WithNavigator(navigate Navigator) Option {
	return func(e *Engine) { e.navigate = navigate }
}

// WithOpener sets the external URL callback.
func WithOpener(open Opener) Option {
	return func(e *Engine) { e.open = open }
}

// WithVisibilityEvaluator enables VisibleWhen rule evaluation.
func WithVisibilityEvaluator(eval VisibilityEvaluator) Option {
	return func(e *Engine) { e.eval = eval }
}

// WithLogger sets the engine's logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine holds the transient view state for one menu instance: the filtered
// tree, the expansion set, the resolved active item and the collapse flag.
// It is a single-writer structure; all state is owned by the instance and
// reset on reconstruction.
type Engine struct {
	cfg      Config
	viewer   Viewer
	filtered []model.Node

	expanded  map[string]struct{}
	activeKey string
	active    *model.Item
	collapsed bool
	routePath string

	navigate Navigator
	open     Opener
	eval     VisibilityEvaluator
	log      logger.Logger
}

// New constructs an engine: the input is flattened once, filtered by the
// viewer's capabilities, and left untouched thereafter.
func New(cfg Config, viewer Viewer, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		viewer:    viewer,
		expanded:  make(map[string]struct{}),
		collapsed: !cfg.DefaultExpanded,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.filtered = e.filterNodes(cfg.Items.Nodes())
	return e
}

// Items returns the capability-filtered tree.
func (e *Engine) Items() []model.Node {
	return e.filtered
}

// SetRoute recomputes the active item for a new location. The computation is
// synchronous and idempotent: repeated calls for the same path resolve the
// same item, and auto-expand only ever adds ancestor keys.
func (e *Engine) SetRoute(path string) {
	e.routePath = path
	e.active = e.findActive(e.filtered, path)
	if e.active != nil {
		e.activeKey = e.active.Key()
	} else {
		e.activeKey = ""
	}
}

// ActiveItem returns the item matching the current location, if any.
func (e *Engine) ActiveItem() *model.Item {
	return e.active
}

// ActiveKey returns the resolved active item's key ("" when nothing is
// active or the active item has no usable key).
func (e *Engine) ActiveKey() string {
	return e.activeKey
}

// Expanded returns the expansion set's keys in sorted order.
func (e *Engine) Expanded() []string {
	keys := make([]string, 0, len(e.expanded))
	for key := range e.expanded {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsExpanded reports whether the key is in the expansion set. Empty keys
// are never expanded.
func (e *Engine) IsExpanded(key string) bool {
	if key == "" {
		return false
	}
	_, ok := e.expanded[key]
	return ok
}

// ToggleExpanded inserts or removes a key from the expansion set.
func (e *Engine) ToggleExpanded(key string) {
	if key == "" {
		return
	}
	if _, ok := e.expanded[key]; ok {
		delete(e.expanded, key)
	} else {
		e.expanded[key] = struct{}{}
	}
}

// ExpandAll populates the expansion set with every key in the filtered
// tree, pre-order.
func (e *Engine) ExpandAll() {
	e.expanded = make(map[string]struct{})
	collectKeys(e.filtered, e.expanded)
}

// CollapseAll empties the expansion set.
func (e *Engine) CollapseAll() {
	e.expanded = make(map[string]struct{})
}

// SetExpanded replaces the expansion set.
func (e *Engine) SetExpanded(keys []string) {
	e.expanded = make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key != "" {
			e.expanded[key] = struct{}{}
		}
	}
}

// IsCollapsed reports whether the whole menu is collapsed.
func (e *Engine) IsCollapsed() bool {
	return e.collapsed
}

// SetCollapsed sets the whole-menu collapse flag.
func (e *Engine) SetCollapsed(collapsed bool) {
	e.collapsed = collapsed
}

// HandleClick runs the click contract: disabled wins, then an explicit
// override, then internal navigation, then external opening. Navigation is
// followed by a child-expansion toggle, and close-on-select collapses the
// menu.
func (e *Engine) HandleClick(item model.Item) {
	if item.Disabled {
		return
	}

	if item.OnClick != nil {
		item.OnClick()
		return
	}

	if item.To != "" {
		if e.navigate != nil {
			e.navigate(item.To)
		}
	} else if item.Href != "" {
		if item.External || item.Target == "_blank" {
			target := item.Target
			if target == "" {
				target = "_blank"
			}
			if e.open != nil {
				e.open(item.Href, target)
			}
		} else if e.navigate != nil {
			e.navigate(item.Href)
		}
	}

	if len(item.Children) > 0 {
		e.ToggleExpanded(item.Key())
	}

	if e.cfg.CloseOnSelect {
		e.collapsed = true
	}
}

// IsActive reports whether the item is the active item or an ancestor of
// it. Items without a usable key are never active.
func (e *Engine) IsActive(item model.Item) bool {
	if e.activeKey == "" {
		return false
	}
	key := item.Key()
	if key == "" {
		return false
	}
	if key == e.activeKey {
		return true
	}
	return containsKey(item.Children, e.activeKey)
}

// ItemClasses returns the styling hooks applying to the item.
func (e *Engine) ItemClasses(item model.Item) map[string]bool {
	active := e.IsActive(item)
	classes := map[string]bool{}
	if e.cfg.ActiveItemClass != "" {
		classes[e.cfg.ActiveItemClass] = active
	}
	if e.cfg.InactiveItemClass != "" {
		classes[e.cfg.InactiveItemClass] = !active
	}
	if e.cfg.DisabledItemClass != "" {
		classes[e.cfg.DisabledItemClass] = item.Disabled
	}
	return classes
}

// Search returns the subtrees whose label or description contains the query
// (case-insensitive). A blank query returns the filtered tree unchanged.
func (e *Engine) Search(query string) []model.Node {
	query = strings.TrimSpace(query)
	if query == "" {
		return e.filtered
	}
	return searchNodes(e.filtered, strings.ToLower(query))
}

// Breadcrumbs returns the ancestor path from the filtered root to the
// active item, inclusive, in root-to-leaf order. Empty when nothing is
// active or the active item has no usable key.
func (e *Engine) Breadcrumbs() []model.Item {
	if e.active == nil || e.activeKey == "" {
		return nil
	}
	return findTrail(e.filtered, e.activeKey, nil)
}

// HasAccess reports whether the viewer may see the item: at least one of
// the listed permissions AND at least one of the listed roles, each list
// vacuously satisfied when empty, then the VisibleWhen rule if one is set.
func (e *Engine) HasAccess(item model.Item) bool {
	if len(item.Permissions) > 0 && !intersects(item.Permissions, e.viewer.Permissions) {
		return false
	}
	if len(item.Roles) > 0 && !intersects(item.Roles, e.viewer.Roles) {
		return false
	}

	if item.VisibleWhen != "" && e.eval != nil {
		allowed, err := e.eval.Allowed(item.VisibleWhen, map[string]interface{}{
			"permissions": e.viewer.Permissions,
			"roles":       e.viewer.Roles,
		})
		if err != nil {
			// Fail closed: a broken rule hides the item.
			if e.log != nil {
				e.log.Warnf("Visibility rule %q failed, hiding item %q: %v", item.VisibleWhen, item.Label, err)
			}
			return false
		}
		return allowed
	}

	return true
}

// Internal tree walks

// filterNodes drops items the viewer may not see. Children are filtered
// first; a node whose filtered children list became empty is dropped only
// if it had children to begin with, so leaves survive. Dividers always
// pass. The walk copies nodes; the source tree is never mutated.
func (e *Engine) filterNodes(nodes []model.Node) []model.Node {
	out := make([]model.Node, 0, len(nodes))
	for _, node := range nodes {
		switch n := node.(type) {
		case model.Divider:
			out = append(out, n)
		case model.Item:
			if n.Hidden || !e.HasAccess(n) {
				continue
			}
			hadChildren := len(n.Children) > 0
			n.Children = e.filterNodes(n.Children)
			if hadChildren && len(n.Children) == 0 {
				continue
			}
			out = append(out, n)
		}
	}
	return out
}

// findActive resolves the first item matching the path in pre-order. When
// the match sits inside a child subtree, every ancestor on the way down is
// added to the expansion set: this is the one intentional side effect of
// active-item resolution (deep links open their branch).
func (e *Engine) findActive(nodes []model.Node, path string) *model.Item {
	for _, node := range nodes {
		item, ok := node.(model.Item)
		if !ok {
			continue
		}

		if routeMatches(item.To, path) {
			matched := item
			return &matched
		}

		if len(item.Children) > 0 {
			if child := e.findActive(item.Children, path); child != nil {
				if key := item.Key(); key != "" {
					e.expanded[key] = struct{}{}
				}
				return child
			}
		}
	}
	return nil
}

// routeMatches reports whether an internal route target matches the
// current path: exact, or the path is a strict descendant. External href
// targets never reach here.
func routeMatches(to, path string) bool {
	if to == "" {
		return false
	}
	return to == path || strings.HasPrefix(path, to+"/")
}

// collectKeys gathers every non-empty key in pre-order.
func collectKeys(nodes []model.Node, into map[string]struct{}) {
	for _, node := range nodes {
		if key := node.Key(); key != "" {
			into[key] = struct{}{}
		}
		if item, ok := node.(model.Item); ok {
			collectKeys(item.Children, into)
		}
	}
}

// containsKey reports whether any descendant item carries the key.
func containsKey(nodes []model.Node, key string) bool {
	for _, node := range nodes {
		item, ok := node.(model.Item)
		if !ok {
			continue
		}
		if k := item.Key(); k != "" && k == key {
			return true
		}
		if containsKey(item.Children, key) {
			return true
		}
	}
	return false
}

// searchNodes matches label/description substrings, keeping a parent when
// any descendant matches and replacing its children with the matching
// subset. Dividers pass through untouched.
func searchNodes(nodes []model.Node, query string) []model.Node {
	out := make([]model.Node, 0, len(nodes))
	for _, node := range nodes {
		switch n := node.(type) {
		case model.Divider:
			out = append(out, n)
		case model.Item:
			labelMatch := strings.Contains(strings.ToLower(n.Label), query)
			descriptionMatch := strings.Contains(strings.ToLower(n.Description), query)

			var childMatches []model.Node
			if len(n.Children) > 0 {
				childMatches = searchNodes(n.Children, query)
			}
			hasChildMatch := containsItem(childMatches)

			if labelMatch || descriptionMatch || hasChildMatch {
				if hasChildMatch {
					n.Children = childMatches
				}
				out = append(out, n)
			}
		}
	}
	return out
}

// containsItem reports whether the slice holds at least one Item (search
// results consisting solely of passed-through dividers are not matches).
func containsItem(nodes []model.Node) bool {
	for _, node := range nodes {
		if _, ok := node.(model.Item); ok {
			return true
		}
	}
	return false
}

// findTrail builds the root-to-leaf ancestor path ending at the target key.
func findTrail(nodes []model.Node, targetKey string, trail []model.Item) []model.Item {
	for _, node := range nodes {
		item, ok := node.(model.Item)
		if !ok {
			continue
		}

		if key := item.Key(); key != "" && key == targetKey {
			return append(append([]model.Item{}, trail...), item)
		}

		if len(item.Children) > 0 {
			if found := findTrail(item.Children, targetKey, append(trail, item)); len(found) > 0 {
				return found
			}
		}
	}
	return nil
}

// intersects reports whether the two string sets share an element.
func intersects(required, held []string) bool {
	for _, r := range required {
		for _, h := range held {
			if r == h {
				return true
			}
		}
	}
	return false
}
