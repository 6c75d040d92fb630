// Package fiber recovers hidden component state from a client-rendered page.
//
// Single-page frameworks attach their internal instance tree to DOM elements
// under prefixed own-properties (React uses __reactFiber$ /
// __reactInternalInstance$). The inspector performs a read-only, bounded
// upward walk over that parent-linked graph to reach the props of the
// component owning an element. The walk is decoupled from any one framework:
// the property prefixes, target component, and prop name are all part of a
// Convention so the naming can be swapped via configuration.
package fiber

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/civicgrab/civicgrab/internal/browser"
)

// ErrNotFound reports that no matching ancestor carried the wanted state
// within the hop bound. Callers treat this as an expected extraction miss
// (the file needs click-based retrieval), not a failure.
var ErrNotFound = eris.New("fiber: state not found")

// Node is one node in a parent-linked component graph. Parent returns nil at
// the root. Implementations are read-only views over live framework state.
type Node interface {
	// Component is the node's component display name, empty when unknown.
	Component() string
	// Props is the node's current (memoized) property bag.
	Props() map[string]any
	// Pending is the node's pending property bag, consulted when the
	// current bag lacks the wanted prop.
	Pending() map[string]any
	Parent() Node
}

// Source locates the framework node attached to a DOM element by scanning
// the element's own properties for names carrying one of the convention's
// prefixes. Implemented by the browser driver binding.
type Source interface {
	NodeFor(ctx context.Context, el browser.Element, conv Convention) (Node, error)
}

// Convention names the framework internals the inspector walks. Defaults
// match React's current and legacy fiber attachments.
type Convention struct {
	// KeyPrefixes are the element own-property prefixes that point at the
	// framework's instance node.
	KeyPrefixes []string `yaml:"key_prefixes"`
	// TargetComponent is the component that normally owns the wanted state.
	// The walk checks the prop at every hop rather than only there, because
	// wrapper components re-expose it at varying depths.
	TargetComponent string `yaml:"target_component"`
	// StateProp is the prop name holding the nested remote-file object.
	StateProp string `yaml:"state_prop"`
	// MaxHops bounds the upward walk so a malformed or cyclic tree can
	// never hang the scraper.
	MaxHops int `yaml:"max_hops"`
}

// DefaultConvention returns the React convention used by CivicClerk portals.
func DefaultConvention() Convention {
	return Convention{
		KeyPrefixes:     []string{"__reactFiber$", "__reactInternalInstance$"},
		TargetComponent: "DownloadFileButton",
		StateProp:       "remoteFile",
		MaxHops:         10,
	}
}

// normalized fills zero-value fields with defaults.
func (c Convention) normalized() Convention {
	def := DefaultConvention()
	if len(c.KeyPrefixes) == 0 {
		c.KeyPrefixes = def.KeyPrefixes
	}
	if c.TargetComponent == "" {
		c.TargetComponent = def.TargetComponent
	}
	if c.StateProp == "" {
		c.StateProp = def.StateProp
	}
	if c.MaxHops <= 0 {
		c.MaxHops = def.MaxHops
	}
	return c
}

// Inspector walks element-attached component graphs for one convention.
type Inspector struct {
	conv Convention
	src  Source
}

// New creates an Inspector. src may be nil when the driver binding cannot
// reflect over framework state; every lookup then reports ErrNotFound and
// the orchestrator falls back to click downloads.
func New(conv Convention, src Source) *Inspector {
	return &Inspector{conv: conv.normalized(), src: src}
}

// Convention returns the normalized convention in use.
func (i *Inspector) Convention() Convention { return i.conv }

// RemoteFile walks from the element's node toward the root, at most MaxHops
// links, and returns the first StateProp value found. The walk is read-only.
func (i *Inspector) RemoteFile(ctx context.Context, el browser.Element) (map[string]any, error) {
	if i.src == nil {
		return nil, ErrNotFound
	}
	node, err := i.src.NodeFor(ctx, el, i.conv)
	if err != nil {
		return nil, err
	}

	for hop := 0; node != nil && hop <= i.conv.MaxHops; hop++ {
		if v, ok := lookupProp(node, i.conv.StateProp); ok {
			if m, ok := v.(map[string]any); ok {
				return m, nil
			}
			// Prop present but not an object: treat as absent state.
			return nil, ErrNotFound
		}
		// Keep climbing even past TargetComponent: ancestors above the
		// owning component can still carry the prop, and MaxHops bounds
		// the walk either way.
		node = node.Parent()
	}
	return nil, ErrNotFound
}

func lookupProp(n Node, name string) (any, bool) {
	if props := n.Props(); props != nil {
		if v, ok := props[name]; ok && v != nil {
			return v, true
		}
	}
	if pending := n.Pending(); pending != nil {
		if v, ok := pending[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// MapNode is a plain-data Node for driver bindings and tests.
type MapNode struct {
	Name       string
	PropBag    map[string]any
	PendingBag map[string]any
	Up         *MapNode
}

func (n *MapNode) Component() string       { return n.Name }
func (n *MapNode) Props() map[string]any   { return n.PropBag }
func (n *MapNode) Pending() map[string]any { return n.PendingBag }

func (n *MapNode) Parent() Node {
	if n.Up == nil {
		return nil
	}
	return n.Up
}
