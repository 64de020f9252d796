package model

import "sort"

// ComponentKind tags one component family declared in the metamodel, e.g.
// "Description" or "Flow".
type ComponentKind string

// ComponentData is an immutable bundle of attribute values for one
// component kind. It is owned exclusively by the snapshot that carries it;
// every amend hands out a fresh copy at the API boundary, never an alias.
type ComponentData struct {
	attrs map[string]Value
}

// NewComponentData builds a component bundle from attribute values. The
// input map is copied; callers keep ownership of theirs.
func NewComponentData(attrs map[string]Value) ComponentData {
	out := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return ComponentData{attrs: out}
}

// Get returns the value of one attribute.
func (c ComponentData) Get(name string) (Value, bool) {
	v, ok := c.attrs[name]
	return v, ok
}

// AttributeNames returns the attribute names in sorted order.
func (c ComponentData) AttributeNames() []string {
	names := make([]string, 0, len(c.attrs))
	for name := range c.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of attributes.
func (c ComponentData) Len() int {
	return len(c.attrs)
}

// With returns a copy of the bundle with one attribute replaced. The
// receiver is unchanged.
func (c ComponentData) With(name string, v Value) ComponentData {
	out := make(map[string]Value, len(c.attrs)+1)
	for k, val := range c.attrs {
		out[k] = val
	}
	out[name] = v
	return ComponentData{attrs: out}
}

// Clone returns an independent copy of the bundle.
func (c ComponentData) Clone() ComponentData {
	return NewComponentData(c.attrs)
}

// References collects every object identity referenced by the bundle's
// attribute values, in attribute-name order.
func (c ComponentData) References() []ObjectID {
	var refs []ObjectID
	for _, name := range c.AttributeNames() {
		refs = append(refs, References(c.attrs[name])...)
	}
	return refs
}

// Equal reports deep equality of two bundles.
func (c ComponentData) Equal(other ComponentData) bool {
	if len(c.attrs) != len(other.attrs) {
		return false
	}
	for name, v := range c.attrs {
		ov, ok := other.attrs[name]
		if !ok || !ValuesEqual(v, ov) {
			return false
		}
	}
	return true
}
