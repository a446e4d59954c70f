package cim

import "strings"

// Instance is a CIM instance: class name, ordered properties, qualifiers,
// and an optional path. See spec §3.2.
type Instance struct {
	ClassName  string
	Properties *NamedList[*Property]
	Qualifiers *NamedList[Qualifier]
	Path       *InstanceName // nil if this instance has no path
}

// NewInstance builds an empty Instance ready to accept properties.
func NewInstance(className string) *Instance {
	return &Instance{
		ClassName:  className,
		Properties: NewNamedList[*Property](),
		Qualifiers: NewNamedList[Qualifier](),
	}
}

// SetProperty adds or replaces a property by name.
func (i *Instance) SetProperty(p *Property) { i.Properties.Set(p) }

// Property looks up a property by name, case-insensitively.
func (i *Instance) Property(name string) (*Property, bool) { return i.Properties.Get(name) }

// Equal compares two instances by class name, properties, qualifiers,
// and path (two instances without a path compare equal on that
// component; an instance with a path never equals one without).
func (i *Instance) Equal(o *Instance) bool {
	if !strings.EqualFold(i.ClassName, o.ClassName) {
		return false
	}
	if !i.Properties.Equal(o.Properties, func(a, b *Property) bool { return a.Equal(b) }) {
		return false
	}
	if !i.Qualifiers.Equal(o.Qualifiers, func(a, b Qualifier) bool { return a.Equal(b) }) {
		return false
	}
	if (i.Path == nil) != (o.Path == nil) {
		return false
	}
	if i.Path != nil && !i.Path.Equal(*o.Path) {
		return false
	}
	return true
}

// Clone returns a deep copy.
func (i *Instance) Clone() *Instance {
	c := NewInstance(i.ClassName)
	for _, p := range i.Properties.Slice() {
		c.Properties.Set(p.Clone())
	}
	c.Qualifiers = i.Qualifiers.Clone()
	if i.Path != nil {
		p := i.Path.Clone()
		c.Path = &p
	}
	return c
}
