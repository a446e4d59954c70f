package cim

import "strings"

// Class is a CIM class declaration: name, optional superclass, declared
// properties, methods, qualifiers, and an optional path. See spec §3.2.
type Class struct {
	ClassName  string
	SuperClass string // empty if this class has no superclass
	Properties *NamedList[*Property]
	Methods    *NamedList[*Method]
	Qualifiers *NamedList[Qualifier]
	Path       *ClassName
}

// NewClass builds an empty Class ready to accept properties and methods.
func NewClass(name string) *Class {
	return &Class{
		ClassName:  name,
		Properties: NewNamedList[*Property](),
		Methods:    NewNamedList[*Method](),
		Qualifiers: NewNamedList[Qualifier](),
	}
}

// Equal compares two classes by name, superclass, properties, qualifiers,
// and the set of method names with their return types. Method parameters,
// method qualifiers and Path are not compared.
func (c *Class) Equal(o *Class) bool {
	if !strings.EqualFold(c.ClassName, o.ClassName) {
		return false
	}
	if !strings.EqualFold(c.SuperClass, o.SuperClass) {
		return false
	}
	if !c.Properties.Equal(o.Properties, func(a, b *Property) bool { return a.Equal(b) }) {
		return false
	}
	if !c.Qualifiers.Equal(o.Qualifiers, func(a, b Qualifier) bool { return a.Equal(b) }) {
		return false
	}
	cm, om := c.Methods.Slice(), o.Methods.Slice()
	if len(cm) != len(om) {
		return false
	}
	for _, m := range cm {
		om2, ok := o.Methods.Get(m.MethodName)
		if !ok || !strings.EqualFold(m.ReturnType.String(), om2.ReturnType.String()) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (c *Class) Clone() *Class {
	n := NewClass(c.ClassName)
	n.SuperClass = c.SuperClass
	for _, p := range c.Properties.Slice() {
		n.Properties.Set(p.Clone())
	}
	for _, m := range c.Methods.Slice() {
		mm := *m
		mm.Parameters = m.Parameters.Clone()
		mm.Qualifiers = m.Qualifiers.Clone()
		n.Methods.Set(&mm)
	}
	n.Qualifiers = c.Qualifiers.Clone()
	if c.Path != nil {
		p := *c.Path
		n.Path = &p
	}
	return n
}
