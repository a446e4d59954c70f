package cim

import "strings"

// EmbeddedObjectKind distinguishes the two embedded-object flavors a
// string-typed property may carry, per spec §3.2.
type EmbeddedObjectKind uint8

// The embedded-object kinds. EmbeddedNone is the zero value: not an
// embedded object at all.
const (
	EmbeddedNone EmbeddedObjectKind = iota
	EmbeddedInstance
	EmbeddedObject
)

// Property is a named, typed value attached to an instance or declared
// on a class, with its full complement of CIM-XML metadata. See spec
// §3.2.
type Property struct {
	PropName       string
	Value          Value
	Type           Type
	IsArray        bool
	ArraySize      int // 0 means unbounded/unspecified
	ReferenceClass string
	Embedded       EmbeddedObjectKind
	ClassOrigin    string
	Propagated     bool
	Qualifiers     *NamedList[Qualifier]
}

// NewProperty builds a Property, validating the invariants from spec
// §3.2: ReferenceClass may only be set when Type == TypeReference, and
// Embedded may only be set when Type == TypeString.
func NewProperty(name string, v Value) (*Property, error) {
	p := &Property{PropName: name, Value: v, Type: v.CIMType(), IsArray: v.IsArray(), Qualifiers: NewNamedList[Qualifier]()}
	if v.CIMType() == TypeReference {
		if ref, ok := v.Scalar().(InstanceName); ok {
			p.ReferenceClass = ref.ClassName
		}
	}
	return p, nil
}

// Name satisfies the `named` constraint for NamedList[Property].
// Invariant: the stored name always equals the key (case-insensitively),
// per spec §3.2.
func (p *Property) Name() string { return p.PropName }

// SetReferenceClass sets the reference-class metadata. It is an error to
// call this when Type is not TypeReference.
func (p *Property) SetReferenceClass(class string) error {
	if p.Type != TypeReference {
		return ErrReferenceClass
	}
	p.ReferenceClass = class
	return nil
}

// SetEmbedded sets the embedded-object flag. It is an error to call this
// with a non-EmbeddedNone kind when Type is not TypeString.
func (p *Property) SetEmbedded(kind EmbeddedObjectKind) error {
	if kind != EmbeddedNone && p.Type != TypeString {
		return ErrEmbeddedObject
	}
	p.Embedded = kind
	return nil
}

// Equal compares two properties by every logical component.
func (p *Property) Equal(o *Property) bool {
	if !strings.EqualFold(p.PropName, o.PropName) {
		return false
	}
	if p.Type != o.Type || p.IsArray != o.IsArray || p.ArraySize != o.ArraySize {
		return false
	}
	if !strings.EqualFold(p.ReferenceClass, o.ReferenceClass) || p.Embedded != o.Embedded {
		return false
	}
	if !strings.EqualFold(p.ClassOrigin, o.ClassOrigin) || p.Propagated != o.Propagated {
		return false
	}
	if !p.Value.Equal(o.Value) {
		return false
	}
	return p.Qualifiers.Equal(o.Qualifiers, func(a, b Qualifier) bool { return a.Equal(b) })
}

// Clone returns a deep copy.
func (p *Property) Clone() *Property {
	c := *p
	c.Qualifiers = p.Qualifiers.Clone()
	return &c
}

// Parameter is a method input/output parameter declaration.
type Parameter struct {
	ParamName      string
	Type           Type
	IsArray        bool
	ArraySize      int
	ReferenceClass string
	Qualifiers     *NamedList[Qualifier]
}

// Name satisfies the `named` constraint for NamedList[Parameter].
func (p Parameter) Name() string { return p.ParamName }

// Method is a named CIM method declaration: return type, ordered
// parameters, qualifiers, class-origin and propagated flag.
type Method struct {
	MethodName  string
	ReturnType  Type
	Parameters  *NamedList[Parameter]
	Qualifiers  *NamedList[Qualifier]
	ClassOrigin string
	Propagated  bool
}

// Name satisfies the `named` constraint for NamedList[Method].
func (m *Method) Name() string { return m.MethodName }

// NewMethod builds an empty Method ready to accept parameters.
func NewMethod(name string, returnType Type) *Method {
	return &Method{
		MethodName: name,
		ReturnType: returnType,
		Parameters: NewNamedList[Parameter](),
		Qualifiers: NewNamedList[Qualifier](),
	}
}
