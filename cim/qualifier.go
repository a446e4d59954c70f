package cim

import "strings"

// Scope names the kinds of schema element a QualifierDeclaration may
// apply to. See spec §3.2.
type Scope string

// The valid qualifier scopes.
const (
	ScopeAny         Scope = "any"
	ScopeClass       Scope = "class"
	ScopeAssociation Scope = "association"
	ScopeIndication  Scope = "indication"
	ScopeProperty    Scope = "property"
	ScopeReference   Scope = "reference"
	ScopeMethod      Scope = "method"
	ScopeParameter   Scope = "parameter"
)

// Flavor captures the four qualifier inheritance/translation flags
// defined in spec §3.2.
type Flavor struct {
	ToSubclass   bool
	ToInstance   bool
	Overridable  bool
	Translatable bool
}

// Qualifier is a (name, typed value) pair attached to a class, instance,
// property, method, or parameter, plus propagation and flavor metadata.
type Qualifier struct {
	QualName   string
	Value      Value
	Propagated bool
	Flavor     Flavor
}

// Name satisfies the `named` constraint for NamedList[Qualifier].
func (q Qualifier) Name() string { return q.QualName }

// Equal compares two qualifiers by name (case-insensitive) and value.
func (q Qualifier) Equal(o Qualifier) bool {
	return strings.EqualFold(q.QualName, o.QualName) && q.Value.Equal(o.Value)
}

// QualifierDeclaration declares a qualifier's type, default value,
// applicable scopes, and flavor defaults, independent of any particular
// use on a class/instance/property.
type QualifierDeclaration struct {
	QualName string
	Type     Type
	Value    Value
	IsArray  bool
	Scopes   map[Scope]bool
	Flavor   Flavor
}

// Name satisfies the `named` constraint for NamedList[QualifierDeclaration].
func (d QualifierDeclaration) Name() string { return d.QualName }

// HasScope reports whether the declaration applies to the given scope,
// or whether it applies to ScopeAny (which subsumes all scopes).
func (d QualifierDeclaration) HasScope(s Scope) bool {
	if d.Scopes[ScopeAny] {
		return true
	}
	return d.Scopes[s]
}
