package cim

import "fmt"

// Value is a tagged-sum container for any CIM primitive value: it carries
// the CIM type tag alongside the concrete Go value, and distinguishes
// scalar, array, and null. Callers must never duck-type a Value's
// contents; they must branch on CIMType()/IsArray()/IsNull().
// See spec §9 "Polymorphism over CIM values".
type Value struct {
	typ      Type
	isArray  bool
	isNull   bool
	scalar   interface{}
	array    []interface{}
	refClass string // only meaningful when typ == TypeReference
}

// NewNull returns a null value of the given type. The type tag is
// preserved even though there is no payload.
func NewNull(t Type) Value {
	return Value{typ: t, isNull: true}
}

// NewScalar wraps a single primitive value of type t.
func NewScalar(t Type, v interface{}) Value {
	return Value{typ: t, scalar: v}
}

// NewArray wraps an array of primitive values of type t. Per spec §3.1,
// nested arrays are never permitted; NewArray panics if any element of
// vs is itself a []interface{} or a Value with IsArray() true, since that
// would indicate a caller bug rather than a recoverable runtime condition.
func NewArray(t Type, vs []interface{}) Value {
	for _, v := range vs {
		if _, ok := v.([]interface{}); ok {
			panic(ErrArrayOfArray)
		}
		if iv, ok := v.(Value); ok && iv.isArray {
			panic(ErrArrayOfArray)
		}
	}
	return Value{typ: t, isArray: true, array: vs}
}

// NewReference wraps an InstanceName as a reference-typed value.
func NewReference(ref InstanceName) Value {
	return Value{typ: TypeReference, scalar: ref}
}

// CIMType returns the value's declared CIM type tag.
func (v Value) CIMType() Type { return v.typ }

// IsArray reports whether the value holds an array rather than a scalar.
func (v Value) IsArray() bool { return v.isArray }

// IsNull reports whether the value's slot is null.
func (v Value) IsNull() bool { return v.isNull }

// Scalar returns the scalar payload; it is the zero interface if the
// value is an array or null.
func (v Value) Scalar() interface{} { return v.scalar }

// Array returns the array payload; it is nil if the value is scalar or
// null.
func (v Value) Array() []interface{} { return v.array }

// ReferenceClass returns the keybinding's declared reference class, valid
// only when CIMType() == TypeReference.
func (v Value) ReferenceClass() string { return v.refClass }

// WithReferenceClass returns a copy of v with its reference-class set.
// It is an error (ErrReferenceClass) to call this on a non-reference
// value.
func (v Value) WithReferenceClass(class string) (Value, error) {
	if v.typ != TypeReference {
		return v, ErrReferenceClass
	}
	v.refClass = class
	return v, nil
}

// Equal compares two values for CIM equality: same type, same
// array/null-ness, and element-wise equal payloads. Reference values
// compare via InstanceName.Equal.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ || v.isArray != o.isArray || v.isNull != o.isNull {
		return false
	}
	if v.isNull {
		return true
	}
	if v.isArray {
		if len(v.array) != len(o.array) {
			return false
		}
		for i := range v.array {
			if !scalarEqual(v.typ, v.array[i], o.array[i]) {
				return false
			}
		}
		return true
	}
	return scalarEqual(v.typ, v.scalar, o.scalar)
}

func scalarEqual(t Type, a, b interface{}) bool {
	if t == TypeReference {
		an, aok := a.(InstanceName)
		bn, bok := b.(InstanceName)
		if aok && bok {
			return an.Equal(bn)
		}
	}
	return a == b
}

// String renders a diagnostic (not MOF, not WBEM-URI) form used in error
// messages and %v formatting.
func (v Value) String() string {
	if v.isNull {
		return fmt.Sprintf("%s<null>", v.typ)
	}
	if v.isArray {
		return fmt.Sprintf("%s[%d]%v", v.typ, len(v.array), v.array)
	}
	return fmt.Sprintf("%s(%v)", v.typ, v.scalar)
}
