// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package cim implements the CIM data model: primitive types, typed
// values, and the object-model entities (instances, classes, properties,
// qualifiers) that a WBEM client exchanges with a server.
package cim

import "fmt"

// Type identifies a CIM primitive data type. It is attached to every
// typed slot (property, keybinding, parameter, qualifier value) so that
// type information survives independently of the concrete Go value.
// See companion standard DSP0004, clause 6.
type Type uint8

// The CIM primitive type identifications.
const (
	_ Type = iota // 0: not defined
	TypeBoolean
	TypeUint8
	TypeSint8
	TypeUint16
	TypeSint16
	TypeUint32
	TypeSint32
	TypeUint64
	TypeSint64
	TypeReal32
	TypeReal64
	TypeChar16
	TypeString
	TypeDateTime
	TypeReference
)

var typeNames = map[Type]string{
	TypeBoolean:   "boolean",
	TypeUint8:     "uint8",
	TypeSint8:     "sint8",
	TypeUint16:    "uint16",
	TypeSint16:    "sint16",
	TypeUint32:    "uint32",
	TypeSint32:    "sint32",
	TypeUint64:    "uint64",
	TypeSint64:    "sint64",
	TypeReal32:    "real32",
	TypeReal64:    "real64",
	TypeChar16:    "char16",
	TypeString:    "string",
	TypeDateTime:  "datetime",
	TypeReference: "reference",
}

var nameTypes = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, n := range typeNames {
		m[n] = t
	}
	return m
}()

// String renders the CIM-XML TYPE attribute spelling of the type.
func (sf Type) String() string {
	if s, ok := typeNames[sf]; ok {
		return s
	}
	return fmt.Sprintf("Type<%d>", uint8(sf))
}

// ParseType parses the CIM-XML TYPE attribute spelling of a type.
// It returns ErrUnknownType for any spelling not in the primitive set.
func ParseType(s string) (Type, error) {
	if t, ok := nameTypes[s]; ok {
		return t, nil
	}
	return 0, ErrUnknownType
}

// IsNumeric reports whether the type is an integer or real type, i.e. one
// whose KEYVALUE VALUETYPE attribute is "numeric".
func (sf Type) IsNumeric() bool {
	switch sf {
	case TypeUint8, TypeSint8, TypeUint16, TypeSint16, TypeUint32, TypeSint32,
		TypeUint64, TypeSint64, TypeReal32, TypeReal64:
		return true
	}
	return false
}

// intRange gives the inclusive [min, max] range for each fixed-width
// integer type, expressed as an int64 pair plus an unsigned flag so a
// single range check covers signed and unsigned alike.
type intRange struct {
	lo, hi int64
	unsign bool
}

var intRanges = map[Type]intRange{
	TypeUint8:  {0, 255, true},
	TypeSint8:  {-128, 127, false},
	TypeUint16: {0, 65535, true},
	TypeSint16: {-32768, 32767, false},
	TypeUint32: {0, 4294967295, true},
	TypeSint32: {-2147483648, 2147483647, false},
	// uint64/sint64 are range-checked against Go's own int64/uint64 width;
	// no additional narrowing is required.
}

// CheckIntRange reports whether v fits in the fixed-width range for t.
// It is a no-op (always true) for uint64/sint64, since those already
// span the full width of the Go integer types used to hold them.
func CheckIntRange(t Type, v int64) bool {
	r, ok := intRanges[t]
	if !ok {
		return true
	}
	if r.unsign && v < 0 {
		return false
	}
	return v >= r.lo && v <= r.hi
}
