package cim

import "errors"

// Package-level parse/validation errors. These are sentinel values so
// callers can compare with errors.Is rather than matching on message text.
var (
	ErrUnknownType       = errors.New("cim: unknown primitive type")
	ErrTypeMismatch      = errors.New("cim: value type does not match declared type")
	ErrArrayOfArray      = errors.New("cim: nested arrays are not permitted")
	ErrBadDateTime       = errors.New("cim: malformed datetime wire form")
	ErrReferenceClass    = errors.New("cim: reference-class is only valid for reference-typed values")
	ErrEmbeddedObject    = errors.New("cim: embedded-object flag is only valid for string-typed values")
	ErrBadWBEMURI        = errors.New("cim: malformed WBEM URI")
	ErrIntOutOfRange     = errors.New("cim: integer value out of range for its CIM type")
	ErrDuplicateName     = errors.New("cim: duplicate name in named collection")
	ErrNotFound          = errors.New("cim: name not found in named collection")
)
