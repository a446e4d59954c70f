package cimxml

import "errors"

// Sentinel errors distinguishing the two parse-failure tiers named in
// spec §4.4.3: a syntax-level XML violation versus a schema-level
// CIM-XML DTD violation (wrong top element, missing required element,
// etc).
var (
	ErrXMLSyntax     = errors.New("cimxml: malformed XML")
	ErrCIMXMLSchema  = errors.New("cimxml: response violates the CIM-XML schema")
	ErrUnsupportedOp = errors.New("cimxml: unsupported operation kind for encoding")
)
