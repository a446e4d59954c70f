package wbem

import "fmt"

// StatusCode is a numeric CIM status code as carried in an <ERROR
// CODE="…"/> element, per spec §6.2.
type StatusCode int

// The standard CIM status codes, 1-17.
const (
	ErrFailed                      StatusCode = 1
	ErrAccessDenied                StatusCode = 2
	ErrInvalidNamespace            StatusCode = 3
	ErrInvalidParameter            StatusCode = 4
	ErrInvalidClass                StatusCode = 5
	ErrNotFound                    StatusCode = 6
	ErrNotSupported                StatusCode = 7
	ErrClassHasChildren            StatusCode = 8
	ErrClassHasInstances           StatusCode = 9
	ErrInvalidSuperClass           StatusCode = 10
	ErrAlreadyExists               StatusCode = 11
	ErrNoSuchProperty              StatusCode = 12
	ErrTypeMismatch                StatusCode = 13
	ErrQueryLanguageNotSupported   StatusCode = 14
	ErrInvalidQuery                StatusCode = 15
	ErrMethodNotAvailable          StatusCode = 16
	ErrMethodNotFound              StatusCode = 17
)

var statusCodeNames = map[StatusCode]string{
	ErrFailed:                    "CIM_ERR_FAILED",
	ErrAccessDenied:              "CIM_ERR_ACCESS_DENIED",
	ErrInvalidNamespace:          "CIM_ERR_INVALID_NAMESPACE",
	ErrInvalidParameter:          "CIM_ERR_INVALID_PARAMETER",
	ErrInvalidClass:              "CIM_ERR_INVALID_CLASS",
	ErrNotFound:                  "CIM_ERR_NOT_FOUND",
	ErrNotSupported:              "CIM_ERR_NOT_SUPPORTED",
	ErrClassHasChildren:          "CIM_ERR_CLASS_HAS_CHILDREN",
	ErrClassHasInstances:         "CIM_ERR_CLASS_HAS_INSTANCES",
	ErrInvalidSuperClass:         "CIM_ERR_INVALID_SUPERCLASS",
	ErrAlreadyExists:             "CIM_ERR_ALREADY_EXISTS",
	ErrNoSuchProperty:            "CIM_ERR_NO_SUCH_PROPERTY",
	ErrTypeMismatch:              "CIM_ERR_TYPE_MISMATCH",
	ErrQueryLanguageNotSupported: "CIM_ERR_QUERY_LANGUAGE_NOT_SUPPORTED",
	ErrInvalidQuery:              "CIM_ERR_INVALID_QUERY",
	ErrMethodNotAvailable:        "CIM_ERR_METHOD_NOT_AVAILABLE",
	ErrMethodNotFound:            "CIM_ERR_METHOD_NOT_FOUND",
}

// String renders the CIM_ERR_* symbolic name, or a numeric fallback for
// any vendor-extended code outside 1-17.
func (sf StatusCode) String() string {
	if s, ok := statusCodeNames[sf]; ok {
		return s
	}
	return fmt.Sprintf("CIM_ERR<%d>", int(sf))
}
