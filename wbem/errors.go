package wbem

import (
	"errors"
	"fmt"

	"github.com/rob-gra/go-wbem/cim"
)

// Kind discriminates the closed error taxonomy of spec §7. Callers
// switch on Kind rather than matching on message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectionError
	KindTimeoutError
	KindAuthError
	KindHTTPError
	KindXMLParseError
	KindCIMXMLParseError
	KindHeaderParseError
	KindCIMError
	KindCancelled
	KindSessionClosed
)

func (k Kind) String() string {
	switch k {
	case KindConnectionError:
		return "ConnectionError"
	case KindTimeoutError:
		return "TimeoutError"
	case KindAuthError:
		return "AuthError"
	case KindHTTPError:
		return "HTTPError"
	case KindXMLParseError:
		return "XMLParseError"
	case KindCIMXMLParseError:
		return "CIMXMLParseError"
	case KindHeaderParseError:
		return "HeaderParseError"
	case KindCIMError:
		return "CIMError"
	case KindCancelled:
		return "CancelledError"
	case KindSessionClosed:
		return "SessionClosedError"
	default:
		return "UnknownError"
	}
}

// Error is the structured error surfaced to callers, per spec §7: it
// preserves the error Kind, the request URL and operation name for
// diagnosis, an optional CIM status code, and optional CIM_Error detail
// instances.
type Error struct {
	Kind         Kind
	Operation    string
	URL          string
	StatusCode   StatusCode // valid only when Kind == KindCIMError
	Description  string
	Details      []*cim.Instance
	Cause        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindCIMError:
		return fmt.Sprintf("wbem: %s: %s (%s): %s", e.Operation, e.Kind, e.StatusCode, e.Description)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("wbem: %s: %s: %v", e.Operation, e.Kind, e.Cause)
		}
		return fmt.Sprintf("wbem: %s: %s: %s", e.Operation, e.Kind, e.Description)
	}
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports equality by Kind so callers can write
// errors.Is(err, wbem.ErrKind(wbem.KindTimeoutError)).
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return e.Kind == o.Kind
	}
	return false
}

// ErrKind builds a sentinel *Error carrying only a Kind, for use with
// errors.Is.
func ErrKind(k Kind) *Error { return &Error{Kind: k} }

func newConnectionError(op, url string, cause error) *Error {
	return &Error{Kind: KindConnectionError, Operation: op, URL: url, Cause: cause}
}

func newTimeoutError(op, url string, timeout fmt.Stringer, cause error) *Error {
	return &Error{Kind: KindTimeoutError, Operation: op, URL: url,
		Description: fmt.Sprintf("exceeded configured timeout %s", timeout), Cause: cause}
}

func newAuthError(op, url string, cause error) *Error {
	return &Error{Kind: KindAuthError, Operation: op, URL: url, Cause: cause}
}

func newHTTPError(op, url string, cause error) *Error {
	return &Error{Kind: KindHTTPError, Operation: op, URL: url, Cause: cause}
}

func newXMLParseError(op string, cause error) *Error {
	return &Error{Kind: KindXMLParseError, Operation: op, Cause: cause}
}

func newCIMXMLParseError(op string, cause error) *Error {
	return &Error{Kind: KindCIMXMLParseError, Operation: op, Cause: cause}
}

func newHeaderParseError(op, description string) *Error {
	return &Error{Kind: KindHeaderParseError, Operation: op, Description: description}
}

func newCIMError(op string, code StatusCode, description string, details []*cim.Instance) *Error {
	return &Error{Kind: KindCIMError, Operation: op, StatusCode: code, Description: description, Details: details}
}

func newSessionClosedError(op string) *Error {
	return &Error{Kind: KindSessionClosed, Operation: op, Description: "enumeration session is closed or failed"}
}

func newCancelledError(op string) *Error {
	return &Error{Kind: KindCancelled, Operation: op, Description: "operation cancelled by caller"}
}
