package accessgate

import "net/http"

// Kind enumerates the gate's failure taxonomy. Every failure a transport
// adapter can observe is one of these; nothing else escapes the gate.
type Kind string

const (
	KindAuthenticationRequired Kind = "authentication_required"
	KindTenantNotFound         Kind = "tenant_not_found"
	KindTenantContextRequired  Kind = "tenant_context_required"
	KindAccessDenied           Kind = "access_denied"
	KindPermissionDenied       Kind = "permission_denied"
	KindInternal               Kind = "internal"
)

// GateError is the structured failure result of an authorization pass.
type GateError struct {
	Kind    Kind
	Status  int
	Title   string
	Message string
	cause   error
}

func (e *GateError) Error() string {
	if e.cause != nil {
		return string(e.Kind) + ": " + e.cause.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As at call sites
func (e *GateError) Unwrap() error {
	return e.cause
}

// ErrorBody is the stable JSON error shape consumed by the browser client.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Body renders the error in the wire shape
func (e *GateError) Body() ErrorBody {
	return ErrorBody{
		Success: false,
		Error:   e.Title,
		Message: e.Message,
		Code:    e.Status,
	}
}

func authenticationRequired(message string) *GateError {
	return &GateError{
		Kind:    KindAuthenticationRequired,
		Status:  http.StatusUnauthorized,
		Title:   "Authentication Required",
		Message: message,
	}
}

func tenantNotFound() *GateError {
	return &GateError{
		Kind:    KindTenantNotFound,
		Status:  http.StatusNotFound,
		Title:   "Not Found",
		Message: "The requested tenant does not exist.",
	}
}

func tenantContextRequired() *GateError {
	return &GateError{
		Kind:    KindTenantContextRequired,
		Status:  http.StatusBadRequest,
		Title:   "Bad Request",
		Message: "A tenant context is required for this operation.",
	}
}

func accessDenied() *GateError {
	return &GateError{
		Kind:    KindAccessDenied,
		Status:  http.StatusForbidden,
		Title:   "Access Denied",
		Message: "You do not have access to this tenant.",
	}
}

func permissionDenied(what string) *GateError {
	return &GateError{
		Kind:    KindPermissionDenied,
		Status:  http.StatusForbidden,
		Title:   "Access Denied",
		Message: "You do not have permission to " + what + ".",
	}
}

func internalFault(cause error) *GateError {
	return &GateError{
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Title:   "Internal Server Error",
		Message: "An unexpected error occurred.",
		cause:   cause,
	}
}
