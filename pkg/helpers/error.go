package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/moogar0880/problems"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	// ErrUnknownSession is returned when a signing session id is absent or already consumed (ORIGINAL §6, 404)
	ErrUnknownSession = NewErrorStatus("UNKNOWN_SESSION", http.StatusNotFound)

	// ErrSessionExpired is returned when a signing session has outlived its TTL (ORIGINAL §5/§6, 410)
	ErrSessionExpired = NewErrorStatus("SESSION_EXPIRED", http.StatusGone)

	// ErrSignatureVerificationFailed is the optional pre-check failure in Complete (ORIGINAL §4.E, 422)
	ErrSignatureVerificationFailed = NewErrorStatus("SIGNATURE_VERIFICATION_FAILED", http.StatusUnprocessableEntity)

	// ErrPayloadTooLarge is returned when basic-info does not fit the body region (ORIGINAL §4.B, 413)
	ErrPayloadTooLarge = NewErrorStatus("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge)

	// ErrFrameTooLarge is returned when the last-row frame does not fit the row (ORIGINAL §4.B, 413)
	ErrFrameTooLarge = NewErrorStatus("FRAME_TOO_LARGE", http.StatusRequestEntityTooLarge)

	// ErrDimensionsTooSmall is returned when H=1 or W<9 (ORIGINAL §8 "Boundary behaviors")
	ErrDimensionsTooSmall = NewErrorStatus("DIMENSIONS_TOO_SMALL", http.StatusBadRequest)

	// ErrDimensionsTooLarge is returned when W*H*4 > 256 MiB (ORIGINAL §4.A)
	ErrDimensionsTooLarge = NewErrorStatus("DIMENSIONS_TOO_LARGE", http.StatusRequestEntityTooLarge)

	// ErrInstallationKeyConflict is returned when an installation_id is already bound to a different key (ORIGINAL §4.G, 409)
	ErrInstallationKeyConflict = NewErrorStatus("INSTALLATION_KEY_CONFLICT", http.StatusConflict)

	// ErrDeviceNotFound is returned when a device lookup or delete predicate does not match (ORIGINAL §4.G, 404)
	ErrDeviceNotFound = NewErrorStatus("DEVICE_NOT_FOUND", http.StatusNotFound)

	// ErrServerBusy is returned when the codec worker pool queue is saturated (ORIGINAL §5, 503)
	ErrServerBusy = NewErrorStatus("SERVER_BUSY", http.StatusServiceUnavailable)

	// ErrInternalServerError is the catch-all for codec/storage faults (ORIGINAL §7, 500)
	ErrInternalServerError = NewErrorStatus("INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
)

// Error represents a structured, machine-readable API error.
type Error struct {
	Title      string `json:"title"`
	Err        any    `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("Error: [%s] %+v", e.Title, e.Err)
	}
	return fmt.Sprintf("Error: [%s]", e.Title)
}

// ErrorResponse wraps an Error for JSON rendering at the HTTP boundary.
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// NewError creates an Error with no fixed HTTP status (inferred from its title).
func NewError(title string) *Error {
	return &Error{Title: title}
}

// NewErrorStatus creates an Error with an explicit HTTP status code.
func NewErrorStatus(title string, status int) *Error {
	return &Error{Title: title, HTTPStatus: status}
}

// NewErrorDetails creates an Error carrying additional structured detail.
func NewErrorDetails(title string, err any) *Error {
	return &Error{Title: title, Err: err}
}

// NewErrorFromError adapts an arbitrary error into the structured Error shape used at
// the HTTP boundary, the same dispatch pattern used throughout this codebase.
func NewErrorFromError(err error) *Error {
	if err == nil {
		return nil
	}

	if e, ok := err.(*Error); ok {
		return e
	}

	if jsonUnmarshalTypeError, ok := err.(*json.UnmarshalTypeError); ok {
		return &Error{Title: "json_type_error", Err: formatJSONUnmarshalTypeError(jsonUnmarshalTypeError), HTTPStatus: http.StatusBadRequest}
	}
	if jsonSyntaxError, ok := err.(*json.SyntaxError); ok {
		return &Error{Title: "json_syntax_error", Err: map[string]any{"position": jsonSyntaxError.Offset, "error": jsonSyntaxError.Error()}, HTTPStatus: http.StatusBadRequest}
	}
	if validatorErr, ok := err.(validator.ValidationErrors); ok {
		return &Error{Title: "validation_error", Err: formatValidationErrors(validatorErr), HTTPStatus: http.StatusBadRequest}
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrDeviceNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrInstallationKeyConflict
	}

	return NewErrorDetails("internal_server_error", err.Error())
}

func formatValidationErrors(err validator.ValidationErrors) []map[string]any {
	v := make([]map[string]any, 0)
	for _, e := range err {
		namespace := e.Namespace()
		if splits := strings.SplitN(namespace, ".", 2); len(splits) > 1 {
			namespace = splits[1]
		}
		v = append(v, map[string]any{
			"field":           e.Field(),
			"namespace":       namespace,
			"type":            e.Kind().String(),
			"validation":      e.Tag(),
			"validationParam": e.Param(),
			"value":           e.Value(),
		})
	}
	return v
}

func formatJSONUnmarshalTypeError(err *json.UnmarshalTypeError) []map[string]any {
	return []map[string]any{
		{
			"field":    err.Field,
			"expected": err.Type.Kind().String(),
			"actual":   err.Value,
		},
	}
}

// Problem404 returns an RFC 7807 problem document for unmatched routes.
func Problem404() *problems.Problem {
	return problems.NewStatusProblem(404)
}
