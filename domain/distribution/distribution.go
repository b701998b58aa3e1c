// Package distribution provides request/outcome value types for the
// registry distribution pipeline.
package distribution

import "github.com/faktion/registry/domain/auth"

// Stage is a state of the distribution pipeline.
type Stage string

const (
	StageStart          Stage = "start"
	StageAuthenticating Stage = "authenticating"
	StageLookingUp      Stage = "looking_up"
	StageValidating     Stage = "validating"
	StageResolving      Stage = "resolving"
	StageAssembling     Stage = "assembling"
	StageDone           Stage = "done"
)

// IndexName is the reserved item name that returns the whole registry.
const IndexName = "registry"

// Request is a distribution request extracted from transport (value type).
type Request struct {
	Name       string
	Credential auth.Credential

	// Metadata (for logging)
	RemoteIP string
	TraceID  string
}

// Kind classifies a failed request.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindBadRequest   Kind = "bad_request"
	KindInternal     Kind = "internal_error"
)

// ErrorResponse represents an error to return to client (value type).
type ErrorResponse struct {
	Status  int
	Kind    Kind
	Message string
}

// Error responses, one per failure kind. The messages are part of the
// client contract.
var (
	ErrUnauthorized = ErrorResponse{
		Status:  401,
		Kind:    KindUnauthorized,
		Message: "Unauthorized",
	}
	ErrNotFound = ErrorResponse{
		Status:  404,
		Kind:    KindNotFound,
		Message: "Component not found",
	}
	// ErrNoFiles answers every rejected manifest, not only empty ones.
	ErrNoFiles = ErrorResponse{
		Status:  400,
		Kind:    KindBadRequest,
		Message: "Component has no files",
	}
	ErrInternal = ErrorResponse{
		Status:  500,
		Kind:    KindInternal,
		Message: "Something went wrong",
	}
)
