package domain

import (
	"fmt"
	"net/http"
)

// Kind classifies an error into the stable taxonomy.
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindNotFound           Kind = "NotFound"
	KindConflict           Kind = "Conflict"
	KindPreconditionFailed Kind = "PreconditionFailed"
	KindIntegrity          Kind = "IntegrityError"
	KindDependencyFailure  Kind = "DependencyFailure"
	KindInternal           Kind = "Internal"
)

// Code is a stable, string-keyed error code resolved through the catalog.
type Code string

const (
	CodeCorrelationIDRequired Code = "CorrelationIdRequired"
	CodeDuplicateCorrelation  Code = "DuplicateCorrelationId"
	CodeInvalidName           Code = "InvalidName"
	CodeInvalidUUID           Code = "InvalidUuid"
	CodeInvalidReferenceType  Code = "InvalidReferenceType"
	CodeInvalidRetentionDays  Code = "InvalidRetentionDays"
	CodeMaxCountOutOfRange    Code = "MaxCountOutOfRange"

	CodeOwnerNotFound            Code = "OwnerNotFound"
	CodeOrganizationNotFound     Code = "OrganizationNotFound"
	CodeRepositoryNotFound       Code = "RepositoryNotFound"
	CodeBranchNotFound           Code = "BranchNotFound"
	CodeReferenceNotFound        Code = "ReferenceNotFound"
	CodeDirectoryVersionNotFound Code = "DirectoryVersionNotFound"
	CodeEntityNotFound           Code = "EntityNotFound"

	CodeEntityAlreadyExists Code = "EntityAlreadyExists"
	CodeNameAlreadyExists   Code = "NameAlreadyExists"
	CodeWrongLifecycleState Code = "WrongLifecycleState"
	CodeNotLogicallyDeleted Code = "NotLogicallyDeleted"

	CodeAssignIsDisabled     Code = "AssignIsDisabled"
	CodePromotionIsDisabled  Code = "PromotionIsDisabled"
	CodeCommitIsDisabled     Code = "CommitIsDisabled"
	CodeCheckpointIsDisabled Code = "CheckpointIsDisabled"
	CodeSaveIsDisabled       Code = "SaveIsDisabled"
	CodeTagIsDisabled        Code = "TagIsDisabled"
	CodeExternalIsDisabled   Code = "ExternalIsDisabled"
	CodeRepositoryNotEmpty   Code = "RepositoryNotEmpty"
	CodeBranchNotEmpty       Code = "BranchNotEmpty"
	CodeNotBasedOnPromotion  Code = "NotBasedOnLatestPromotion"

	CodeShaMismatch  Code = "Sha256Mismatch"
	CodeSizeMismatch Code = "SizeMismatch"

	CodeStateStoreUnavailable Code = "StateStoreUnavailable"
	CodeEventBusUnavailable   Code = "EventBusUnavailable"
	CodeInternalError         Code = "InternalError"
)

// catalog maps codes to user-visible messages. This is the localization
// boundary: transports render Message, clients switch on Code.
var catalog = map[Code]string{
	CodeCorrelationIDRequired: "a correlation id is required",
	CodeDuplicateCorrelation:  "this correlation id was already used against this entity",
	CodeInvalidName:           "names must start with a letter and contain 2-64 letters, digits, or dashes",
	CodeInvalidUUID:           "identifier is not a valid UUID",
	CodeInvalidReferenceType:  "unknown reference type",
	CodeInvalidRetentionDays:  "retention days must be zero or positive",
	CodeMaxCountOutOfRange:    "maxCount must be between 1 and 1000",

	CodeOwnerNotFound:            "owner not found",
	CodeOrganizationNotFound:     "organization not found",
	CodeRepositoryNotFound:       "repository not found",
	CodeBranchNotFound:           "branch not found",
	CodeReferenceNotFound:        "reference not found",
	CodeDirectoryVersionNotFound: "directory version not found",
	CodeEntityNotFound:           "entity not found",

	CodeEntityAlreadyExists: "entity already exists",
	CodeNameAlreadyExists:   "that name is already in use",
	CodeWrongLifecycleState: "operation is not valid in the entity's current state",
	CodeNotLogicallyDeleted: "entity is not logically deleted",

	CodeAssignIsDisabled:     "assign references are disabled on this branch",
	CodePromotionIsDisabled:  "promotions are disabled on this branch",
	CodeCommitIsDisabled:     "commits are disabled on this branch",
	CodeCheckpointIsDisabled: "checkpoints are disabled on this branch",
	CodeSaveIsDisabled:       "saves are disabled on this branch",
	CodeTagIsDisabled:        "tags are disabled on this branch",
	CodeExternalIsDisabled:   "external references are disabled on this branch",
	CodeRepositoryNotEmpty:   "repository still contains branches",
	CodeBranchNotEmpty:       "branch still contains references",
	CodeNotBasedOnPromotion:  "branch is not based on the latest promotion",

	CodeShaMismatch:  "computed sha256 does not match the declared hash",
	CodeSizeMismatch: "declared size does not match the sum of file sizes",

	CodeStateStoreUnavailable: "state store unavailable",
	CodeEventBusUnavailable:   "event bus unavailable",
	CodeInternalError:         "internal error",
}

// Message resolves a code to its catalog message.
func Message(code Code) string {
	if msg, ok := catalog[code]; ok {
		return msg
	}
	return string(code)
}

// Error is the typed domain error carried across actor and pipeline
// boundaries. Detail is optional operator-facing context; Cause preserves
// the underlying failure for DependencyFailure/Internal kinds.
type Error struct {
	Kind   Kind
	Code   Code
	Detail string
	Cause  error
}

// NewError builds an error from the taxonomy.
func NewError(kind Kind, code Code) *Error {
	return &Error{Kind: kind, Code: code}
}

// NewErrorf builds an error with detail text.
func NewErrorf(kind Kind, code Code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Detail: fmt.Sprintf(format, args...)}
}

// WrapDependency marks an infrastructure failure whose state effect may be
// uncertain.
func WrapDependency(code Code, err error) *Error {
	return &Error{Kind: KindDependencyFailure, Code: code, Cause: err}
}

// WrapInternal marks an unexpected failure.
func WrapInternal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternalError, Cause: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, Message(e.Code))
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// Message returns the localized user-visible message.
func (e *Error) Message() string { return Message(e.Code) }

// HTTPStatus maps the error kind to a transport status code. Client faults
// are 400; infrastructure and unexpected faults are 500.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindDependencyFailure, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
