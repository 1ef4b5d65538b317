package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/pkg/logger"
)

// Response is the unified API response format.
type Response struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Stable error kinds for programmatic handling by clients.
const (
	KindBadRequest         = "bad_request"
	KindUnauthorized       = "unauthorized"
	KindForbidden          = "forbidden"
	KindNotFound           = "not_found"
	KindConflict           = "conflict"
	KindIllegalTransition  = "illegal_transition"
	KindAlreadyAssigned    = "already_assigned"
	KindNoEligibleStaff    = "no_eligible_staff"
	KindInvalidSourceState = "invalid_source_state"
	KindInvitationInvalid  = "invitation_invalid"
	KindNotProvisioned     = "not_provisioned"
	KindUnknownPrincipal   = "unknown_principal"
	KindNotInternal        = "not_internal"
	KindInactive           = "inactive"
	KindInternal           = "internal"
)

// AppError represents a structured application error with HTTP status and error code.
// Two AppErrors match under errors.Is when their kinds are equal, so the
// sentinels below can be compared against errors carrying custom messages.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 404, 500)
	Code       int    // Application-level error code
	Kind       string // Stable machine-readable kind
	Message    string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

// Is reports whether target is an AppError of the same kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrBadRequest         = &AppError{HTTPStatus: http.StatusBadRequest, Code: 400, Kind: KindBadRequest, Message: "bad request"}
	ErrUnauthorized       = &AppError{HTTPStatus: http.StatusUnauthorized, Code: 401, Kind: KindUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &AppError{HTTPStatus: http.StatusForbidden, Code: 403, Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound           = &AppError{HTTPStatus: http.StatusNotFound, Code: 404, Kind: KindNotFound, Message: "not found"}
	ErrConflict           = &AppError{HTTPStatus: http.StatusConflict, Code: 409, Kind: KindConflict, Message: "conflict"}
	ErrIllegalTransition  = &AppError{HTTPStatus: http.StatusConflict, Code: 4091, Kind: KindIllegalTransition, Message: "illegal transition"}
	ErrAlreadyAssigned    = &AppError{HTTPStatus: http.StatusConflict, Code: 4092, Kind: KindAlreadyAssigned, Message: "matter already assigned"}
	ErrInvalidSourceState = &AppError{HTTPStatus: http.StatusConflict, Code: 4093, Kind: KindInvalidSourceState, Message: "matter is not in an assignable state"}
	ErrNoEligibleStaff    = &AppError{HTTPStatus: http.StatusUnprocessableEntity, Code: 422, Kind: KindNoEligibleStaff, Message: "no eligible staff"}
	ErrInvitationInvalid  = &AppError{HTTPStatus: http.StatusGone, Code: 410, Kind: KindInvitationInvalid, Message: "invitation is invalid or expired"}
	ErrNotProvisioned     = &AppError{HTTPStatus: http.StatusUnauthorized, Code: 4011, Kind: KindNotProvisioned, Message: "principal is not provisioned"}
	ErrUnknownPrincipal   = &AppError{HTTPStatus: http.StatusUnauthorized, Code: 4012, Kind: KindUnknownPrincipal, Message: "principal has no profile"}
	ErrNotInternal        = &AppError{HTTPStatus: http.StatusForbidden, Code: 4031, Kind: KindNotInternal, Message: "internal access required"}
	ErrInactive           = &AppError{HTTPStatus: http.StatusForbidden, Code: 4032, Kind: KindInactive, Message: "principal is not active"}
	ErrInternal           = &AppError{HTTPStatus: http.StatusInternalServerError, Code: 500, Kind: KindInternal, Message: "internal server error"}
)

// WithMessage returns a copy of e carrying msg.
func (e *AppError) WithMessage(msg string) *AppError {
	cp := *e
	cp.Message = msg
	return &cp
}

// Pre-defined error constructors

func NewBadRequest(msg string) *AppError        { return ErrBadRequest.WithMessage(msg) }
func NewUnauthorized(msg string) *AppError      { return ErrUnauthorized.WithMessage(msg) }
func NewForbidden(msg string) *AppError         { return ErrForbidden.WithMessage(msg) }
func NewNotFound(msg string) *AppError          { return ErrNotFound.WithMessage(msg) }
func NewConflict(msg string) *AppError          { return ErrConflict.WithMessage(msg) }
func NewIllegalTransition(msg string) *AppError { return ErrIllegalTransition.WithMessage(msg) }
func NewInvitationInvalid(msg string) *AppError { return ErrInvitationInvalid.WithMessage(msg) }
func NewInactive(msg string) *AppError          { return ErrInactive.WithMessage(msg) }

func NewServerError(msg string) *AppError {
	return ErrInternal.WithMessage(msg)
}

// KindOf returns the stable kind of err, or KindInternal for foreign errors.
func KindOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response. If err is an *AppError, its code and status
// are used; otherwise a generic 500 is returned and the cause is only logged.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Code:    appErr.Code,
			Kind:    appErr.Kind,
			Message: appErr.Message,
		})
		return
	}
	logger.Error().Err(err).
		Str("request_id", logger.GetRequestID(c)).
		Str("path", c.Request.URL.Path).
		Msg("unhandled error")
	c.JSON(http.StatusInternalServerError, Response{
		Code:    500,
		Kind:    KindInternal,
		Message: "internal server error",
	})
}

// Convenience error response functions

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: 400, Kind: KindBadRequest, Message: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{Code: 401, Kind: KindUnauthorized, Message: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{Code: 403, Kind: KindForbidden, Message: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{Code: 404, Kind: KindNotFound, Message: msg})
}

func ServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{Code: 500, Kind: KindInternal, Message: msg})
}
