package apperr

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
)

type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindConflict      Kind = "CONFLICT"
	KindAuthorization Kind = "FORBIDDEN"
	KindPersistence   Kind = "PERSISTENCE"
)

// Коды конфликтов, которые клиент может разобрать
const (
	CodePIDAlreadyAssigned = "PID_ALREADY_ASSIGNED"
	CodeNoItemsCreated     = "NO_ITEMS_CREATED"
	CodeItemAlreadyFinal   = "ITEM_ALREADY_FINAL"
	CodeConcurrentUpdate   = "CONCURRENT_UPDATE"
	CodeTaskNotFinished    = "TASK_NOT_FINISHED"
	CodeTaskCompleted      = "TASK_ALREADY_COMPLETED"
)

const internalMessage = "internal server error"

// Error - ошибка движка с классификацией для транспорта
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Cause возвращает исходную ошибку вместе со стеком (только для логов)
func (e *Error) Cause() error {
	return e.cause
}

// WithDetail добавляет поле в Details и возвращает ту же ошибку
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ValidationCode(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Persistence оборачивает ошибку хранилища; наружу уходит только message
func Persistence(cause error, message string) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: KindPersistence, Message: message, cause: cause}
}

// From приводит любую ошибку к *Error; неизвестные считаются ошибками хранилища
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Persistence(err, internalMessage)
}

// IsKind проверяет класс ошибки
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return stderrors.As(err, &appErr) && appErr.Kind == kind
}

// HasCode проверяет код конфликта/валидации
func HasCode(err error, code string) bool {
	var appErr *Error
	return stderrors.As(err, &appErr) && appErr.Code == code
}

func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch From(err).Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func GRPCCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	appErr := From(err)
	switch appErr.Kind {
	case KindValidation:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		if appErr.Code == CodePIDAlreadyAssigned {
			return codes.AlreadyExists
		}
		return codes.FailedPrecondition
	case KindAuthorization:
		return codes.PermissionDenied
	default:
		return codes.Internal
	}
}

// PublicMessage - текст, который безопасно отдавать клиенту
func PublicMessage(err error) string {
	appErr := From(err)
	if appErr.Message == "" {
		return internalMessage
	}
	return appErr.Message
}
