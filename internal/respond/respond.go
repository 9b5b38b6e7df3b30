package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/sirupsen/logrus"
)

const maxBodySize = 1 << 20 // 1MB

var (
	errEmptyBody   = errors.New("request body is empty")
	errUnknownBody = errors.New("request body contains unexpected data")
)

type errorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// DecodeJSON строго разбирает тело запроса; ошибка уже классифицирована как Validation
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperr.Validation("%s", errEmptyBody.Error())
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("%s", errEmptyBody.Error())
		}
		return apperr.Validation("invalid json: %v", err)
	}

	if decoder.More() {
		return apperr.Validation("%s", errUnknownBody.Error())
	}

	return nil
}

func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Warn("write json error")
	}
}

// Message пишет ошибку с произвольным статусом
func Message(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	JSON(w, status, errorBody{Error: message})
}

// Error переводит ошибку движка в HTTP ответ; причина ошибок хранилища только логируется
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	status := apperr.HTTPStatus(appErr)
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(appErr.Cause()).Error(appErr.Message)
	}
	JSON(w, status, errorBody{
		Error:   apperr.PublicMessage(appErr),
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}
