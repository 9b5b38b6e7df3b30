package rpc

import (
	"encoding/json"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// CodecName - content-subtype, под которым сервисы принимают JSON сообщения.
// Клиент выбирает его через grpc.CallContentSubtype(CodecName).
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

// Error переводит ошибку движка в gRPC status; причина внутренних ошибок только логируется
func Error(method string, err error) error {
	if err == nil {
		return nil
	}
	appErr := apperr.From(err)
	code := apperr.GRPCCode(appErr)
	if code == codes.Internal {
		logrus.WithField("method", method).WithError(appErr.Cause()).Error(appErr.Message)
	}
	msg := apperr.PublicMessage(appErr)
	if appErr.Code != "" {
		msg = appErr.Code + ": " + msg
	}
	return status.Error(code, msg)
}
