package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/CognitionIES/teamsync/internal/respond"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const unauthorizedMessage = "authorization required"

// Middleware аутентифицирует HTTP запрос и кладёт Principal в контекст
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := TokenFromRequest(r)
		if err != nil {
			respond.Message(w, http.StatusUnauthorized, unauthorizedMessage)
			return
		}

		principal, err := a.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				respond.Message(w, http.StatusUnauthorized, unauthorizedMessage)
				return
			}
			logrus.WithError(err).Error("token blacklist lookup failed")
			respond.Message(w, http.StatusInternalServerError, "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// UnaryServerInterceptor - та же проверка для gRPC по metadata authorization
func (a *Authenticator) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		var header string
		if values := md.Get("authorization"); len(values) > 0 {
			header = values[0]
		}

		token, err := ExtractBearerToken(header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, unauthorizedMessage)
		}

		principal, err := a.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return nil, status.Error(codes.Unauthenticated, unauthorizedMessage)
			}
			logrus.WithError(err).Error("token blacklist lookup failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}

		return handler(WithPrincipal(ctx, principal), req)
	}
}
