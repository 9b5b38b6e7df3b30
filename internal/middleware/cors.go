package middleware

import (
	"net/http"
	"strings"
)

type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposeHeaders    []string
	AllowCredentials bool
	// Routes - если задан и AllowedMethods пуст, preflight отвечает методами, зарегистрированными для пути
	Routes RouteMatcher
}

// RouteMatcher - часть http.ServeMux, по которой находится обработчик запроса
type RouteMatcher interface {
	Handler(r *http.Request) (h http.Handler, pattern string)
}

var probeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// NewCORS отвечает на preflight сам и проставляет заголовки остальным запросам.
// Пустой список origin означает "разрешены все".
func NewCORS(opts CORSOptions) func(http.Handler) http.Handler {
	origins := make(map[string]struct{})
	for _, origin := range opts.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins[trimmed] = struct{}{}
		}
	}

	fromRoutes := opts.Routes != nil && len(opts.AllowedMethods) == 0
	allowedMethods := strings.Join(orDefault(opts.AllowedMethods, []string{"GET", "POST", "PATCH", "OPTIONS"}), ", ")
	allowedHeaders := strings.Join(orDefault(opts.AllowedHeaders, []string{"Authorization", "Content-Type"}), ", ")
	exposeHeaders := strings.Join(opts.ExposeHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowOrigin(origin, origins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				if opts.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			w.Header().Set("Vary", "Origin")
			if exposeHeaders != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposeHeaders)
			}

			if r.Method == http.MethodOptions {
				methods := allowedMethods
				if fromRoutes {
					methods = strings.Join(append(routeMethods(opts.Routes, r), http.MethodOptions), ", ")
				}
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// routeMethods перебирает методы и оставляет те, для которых у пути есть маршрут
func routeMethods(routes RouteMatcher, r *http.Request) []string {
	var methods []string
	for _, method := range probeMethods {
		candidate := r.Clone(r.Context())
		candidate.Method = method
		if _, pattern := routes.Handler(candidate); pattern != "" {
			methods = append(methods, method)
		}
	}
	return methods
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

func allowOrigin(origin string, allowed map[string]struct{}) bool {
	if origin == "" {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}
