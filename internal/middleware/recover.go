package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"patient-care/internal/platform/logger"

	"github.com/getsentry/sentry-go"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Recover reemplaza chimw.Recoverer: loguea el panic con request_id y,
// si Sentry está inicializado, lo reporta.
func Recover(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("panic recovered", logger.Fields{
					"request_id": chimw.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"panic":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
				})

				if hub := sentry.CurrentHub(); hub.Client() != nil {
					hub := hub.Clone()
					hub.Scope().SetRequest(r)
					hub.Scope().SetTag("request_id", chimw.GetReqID(r.Context()))
					hub.RecoverWithContext(r.Context(), rec)
				}

				http.Error(w, "internal error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
