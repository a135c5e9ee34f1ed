package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/models"
)

// Recover turns a handler panic into a 500 error ReturnValue
func Recover(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil || rec == http.ErrAbortHandler {
					if rec != nil {
						panic(rec)
					}
					return
				}

				logger.WithContext(r.Context()).Error("Handler panicked", fmt.Errorf("%v", rec),
					logging.Field{Key: "path", Value: r.URL.Path},
					logging.Field{Key: "stack", Value: string(debug.Stack())},
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(models.Failure("internal server error", nil))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
