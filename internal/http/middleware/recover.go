package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/wolfman30/studyvisa-ai-platform/internal/http/respond"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// ErrorRecovery turns a panic escaping a dashboard handler into a 500 whose
// message carries the panic value.
func ErrorRecovery(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
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
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				logger.Error("unhandled panic",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
					"stack", string(debug.Stack()),
				)
				respond.InternalError(w, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
