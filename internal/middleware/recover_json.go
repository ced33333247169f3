package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/fydp-portal/internal/logger"
)

// responseWriter запоминает статус и факт записи заголовков.
type responseWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.status = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// RecoverJSON при панике в handler логирует её и отдаёт клиенту JSON 500 (если ответ ещё не отправлен).
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if err := recover(); err != nil {
				logger.Errorf("panic recovered: %s %s: %v", r.Method, r.URL.Path, err)
				if !wrap.wrote {
					wrap.ResponseWriter.Header().Set("Content-Type", "application/json; charset=utf-8")
					wrap.ResponseWriter.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(wrap.ResponseWriter).Encode(map[string]any{"success": false, "message": "internal server error"})
				}
			}
		}()
		next.ServeHTTP(wrap, r)
	})
}
