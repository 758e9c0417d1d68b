// AngelaMos | 2026
// errors.go

package server

import (
	"net/http"

	"github.com/iamisam/codeplay-backend/internal/core"
)

func writeNotFound(w http.ResponseWriter) {
	core.Error(w, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	core.Error(
		w,
		http.StatusMethodNotAllowed,
		"METHOD_NOT_ALLOWED",
		"method not allowed",
	)
}
