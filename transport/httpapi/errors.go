package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/acp-project/acp-go/acperr"
)

// writeError translates err into the wire error body and status mapping
// of spec.md §7.
func writeError(w http.ResponseWriter, err error) {
	e := acperr.Classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code.StatusCode())
	_ = json.NewEncoder(w).Encode(ErrorBody{Code: string(e.Code), Message: e.Message})
}

// writeParseError is used when the request body itself fails to parse,
// which spec.md §7 maps to 400 rather than invalid_input's usual 422.
func writeParseError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(ErrorBody{Code: string(acperr.InvalidInput), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRunJSON is writeJSON plus the Run-ID response header spec.md §6
// requires on every run-scoped response.
func writeRunJSON(w http.ResponseWriter, status int, runID string, v any) {
	w.Header().Set("Run-ID", runID)
	writeJSON(w, status, v)
}
