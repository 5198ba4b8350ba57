package httpapi

import (
	"encoding/json"
	"net/http"
)

// toJSON writes v as the response body with the given status. Once the header
// has gone out an encode failure can only be dropped.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
