package response

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteStatus writes {"status": message} with the given code.
func WriteStatus(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"status": message})
}
