package respond

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, map[string]string{"error": message})
}

// Message отвечает телом {"message": ...} с дополнительными полями
func Message(w http.ResponseWriter, r *http.Request, code int, message string, extra map[string]interface{}) {
	body := make(map[string]interface{}, len(extra)+1)
	for k, v := range extra {
		body[k] = v
	}
	body["message"] = message
	JSON(w, r, code, body)
}

func Text(w http.ResponseWriter, r *http.Request, code int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(text))
}
