package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/serial"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// serialList accepts serials either as raw operator text, one per line, or
// as a JSON array.
type serialList []string

func (l *serialList) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*l = serial.Clean(text)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("serials must be text or a list of strings")
	}
	cleaned := make([]string, 0, len(list))
	for _, s := range list {
		cleaned = append(cleaned, serial.Clean(s)...)
	}
	*l = cleaned
	return nil
}
