package endpoints

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/label"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server"
)

// Label is one rendered label preview.
type Label struct {
	Serial string `json:"serial"`
	URL    string `json:"url"`
	// Image is a base64 encoded PNG.
	Image string `json:"image"`
}

// RegisterLabelEndpoints registers the QR label endpoints
func RegisterLabelEndpoints(s *server.Server) {
	s.Router.HandleFunc("/api/generate-labels", handleGenerateLabels(s.Labels)).Methods("POST")
	s.Router.HandleFunc("/api/download-labels-pdf", handleDownloadLabelsPDF(s.Labels, s.Logger)).Methods("POST")
}

func handleGenerateLabels(labels *label.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Serials serialList `json:"serials"`
		}
		if err := decodeJSON(r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		out := make([]Label, 0, len(body.Serials))
		for _, s := range body.Serials {
			img, err := labels.Base64(s)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			out = append(out, Label{Serial: s, URL: labels.URL(s), Image: img})
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"labels": out})
	}
}

func handleDownloadLabelsPDF(labels *label.Generator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Serials serialList `json:"serials"`
		}
		if err := decodeJSON(r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var buf bytes.Buffer
		err := labels.PDF(&buf, body.Serials)
		if errors.Is(err, label.ErrNoSerials) {
			respondWithError(w, http.StatusBadRequest, "No serials provided")
			return
		}
		if err != nil {
			if logger != nil {
				logger.Error("failed to render label sheet", zap.Int("serials", len(body.Serials)), zap.Error(err))
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		name := fmt.Sprintf("labels_%s.pdf", time.Now().Format("20060102_150405"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}
