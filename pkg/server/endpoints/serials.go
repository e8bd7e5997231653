package endpoints

import (
	"net/http"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/serial"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server"
)

// DetectProductResponse is returned by /api/detect-product. Product is
// null when no pattern matches.
type DetectProductResponse struct {
	Product *string `json:"product"`
}

// RegisterSerialEndpoints registers the device catalog and serial checks
func RegisterSerialEndpoints(s *server.Server) {
	catalog := serial.DefaultCatalog()

	s.Router.HandleFunc("/api/devices", handleDevices(catalog)).Methods("GET")
	s.Router.HandleFunc("/api/detect-product", handleDetectProduct(catalog)).Methods("POST")
	s.Router.HandleFunc("/api/validate-serials", handleValidateSerials()).Methods("POST")
}

func handleDevices(catalog *serial.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"devices": catalog.Devices,
		})
	}
}

func handleDetectProduct(catalog *serial.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Serial string `json:"serial"`
		}
		if err := decodeJSON(r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var resp DetectProductResponse
		if product, ok := catalog.Detect(body.Serial); ok {
			resp.Product = &product
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handleValidateSerials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Serials serialList `json:"serials"`
		}
		if err := decodeJSON(r, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, serial.Validate(body.Serials))
	}
}
