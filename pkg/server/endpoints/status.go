package endpoints

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/batch"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
)

// Version is reported by the status endpoints.
var Version = "dev"

// StatusResponse is the JSON form of the status page.
type StatusResponse struct {
	Version string                `json:"version"`
	Today   *model.DailyStatistic `json:"today"`
	Running *batch.Status         `json:"running,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Browser  bool   `json:"browser_connected"`
}

// RegisterStatusEndpoints registers the status and health endpoints
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/", handleStatus(s.Runner, s.StatisticsStore)).Methods("GET")
	s.Router.HandleFunc("/health", handleHealth(s.HealthStore, func() bool {
		return s.Browser != nil && s.Browser.IsConnected()
	})).Methods("GET")
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width">
    <title>Marathon Status</title>
  </head>
  <body>
    <h1>Status</h1>
    <p class="status-text">Your Marathon server is running!</p>
    <h2>Today</h2>
    <dl>
      <dt>Serials</dt><dd>{{.Today.Serials}}</dd>
      <dt>Batches</dt><dd>{{.Today.Batches}}</dd>
      <dt>Successful</dt><dd>{{.Today.Successes}}</dd>
      <dt>Failed</dt><dd>{{.Today.Errors}}</dd>
    </dl>
    {{with .Running}}
    <h2>Running batch</h2>
    <p>{{.ID}}: {{.Serials}} serial(s) of {{.Product}}</p>
    <p>{{.Message}}</p>
    {{end}}
    <footer>Version {{.Version}}</footer>
  </body>
</html>
`))

func handleStatus(runner *batch.Runner, stats store.StatisticsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Version: Version,
			Today:   today(stats),
		}
		if runner != nil {
			if job := runner.Current(); job != nil {
				status := job.Status()
				resp.Running = &status
			}
		}

		// Check if JSON is requested via Accept header or format query param
		accept := r.Header.Get("Accept")
		format := r.URL.Query().Get("format")
		if format == "json" || strings.Contains(accept, "application/json") {
			respondWithJSON(w, http.StatusOK, resp)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = statusPage.Execute(w, resp)
	}
}

// today returns today's statistics, zero when unavailable.
func today(stats store.StatisticsStore) *model.DailyStatistic {
	day := time.Now().Format(model.DayFormat)
	if stats == nil {
		return &model.DailyStatistic{Day: day}
	}
	stat, err := stats.Today(day)
	if err != nil {
		return &model.DailyStatistic{Day: day}
	}
	return stat
}

func handleHealth(healthStore store.HealthStore, browserConnected func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Database: "disabled", Browser: browserConnected()}
		if healthStore != nil {
			resp.Database = "ok"
			if err := healthStore.CheckConnectivity(); err != nil {
				resp.Status = "error"
				resp.Database = "database connectivity check failed"
				respondWithJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}
