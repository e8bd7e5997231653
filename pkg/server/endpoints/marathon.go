package endpoints

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/audit"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/batch"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/driver"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/serial"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/middleware"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/verify"
)

// MarathonRequest starts a production batch.
type MarathonRequest struct {
	Serials      serialList `json:"serials"`
	Product      string     `json:"product"`
	Email        string     `json:"odoo_email"`
	Password     string     `json:"odoo_password"`
	Mode         string     `json:"mode"`
	MaxOrderSize int        `json:"max_order_size"`
}

// VerifyRequest checks serials against the compliance dashboard.
type VerifyRequest struct {
	Serials   serialList `json:"serials"`
	SessionID string     `json:"session_cookie"`
	CSRFToken string     `json:"csrf_token"`
}

// VerifyResponse mirrors the verify_complete event payload.
type VerifyResponse struct {
	Results map[string]string `json:"results"`
	Ordered []verify.Result   `json:"ordered"`
	Summary verify.Summary    `json:"summary"`
	Error   string            `json:"error,omitempty"`
}

// errNoSerials is the verify error for empty input.
var errNoSerials = errors.New("no serials")

// RegisterMarathonEndpoints registers the batch and verification endpoints
func RegisterMarathonEndpoints(s *server.Server) {
	s.Router.HandleFunc("/api/marathon", handleStartMarathon(s.Runner, s.Sessions)).Methods("POST")
	s.Router.HandleFunc("/api/marathon", handleCurrentMarathon(s.Runner)).Methods("GET")
	s.Router.HandleFunc("/api/marathon", handleCancelMarathon(s.Runner)).Methods("DELETE")
	s.Router.HandleFunc("/api/verify", handleVerify(s.Verifier)).Methods("POST")
	s.Router.HandleFunc("/api/preferences", handlePreferences()).Methods("GET")
}

// startMarathon validates req and starts it on runner.
func startMarathon(ctx context.Context, runner *batch.Runner, req MarathonRequest) (*batch.Job, error) {
	var mode driver.Mode
	if strings.TrimSpace(req.Mode) != "" {
		m, err := driver.ParseMode(req.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	return runner.Start(ctx, batch.Request{
		Request: driver.Request{
			Product: strings.TrimSpace(req.Product),
			Serials: req.Serials,
			Credentials: driver.Credentials{
				Email:    strings.TrimSpace(req.Email),
				Password: req.Password,
			},
			Mode:         mode,
			MaxOrderSize: req.MaxOrderSize,
		},
		ClientIP: middleware.ClientIPFrom(ctx),
	})
}

// startErrorMessage is the operator-facing text of a refused start.
func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, serial.ErrNoSerials):
		return "No valid serials provided"
	case errors.Is(err, serial.ErrProductUnknown):
		return "Could not detect product - please select manually"
	case errors.Is(err, driver.ErrCredentialsRequired):
		return "Odoo credentials required"
	case errors.Is(err, batch.ErrBusy):
		return "A marathon is already running"
	}
	return err.Error()
}

func startErrorCode(err error) int {
	switch {
	case errors.Is(err, batch.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, batch.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func handleStartMarathon(runner *batch.Runner, sessions *middleware.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MarathonRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		job, err := startMarathon(r.Context(), runner, req)
		if err != nil {
			respondWithError(w, startErrorCode(err), startErrorMessage(err))
			return
		}

		if sessions != nil {
			_ = sessions.Save(w, r, middleware.Preferences{
				Email:   strings.TrimSpace(req.Email),
				Product: strings.TrimSpace(req.Product),
				RunMode: string(job.Mode),
			})
		}
		respondWithJSON(w, http.StatusAccepted, job.Status())
	}
}

func handleCurrentMarathon(runner *batch.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := runner.Current()
		if job == nil {
			respondWithJSON(w, http.StatusOK, map[string]interface{}{"running": false})
			return
		}
		respondWithJSON(w, http.StatusOK, job.Status())
	}
}

func handleCancelMarathon(runner *batch.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := runner.Current()
		if job == nil {
			respondWithError(w, http.StatusNotFound, "No marathon is running")
			return
		}
		job.Cancel()
		w.WriteHeader(http.StatusNoContent)
	}
}

// runVerify verifies req and records it in the audit trail.
func runVerify(ctx context.Context, verifier server.Verifier, req VerifyRequest) (*VerifyResponse, error) {
	if len(req.Serials) == 0 {
		return &VerifyResponse{Results: map[string]string{}, Ordered: []verify.Result{}, Error: "No serials"}, errNoSerials
	}

	creds := verify.Credentials{SessionID: strings.TrimSpace(req.SessionID), CSRFToken: strings.TrimSpace(req.CSRFToken)}
	report, err := verifier.Verify(ctx, req.Serials, creds)
	event := audit.VerifyEvent{
		ClientIP:    middleware.ClientIPFrom(ctx),
		Serials:     len(req.Serials),
		Credentials: !creds.Empty(),
	}
	if err != nil {
		event.ErrorMessage = err.Error()
		audit.Log(event)
		return nil, err
	}
	event.Passed, event.Failed = report.Summary.Passed, report.Summary.Failed
	audit.Log(event)

	return &VerifyResponse{
		Results: report.Map(),
		Ordered: report.Results,
		Summary: report.Summary,
	}, nil
}

func handleVerify(verifier server.Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		resp, err := runVerify(r.Context(), verifier, req)
		if errors.Is(err, errNoSerials) {
			respondWithJSON(w, http.StatusBadRequest, resp)
			return
		}
		if err != nil {
			respondWithError(w, http.StatusGatewayTimeout, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handlePreferences() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, middleware.PreferencesFrom(r.Context()))
	}
}
