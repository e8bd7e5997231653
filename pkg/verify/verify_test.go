package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{SessionID: "sess", CSRFToken: "tok"}

// dashboard answers listing queries from a fixed table keyed by serial.
func dashboard(t *testing.T, statuses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "tok", r.Header.Get("X-Csrftoken"))
		assert.Equal(t, "sessionid=sess; csrftoken=tok", r.Header.Get("Cookie"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "12", r.PostForm.Get("length"))
		assert.Equal(t, "false", r.PostForm.Get("search[regex]"))

		serial := r.PostForm.Get("search[value]")
		status, ok := statuses[serial]
		switch {
		case !ok:
			_, _ = fmt.Fprint(w, `{"data":[]}`)
		case status == "500":
			w.WriteHeader(http.StatusInternalServerError)
		case status == "garbage":
			_, _ = fmt.Fprint(w, `not json`)
		default:
			_, _ = fmt.Fprintf(w, `{"data":[{"composite_status_datatables_search":%q}]}`, status)
		}
	}))
}

func TestVerify(t *testing.T) {
	srv := dashboard(t, map[string]string{
		"A1": "In Compliance",
		"A2": "In Compliance - Issue Detected",
		"A3": "Overdue",
		"A4": "",
		"A5": "500",
		"A6": "garbage",
	})
	defer srv.Close()

	c := NewClient(srv.URL, WithConcurrency(2))
	report, err := c.Verify(context.Background(), []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7"}, testCreds)
	require.NoError(t, err)

	want := []Result{
		{Serial: "A1", Status: StatusPass},
		{Serial: "A2", Status: "In Compliance - Issue Detected"},
		{Serial: "A3", Status: "Overdue"},
		{Serial: "A4", Status: StatusUnknown},
		{Serial: "A5", Status: "API Error: 500"},
		{Serial: "A6", Status: report.Results[5].Status},
		{Serial: "A7", Status: StatusNotFound},
	}
	assert.Equal(t, want, report.Results)
	assert.Contains(t, report.Results[5].Status, "Error: ")
	assert.Equal(t, Summary{Total: 7, Passed: 1, Failed: 6}, report.Summary)
	assert.Equal(t, StatusPass, report.Map()["A1"])
}

func TestVerifyWithoutCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	report, err := NewClient(srv.URL).Verify(context.Background(), []string{"A1", "A2"}, Credentials{SessionID: "only"})
	require.NoError(t, err)

	for _, r := range report.Results {
		assert.Equal(t, StatusNoCredentials, r.Status)
	}
	assert.Equal(t, Summary{Total: 2, Failed: 2}, report.Summary)
	assert.Zero(t, calls.Load())
}

func TestVerifyTransportError(t *testing.T) {
	srv := dashboard(t, nil)
	srv.Close()

	report, err := NewClient(srv.URL).Verify(context.Background(), []string{"A1"}, testCreds)
	require.NoError(t, err)
	assert.Contains(t, report.Results[0].Status, "Error: ")
}

func TestVerifyCancelled(t *testing.T) {
	srv := dashboard(t, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL).Verify(ctx, []string{"A1", "A2"}, testCreds)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		_, _ = fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	serials := []string{"A1", "A2", "A3", "A4", "A5", "A6"}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = NewClient(srv.URL, WithConcurrency(2)).Verify(context.Background(), serials, testCreds)
	}()
	for i := 0; i < len(serials); i++ {
		release <- struct{}{}
	}
	<-done

	assert.LessOrEqual(t, peak.Load(), int32(2))
}
