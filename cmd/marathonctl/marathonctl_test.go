package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/batch"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/serial"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/stream"
)

func serialCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addSerialFlags(cmd)
	return cmd
}

func TestReadSerials(t *testing.T) {
	t.Run("arguments", func(t *testing.T) {
		got, err := readSerials(serialCommand(), []string{"HEXP1", " HEXP2 "})
		require.NoError(t, err)
		assert.Equal(t, []string{"HEXP1", "HEXP2"}, got)
	})

	t.Run("file with label URLs", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "serials.txt")
		require.NoError(t, os.WriteFile(path, []byte("HEXW1\nhttps://dashboard.hexmodal.com/lights/?s=HEXG2\n\n"), 0o600))

		cmd := serialCommand()
		require.NoError(t, cmd.Flags().Set("file", path))
		got, err := readSerials(cmd, []string{"HEXP1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"HEXP1", "HEXW1", "HEXG2"}, got)
	})

	t.Run("stdin", func(t *testing.T) {
		cmd := serialCommand()
		cmd.SetIn(strings.NewReader("HEXN1\nHEXN2\n"))
		require.NoError(t, cmd.Flags().Set("file", "-"))
		got, err := readSerials(cmd, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"HEXN1", "HEXN2"}, got)
	})

	t.Run("nothing usable", func(t *testing.T) {
		_, err := readSerials(serialCommand(), []string{"x", " "})
		assert.ErrorIs(t, err, serial.ErrNoSerials)
	})
}

func TestShowConfiguration(t *testing.T) {
	t.Setenv("MARATHON_CONFIG_PATH", t.TempDir())
	t.Setenv("SECRET_KEY", "do-not-print")

	var buf bytes.Buffer
	require.NoError(t, showConfiguration(&buf, "json"))
	assert.Contains(t, buf.String(), `"attributes"`)
	assert.NotContains(t, buf.String(), "do-not-print")

	buf.Reset()
	require.NoError(t, showConfiguration(&buf, "text"))
	assert.NotContains(t, buf.String(), "do-not-print")

	assert.Error(t, showConfiguration(&buf, "yaml"))
}

func TestWaitForServer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, waitForServer(srv.URL+"/health", 5, time.Millisecond))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForServerGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := waitForServer(srv.URL, 2, time.Millisecond)
	assert.EqualError(t, err, "marathon is not ready after 2 attempts")
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, stream.StatusMessage("Step 1/10: Logging in", "info"))
	printEvent(&buf, stream.Message{Event: stream.EventMarathonComplete, Data: batch.Complete{Success: true}})

	assert.Equal(t, "[info] Step 1/10: Logging in\n[marathon_complete] success=true\n", buf.String())
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"server"}, {"run"}, {"verify"},
		{"labels", "pdf"}, {"labels", "png"},
		{"serials", "validate"}, {"serials", "detect"},
		{"stats", "show"}, {"history", "list"}, {"history", "show"},
		{"db", "migrate"}, {"db", "down"}, {"db", "status"},
		{"configuration", "show"}, {"configuration", "validate"}, {"wait"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
