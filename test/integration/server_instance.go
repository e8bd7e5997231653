package integration

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/endpoints"
)

// portCounter is used to allocate unique ports for each test server
var portCounter int32 = 19000

// ServerInstance represents a running Marathon server for a single scenario
type ServerInstance struct {
	Server        *server.Server
	ServerURL     string
	Port          int
	configDir     string
	serverProcess *exec.Cmd // For binary mode
	cancel        context.CancelFunc
}

// StartServer creates and starts a new Marathon server backed by the test
// database. This supports both inline and binary modes based on how the
// test suite was started.
func StartServer(tc *TestContext) (*ServerInstance, error) {
	if tc.InlineMode {
		return startInlineServerInstance(tc.DB)
	}
	return startBinaryServerInstance(tc.BinaryPath, tc.DatabaseURL)
}

// startInlineServerInstance starts an in-process server
func startInlineServerInstance(db *gorm.DB) (*ServerInstance, error) {
	port := int(atomic.AddInt32(&portCounter, 1))

	dir, err := os.MkdirTemp("", "marathon-config-*")
	if err != nil {
		return nil, err
	}
	_ = os.Setenv("MARATHON_CONFIG_PATH", dir)

	cfg, err := config.Load()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.BindAddress = "127.0.0.1"
	cfg.Port = port

	s, err := server.NewServer(cfg, db, zap.NewNop())
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	endpoints.RegisterAll(s)

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to create listener on port %d: %w", port, err)
	}

	instance := &ServerInstance{
		Server:    s,
		ServerURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:      port,
		configDir: dir,
	}

	go func() {
		_ = s.StartWithListener(listener)
	}()

	if err := waitForServer(instance.ServerURL, 10*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}
	return instance, nil
}

// startBinaryServerInstance starts a server using the marathonctl binary
func startBinaryServerInstance(binaryPath, dbURL string) (*ServerInstance, error) {
	port := int(atomic.AddInt32(&portCounter, 1))
	portStr := fmt.Sprintf("%d", port)

	dir, err := os.MkdirTemp("", "marathon-config-*")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", portStr)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+dbURL,
		"MARATHON_CONFIG_PATH="+dir,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to start binary: %w", err)
	}

	instance := &ServerInstance{
		ServerURL:     fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:          port,
		configDir:     dir,
		serverProcess: cmd,
		cancel:        cancel,
	}

	if err := waitForServer(instance.ServerURL, 30*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}
	return instance, nil
}

// Stop shuts down the server instance and removes its config directory
func (si *ServerInstance) Stop() {
	if si.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = si.Server.Shutdown(ctx)
		cancel()
	}
	if si.cancel != nil {
		si.cancel()
	}
	if si.serverProcess != nil && si.serverProcess.Process != nil {
		_ = si.serverProcess.Process.Kill()
		_ = si.serverProcess.Wait()
	}
	if si.configDir != "" {
		_ = os.RemoveAll(si.configDir)
	}
}
