package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/batch"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/browser"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/driver"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/label"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/middleware"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
	gormstore "github.com/doodlesbykumbi/marathon-in-go/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/stream"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/verify"
)

// Verifier checks serials against the compliance dashboard.
// *verify.Client satisfies it.
type Verifier interface {
	Verify(ctx context.Context, serials []string, creds verify.Credentials) (*verify.Report, error)
}

type Server struct {
	Config   *config.MarathonConfig
	Router   *mux.Router
	DB       *gorm.DB
	Logger   *zap.Logger
	Hub      *stream.Hub
	Sessions *middleware.Sessions
	Runner   *batch.Runner
	Verifier Verifier
	Labels   *label.Generator
	Browser  *browser.Manager

	// Stores
	HistoryStore    store.HistoryStore
	StatisticsStore store.StatisticsStore
	HealthStore     store.HealthStore

	srv *http.Server
}

// NewServer wires the server components from cfg. db may be nil, in which
// case history and statistics are not recorded.
func NewServer(cfg *config.MarathonConfig, db *gorm.DB, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	labels, err := label.NewGenerator(cfg.LabelURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load label fonts: %w", err)
	}

	s := &Server{
		Config:   cfg,
		Router:   mux.NewRouter(),
		DB:       db,
		Logger:   logger,
		Hub:      stream.NewHub(stream.DefaultBuffer),
		Sessions: middleware.NewSessions(cfg.SecretKey),
		Verifier: verify.NewClientFromConfig(cfg, logger.Named("verify")),
		Labels:   labels,
		Browser:  browser.NewManager(browser.OptionsFromConfig(cfg), logger.Named("browser")),
	}

	if db != nil {
		s.HistoryStore = gormstore.NewHistoryStore(db)
		s.StatisticsStore = gormstore.NewStatisticsStore(db)
		s.HealthStore = gormstore.NewHealthStore(db)
	}

	d := driver.New(s.Browser, driver.OptionsFromConfig(cfg), logger.Named("driver"))
	s.Runner = batch.NewRunner(d, s.HistoryStore, s.StatisticsStore, s.Hub, batch.Options{
		HistoryLimit: cfg.HistoryLimit,
		Mode:         driver.Mode(cfg.RunMode),
		MaxOrderSize: cfg.MaxOrderSize,
	}, logger.Named("batch"))

	s.srv = &http.Server{
		Handler:      s.Handler(),
		Addr:         cfg.Addr(),
		WriteTimeout: cfg.RequestTimeout(),
		ReadTimeout:  15 * time.Second,
	}
	return s, nil
}

// Handler wraps the router with panic recovery, CORS, client address
// capture, session preferences and access logging.
func (s *Server) Handler() http.Handler {
	errorLog := zap.NewStdLog(s.Logger.Named("http"))

	var h http.Handler = s.Router
	if s.Sessions != nil {
		h = s.Sessions.Middleware(h)
	}
	h = middleware.ClientIP(h)
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(errorLog),
		handlers.PrintRecoveryStack(s.Config != nil && s.Config.Debug),
	)(h)
	return handlers.LoggingHandler(errorLog.Writer(), h)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithListener serves on l until Shutdown is called.
func (s *Server) StartWithListener(l net.Listener) error {
	if err := s.srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, lets the running batch finish until
// ctx is done and closes the browser.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.srv != nil {
		errs = append(errs, s.srv.Shutdown(ctx))
	}
	if s.Runner != nil {
		errs = append(errs, s.Runner.Close(ctx))
	}
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Browser != nil {
		errs = append(errs, s.Browser.Shutdown())
	}
	return errors.Join(errs...)
}
