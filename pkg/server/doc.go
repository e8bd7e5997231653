// Package server provides the HTTP server of the Marathon service.
//
// # Server Setup
//
//	srv, err := server.NewServer(cfg, db, logger)
//	if err != nil {
//	    return err
//	}
//	endpoints.RegisterAll(srv)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
//
// # Components
//
// The Server struct holds:
//
//   - Router: HTTP request router
//   - Hub: progress events pushed to WebSocket clients
//   - Runner: the single in-flight production batch
//   - Verifier: compliance dashboard client
//   - Labels: QR label and PDF sheet generator
//   - Browser: headless browser the batch driver works through
//   - HistoryStore, StatisticsStore, HealthStore: persistence
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//   - / and /health - status
//   - /api/devices, /api/detect-product, /api/validate-serials - serials
//   - /api/generate-labels, /api/download-labels-pdf - labels
//   - /api/marathon, /api/verify, /api/preferences - production runs
//   - /api/stats, /api/history - statistics and history
//   - /ws - progress WebSocket
package server
