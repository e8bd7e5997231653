// Command marathonctl runs the Marathon production automation server.
//
// Marathon turns a list of device serials into completed Odoo production
// orders by driving the ERP web UI in a headless browser. Progress is
// streamed to operators over a WebSocket, finished batches are kept in
// PostgreSQL and serials can be checked against the compliance dashboard.
//
// # Quick Start
//
//	# Apply the schema
//	marathonctl db migrate
//
//	# Start the server
//	marathonctl server
//
//	# Run a batch without the server
//	marathonctl run --email op@example.com --password ... HEXP1 HEXP2
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string for history and statistics
//   - SECRET_KEY: Session cookie signing key
//   - PORT: Server port (default: 5000)
//   - ODOO_LOGIN_URL, ODOO_START_URL: ERP entry points
//   - COMPLIANCE_API_URL: Compliance dashboard search endpoint
//   - MARATHON_CONFIG_PATH: Directory holding marathon.yml
//   - MARATHON_AUDIT_ENABLED: Set to false to disable the audit trail
package main
