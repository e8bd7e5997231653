// Package audit provides audit logging for Marathon operations.
//
// Records are written in RFC5424 syslog format to stdout and, when
// AUDIT_DATABASE_URL is set, persisted to the messages table.
//
// # Event Types
//
//   - BatchEvent: a production batch started or completed
//   - LoginEvent: an ERP login made with an operator's credentials
//   - VerifyEvent: a compliance verification run
//
// # Usage
//
//	audit.Log(audit.BatchEvent{BatchID: id, Phase: audit.BatchStarted, Serials: 12})
//
// Set MARATHON_AUDIT_ENABLED=false to disable audit logging.
package audit
