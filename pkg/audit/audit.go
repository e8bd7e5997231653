package audit

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// SDID constants for structured data IDs (RFC5424)
// 32473 is the documentation enterprise number of RFC5612.
const (
	PEN          = 32473
	SDIDOperator = "operator@32473"
	SDIDBatch    = "batch@32473"
	SDIDAction   = "action@32473"
	SDIDClient   = "client@32473"
	SDIDVerify   = "verify@32473"
)

// AppName is the APP-NAME of every audit record.
const AppName = "marathon"

// Syslog facility constants
const (
	FacilityUser     = 1  // LOG_USER - user-level messages
	FacilityAuthPriv = 10 // LOG_AUTHPRIV - security/authorization messages (private)
)

// Severity levels matching syslog (RFC5424)
type Severity int

const (
	SeverityEmergency Severity = iota // 0
	SeverityAlert                     // 1
	SeverityCritical                  // 2
	SeverityError                     // 3
	SeverityWarning                   // 4
	SeverityNotice                    // 5
	SeverityInfo                      // 6
	SeverityDebug                     // 7
)

// Event represents an audit event
type Event interface {
	MessageID() string
	Message() string
	Severity() Severity
	Facility() int
	StructuredData() map[string]map[string]string
}

// Logger writes audit records in RFC5424 syslog format. It is safe for
// concurrent use.
type Logger struct {
	mu       sync.Mutex
	writer   io.Writer
	hostname string
	appName  string
	pid      int
}

// NewLogger creates a logger writing to stdout.
func NewLogger() *Logger {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "-"
	}
	return &Logger{
		writer:   os.Stdout,
		hostname: hostname,
		appName:  AppName,
		pid:      os.Getpid(),
	}
}

// SetWriter sets the output writer for the logger
func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	l.writer = w
	l.mu.Unlock()
}

// Log writes one record:
//
//	<PRI>1 TIMESTAMP HOSTNAME APP-NAME PROCID MSGID SD MSG
func (l *Logger) Log(event Event) {
	sd := formatStructuredData(event.StructuredData())
	if sd == "" {
		sd = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<%d>1 %s %s %s %d %s %s %s\n",
		event.Facility()*8+int(event.Severity()),
		time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		l.hostname,
		l.appName,
		l.pid,
		event.MessageID(),
		sd,
		event.Message(),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.writer, b.String())
}

// formatStructuredData renders [sdid key="value" ...] elements with SDIDs
// and keys sorted.
func formatStructuredData(sd map[string]map[string]string) string {
	var b strings.Builder
	for _, sdid := range sortedKeys(sd) {
		b.WriteString("[" + sdid)
		params := sd[sdid]
		for _, key := range sortedKeys(params) {
			b.WriteString(" " + key + "=" + escapeSDValue(params[key]))
		}
		b.WriteString("]")
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var sdEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `]`, `\]`)

// escapeSDValue quotes a PARAM-VALUE (RFC5424 section 6.3.3).
func escapeSDValue(value string) string {
	return `"` + sdEscaper.Replace(value) + `"`
}

// Default logger instance
var DefaultLogger = NewLogger()

// Default store for database persistence (nil if AUDIT_DATABASE_URL not set)
var DefaultStore *Store

// Audit enabled state - defaults to true
// Can be disabled via MARATHON_AUDIT_ENABLED=false
var (
	auditEnabled     = true
	auditEnabledOnce sync.Once
	storeInitOnce    sync.Once
)

// IsEnabled returns whether audit logging is enabled
func IsEnabled() bool {
	auditEnabledOnce.Do(func() {
		if env := os.Getenv("MARATHON_AUDIT_ENABLED"); env != "" {
			auditEnabled = env != "false" && env != "0" && env != "no"
		}
	})
	return auditEnabled
}

// SetEnabled allows programmatic control of audit logging
// Note: This should be called before any Log calls for consistent behavior
func SetEnabled(enabled bool) {
	auditEnabled = enabled
}

// Log writes an event to the default logger and store (if audit is enabled)
func Log(event Event) {
	if !IsEnabled() {
		return
	}
	DefaultLogger.Log(event)

	// Initialize store on first use
	storeInitOnce.Do(func() {
		var err error
		DefaultStore, err = NewStore()
		if err != nil {
			// Log error but don't fail - audit DB is optional
			fmt.Fprintf(os.Stderr, "audit: failed to connect to audit database: %v\n", err)
		}
	})

	// Persist to database if store is available
	if DefaultStore != nil {
		if err := DefaultStore.Save(event); err != nil {
			fmt.Fprintf(os.Stderr, "audit: failed to save event: %v\n", err)
		}
	}
}
