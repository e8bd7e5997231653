package audit

import (
	"fmt"
	"strconv"
)

// Batch phases
const (
	BatchStarted  = "start"
	BatchFinished = "complete"
)

// BatchEvent represents the start or the completion of a production batch
type BatchEvent struct {
	BatchID   string
	Phase     string
	Operator  string
	ClientIP  string
	Product   string
	Mode      string
	Serials   int
	Succeeded int
	Failed    int
	Success   bool
	// ErrorMessage is the batch-level failure, if any
	ErrorMessage string
}

func (e BatchEvent) MessageID() string {
	return "batch"
}

func (e BatchEvent) Message() string {
	if e.Phase == BatchStarted {
		return fmt.Sprintf("%s started batch %s: %d serial(s) of %s", e.operator(), e.BatchID, e.Serials, e.Product)
	}
	if e.Success {
		return fmt.Sprintf("batch %s completed: %d of %d serial(s) produced", e.BatchID, e.Succeeded, e.Serials)
	}
	msg := fmt.Sprintf("batch %s failed: %d of %d serial(s) produced", e.BatchID, e.Succeeded, e.Serials)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e BatchEvent) operator() string {
	if e.Operator == "" {
		return "unknown operator"
	}
	return e.Operator
}

func (e BatchEvent) Severity() Severity {
	if e.Phase == BatchStarted || e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e BatchEvent) Facility() int {
	return FacilityUser
}

func (e BatchEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDBatch: {
			"id":      e.BatchID,
			"product": e.Product,
			"serials": strconv.Itoa(e.Serials),
		},
		SDIDAction: {
			"operation": e.Phase,
		},
	}
	if e.Mode != "" {
		sd[SDIDBatch]["mode"] = e.Mode
	}
	if e.Phase == BatchFinished {
		sd[SDIDBatch]["succeeded"] = strconv.Itoa(e.Succeeded)
		sd[SDIDBatch]["failed"] = strconv.Itoa(e.Failed)
		sd[SDIDAction]["result"] = result(e.Success)
	}
	if e.Operator != "" {
		sd[SDIDOperator] = map[string]string{"email": e.Operator}
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}

// LoginEvent represents an ERP login attempt made on behalf of an operator
type LoginEvent struct {
	BatchID      string
	Operator     string
	Success      bool
	ErrorMessage string
}

func (e LoginEvent) MessageID() string {
	return "erp-login"
}

func (e LoginEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s logged in to the ERP", e.Operator)
	}
	msg := fmt.Sprintf("%s failed to log in to the ERP", e.Operator)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e LoginEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e LoginEvent) Facility() int {
	return FacilityAuthPriv
}

func (e LoginEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDOperator: {
			"email": e.Operator,
		},
		SDIDBatch: {
			"id": e.BatchID,
		},
		SDIDAction: {
			"operation": "login",
			"result":    result(e.Success),
		},
	}
}

// VerifyEvent represents a compliance verification run
type VerifyEvent struct {
	ClientIP     string
	Serials      int
	Passed       int
	Failed       int
	Credentials  bool
	ErrorMessage string
}

func (e VerifyEvent) MessageID() string {
	return "verify"
}

func (e VerifyEvent) Message() string {
	if e.ErrorMessage != "" {
		return fmt.Sprintf("compliance verification of %d serial(s) failed: %s", e.Serials, e.ErrorMessage)
	}
	return fmt.Sprintf("compliance verification of %d serial(s): %d passed, %d failed", e.Serials, e.Passed, e.Failed)
}

func (e VerifyEvent) Severity() Severity {
	if e.ErrorMessage != "" {
		return SeverityError
	}
	if e.Failed > 0 {
		return SeverityNotice
	}
	return SeverityInfo
}

func (e VerifyEvent) Facility() int {
	return FacilityUser
}

func (e VerifyEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDVerify: {
			"serials":     strconv.Itoa(e.Serials),
			"passed":      strconv.Itoa(e.Passed),
			"failed":      strconv.Itoa(e.Failed),
			"credentials": strconv.FormatBool(e.Credentials),
		},
		SDIDAction: {
			"operation": "verify",
		},
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
