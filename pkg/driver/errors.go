package driver

import (
	"errors"
	"fmt"
)

var (
	// ErrLoginFailed is the parent of all login failures.
	ErrLoginFailed = errors.New("login failed")
	// ErrInvalidCredentials means the ERP rejected the email or password.
	ErrInvalidCredentials = fmt.Errorf("%w: check credentials", ErrLoginFailed)
	// ErrTwoFactorUnsupported means the account requires a second factor,
	// which unattended runs cannot provide.
	ErrTwoFactorUnsupported = fmt.Errorf("%w: two-factor authentication is not supported", ErrLoginFailed)
	// ErrLoginBlocked means the ERP refused the login attempt outright,
	// typically after too many failures from this address.
	ErrLoginBlocked = fmt.Errorf("%w: login blocked by the ERP", ErrLoginFailed)

	// ErrTimeout means the ERP did not respond within the step timeout.
	ErrTimeout = errors.New("timed out waiting for the ERP")

	// ErrCredentialsRequired is returned when a run has no ERP login.
	ErrCredentialsRequired = errors.New("odoo credentials required")
)

// TimeoutHint is shown alongside ErrTimeout failures.
const TimeoutHint = "the ERP is responding slowly; try a smaller batch or per_item mode"

// StepError records the workflow step an order failed at.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Step.Label(), e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
