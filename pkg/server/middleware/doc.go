// Package middleware provides HTTP middleware for the Marathon server:
// client address capture for the audit trail and cookie-backed operator
// preferences.
package middleware
