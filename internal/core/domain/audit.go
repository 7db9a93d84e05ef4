package domain

import "time"

type AuthEventType string

const (
	EventCustomerLogin       AuthEventType = "customer_login"
	EventCustomerLoginFailed AuthEventType = "customer_login_failed"
	EventCustomerRegistered  AuthEventType = "customer_registered"
	EventAdminLogin          AuthEventType = "admin_login"
	EventAdminLoginFailed    AuthEventType = "admin_login_failed"
	EventAdminRegistered     AuthEventType = "admin_registered"
	EventSessionRefreshed    AuthEventType = "session_refreshed"
	EventProfileUpdated      AuthEventType = "profile_updated"
)

// AuthEvent is one entry of the authentication audit trail. Subject is the
// email or username the event concerns; PrincipalID is empty when the
// principal could not be resolved (failed logins).
type AuthEvent struct {
	Type          AuthEventType
	PrincipalKind PrincipalKind
	PrincipalID   string
	Subject       string
	OccurredAt    time.Time
}
