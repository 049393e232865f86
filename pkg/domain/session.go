package domain

import "time"

// TimeoutUnit is the unit of a session idle timeout.
type TimeoutUnit string

const (
	TimeoutMinutes TimeoutUnit = "minutes"
	TimeoutHours   TimeoutUnit = "hours"
	TimeoutDays    TimeoutUnit = "days"
)

// Duration converts a timeout value in this unit to a time.Duration.
// Unknown units fall back to minutes.
func (u TimeoutUnit) Duration(value int) time.Duration {
	switch u {
	case TimeoutHours:
		return time.Duration(value) * time.Hour
	case TimeoutDays:
		return time.Duration(value) * 24 * time.Hour
	default:
		return time.Duration(value) * time.Minute
	}
}

// Session is the sticky-routing record for one contact on one flow. It lives
// in the session store, keyed by SessionKey, and is not part of the flow
// document.
type Session struct {
	ContactID      string      `json:"contactId"`
	FlowID         string      `json:"flowId"`
	ChannelType    string      `json:"channelType"`
	LastActivityAt time.Time   `json:"lastActivityAt"`
	ExpiresAt      time.Time   `json:"expiresAt"`
	TimeoutValue   int         `json:"timeoutValue"`
	TimeoutUnit    TimeoutUnit `json:"timeoutUnit"`
}

// SessionKey builds the store key for a (contact, flow) pair.
func SessionKey(contactID, flowID string) string {
	return contactID + ":" + flowID
}

// Key returns the store key for this session.
func (s *Session) Key() string { return SessionKey(s.ContactID, s.FlowID) }

// Expired reports whether the session is past its idle deadline at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Refresh extends the idle deadline from now using the stored timeout.
func (s *Session) Refresh(now time.Time) {
	s.LastActivityAt = now
	s.ExpiresAt = now.Add(s.TimeoutUnit.Duration(s.TimeoutValue))
}
