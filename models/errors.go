package models

import "errors"

var (
	ErrInvalidParticipants = errors.New("a conversation needs two distinct participants")
	ErrInvalidContent      = errors.New("message content must be between 1 and 2000 characters")
	ErrInvalidStatus       = errors.New("status must be active or archived")
	ErrNotAParticipant     = errors.New("user is not a participant of this conversation")
	ErrForbidden           = errors.New("only the sender or an administrator may delete this message")
	ErrNotFound            = errors.New("record not found")
	ErrTransientIO         = errors.New("temporary storage or network failure")
)

// errorCodes are the stable identifiers sent to API clients.
var errorCodes = []struct {
	code string
	err  error
}{
	{"invalid_participants", ErrInvalidParticipants},
	{"invalid_content", ErrInvalidContent},
	{"invalid_status", ErrInvalidStatus},
	{"not_a_participant", ErrNotAParticipant},
	{"forbidden", ErrForbidden},
	{"not_found", ErrNotFound},
	{"transient_io", ErrTransientIO},
}

// ErrorCode returns the API code for err, or "" when err is outside the taxonomy.
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ""
}

// ErrorForCode is the inverse of ErrorCode.
func ErrorForCode(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}
