package service

import "errors"

var (
	// ErrUnknownMember is returned when an edit names nobody on the team.
	ErrUnknownMember = errors.New("unknown team member")
	// ErrNotSignedIn is returned for commits before a session exists.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNotStarted is returned when the service has not been started.
	ErrNotStarted = errors.New("service not started")
)
