// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classroom

import "errors"

// Precondition failures. Lifecycle operations wrap them in a
// *PreconditionError naming the resource or handle involved and
// return before mutating anything.
var (
	ErrTeamAlreadyExists       = errors.New("team already exists")
	ErrRepositoryAlreadyExists = errors.New("repository already exists")
	ErrInvalidCommandFormat    = errors.New("invalid command format")
	ErrAdministratorNotFound   = errors.New("administrator not found")
	ErrAttendeeNotFound        = errors.New("attendee not found")
	ErrSelfRemovalForbidden    = errors.New("cannot remove yourself")
	ErrAdministratorHandle     = errors.New("handle is an administrator, use remove-admin")
	ErrUnauthorized            = errors.New("unauthorized")
)

// PreconditionError is a user-facing refusal to run an operation.
type PreconditionError struct {
	Kind    error
	Subject string
}

// Precondition returns a *PreconditionError of kind about subject.
func Precondition(kind error, subject string) error {
	return &PreconditionError{Kind: kind, Subject: subject}
}

func (err *PreconditionError) Error() string {
	if err.Subject == "" {
		return err.Kind.Error()
	}
	return err.Kind.Error() + ": " + err.Subject
}

func (err *PreconditionError) Unwrap() error { return err.Kind }

// IsPrecondition reports whether err is a precondition failure.
func IsPrecondition(err error) bool {
	var preconditionError *PreconditionError
	return errors.As(err, &preconditionError)
}
