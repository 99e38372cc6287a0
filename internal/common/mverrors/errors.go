// Package mverrors contains the error types shared by the checker's components.
// Callers wrap them with errors.WithStack at the point of creation and recover them with errors.As,
// which looks through the whole chain rather than just the topmost error.
//
// If multiple errors occur in some function (e.g., if several nodes can't be reached), that
// function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package mverrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "settleDelay"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	} else {
		return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
	}
}

// ErrConnectionFailed is returned when a session to a cluster member can't be established.
type ErrConnectionFailed struct {
	Address string
	Cause   error
}

func (err *ErrConnectionFailed) Error() string {
	return fmt.Sprintf("failed to connect to %s: %s", err.Address, err.Cause)
}

func (err *ErrConnectionFailed) Unwrap() error {
	return err.Cause
}

// ErrReadFailed is returned when a full table read fails.
// Node is -1 for reads that are not pinned to a single node.
type ErrReadFailed struct {
	Table string
	Node  int
	Cause error
}

func (err *ErrReadFailed) Error() string {
	if err.Node < 0 {
		return fmt.Sprintf("failed to read %s: %s", err.Table, err.Cause)
	}
	return fmt.Sprintf("failed to read %s from node #%d: %s", err.Table, err.Node, err.Cause)
}

func (err *ErrReadFailed) Unwrap() error {
	return err.Cause
}

// ErrKeyspaceExhausted is returned once the key generator has handed out every representable key.
type ErrKeyspaceExhausted struct {
	Last int64
}

func (err *ErrKeyspaceExhausted) Error() string {
	return fmt.Sprintf("key space exhausted after key %d", err.Last)
}

// ErrNotConverged is returned by a bounded verification run that never observed every node matching the base table.
type ErrNotConverged struct {
	Passes int
}

func (err *ErrNotConverged) Error() string {
	return fmt.Sprintf("views did not converge after %d pass(es)", err.Passes)
}

// IsNotConverged reports whether err, or any error in its chain, is an ErrNotConverged.
func IsNotConverged(err error) bool {
	var e *ErrNotConverged
	return errors.As(err, &e)
}
