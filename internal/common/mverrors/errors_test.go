package mverrors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"ErrInvalidArgument": {
			&ErrInvalidArgument{Name: "concurrency", Value: 0},
			`value 0 is invalid for field "concurrency"`,
		},
		"ErrInvalidArgument with message": {
			&ErrInvalidArgument{Name: "concurrency", Value: 0, Message: "must be positive"},
			`value 0 is invalid for field "concurrency"; must be positive`,
		},
		"ErrReadFailed unpinned": {
			&ErrReadFailed{Table: "view_test.tab", Node: -1, Cause: errors.New("timeout")},
			"failed to read view_test.tab: timeout",
		},
		"ErrReadFailed pinned": {
			&ErrReadFailed{Table: "view_test.tab_view", Node: 2, Cause: errors.New("timeout")},
			"failed to read view_test.tab_view from node #2: timeout",
		},
		"ErrConnectionFailed": {
			&ErrConnectionFailed{Address: "127.0.0.1:9042", Cause: errors.New("refused")},
			"failed to connect to 127.0.0.1:9042: refused",
		},
		"ErrKeyspaceExhausted": {
			&ErrKeyspaceExhausted{Last: 2147483647},
			"key space exhausted after key 2147483647",
		},
		"ErrNotConverged": {
			&ErrNotConverged{Passes: 3},
			"views did not converge after 3 pass(es)",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	cause := errors.New("timeout")
	err := errors.WithMessage(errors.WithStack(&ErrReadFailed{Table: "t", Node: 1, Cause: cause}), "pass 4")

	var readErr *ErrReadFailed
	assert.True(t, errors.As(err, &readErr))
	assert.Equal(t, 1, readErr.Node)
	assert.ErrorIs(t, err, cause)
}

func TestIsNotConverged(t *testing.T) {
	assert.True(t, IsNotConverged(errors.WithStack(&ErrNotConverged{Passes: 1})))
	assert.False(t, IsNotConverged(errors.New("foo")))
	assert.False(t, IsNotConverged(nil))
}
