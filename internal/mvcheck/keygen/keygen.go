// Package keygen hands out row keys that are never repeated within a run.
package keygen

import (
	"math"

	"github.com/pkg/errors"

	"github.com/armadaproject/mvcheck/internal/common/mverrors"
	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
)

// KeyGenerator produces rows with strictly increasing keys. The n-th row is (n, n, n).
//
// A KeyGenerator is not safe for concurrent use. It is owned by a single dispatch loop, which is
// the only place keys are taken from.
type KeyGenerator struct {
	next int64
}

// New returns a generator whose first row uses start.
func New(start int32) *KeyGenerator {
	return &KeyGenerator{next: int64(start)}
}

// Next returns the next row. Once the int32 range has been used up it returns ErrKeyspaceExhausted
// rather than wrapping around and overwriting earlier rows.
func (g *KeyGenerator) Next() (model.Row, error) {
	if g.next > math.MaxInt32 {
		return model.Row{}, errors.WithStack(&mverrors.ErrKeyspaceExhausted{Last: g.next - 1})
	}
	v := int32(g.next)
	g.next++
	return model.Row{P: v, C: v, R: v}, nil
}
