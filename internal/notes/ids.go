package notes

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/sqids/sqids-go"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// idGenerator produces application ids of the form note_<unix ms>_<suffix>.
// The suffix encodes a process-local sequence and a random salt so ids
// minted in the same millisecond still differ.
type idGenerator struct {
	enc *sqids.Sqids
	seq atomic.Uint64
}

func newIDGenerator() (*idGenerator, error) {
	enc, err := sqids.New(sqids.Options{Alphabet: idAlphabet, MinLength: 9})
	if err != nil {
		return nil, err
	}
	return &idGenerator{enc: enc}, nil
}

func (g *idGenerator) next(now time.Time) (string, error) {
	suffix, err := g.enc.Encode([]uint64{g.seq.Add(1), rand.Uint64N(1 << 32)})
	if err != nil {
		return "", fmt.Errorf("notes: encode id: %w", err)
	}
	return fmt.Sprintf("note_%d_%s", now.UnixMilli(), suffix), nil
}
