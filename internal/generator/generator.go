// Package generator picks multiplication problems from a factor range.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/sprint/internal/model"
)

// Used is the set of problem keys already issued in the current cycle.
type Used map[string]struct{}

// Reset empties the set in place.
func (u Used) Reset() {
	for k := range u {
		delete(u, k)
	}
}

// Has reports whether the problem was issued in this cycle.
func (u Used) Has(p model.Problem) bool {
	_, ok := u[p.Key()]
	return ok
}

// Generator produces random problems.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a Generator with a fixed seed.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Next returns the next problem for the settings. With NoDuplicates set it
// draws from the pairs not yet in used and records the pick; once every pair
// was issued, used is cleared and the draw starts over.
func (g *Generator) Next(s model.Settings, used Used) (model.Problem, error) {
	if s.MinFactor > s.MaxFactor {
		return model.Problem{}, &model.ConfigurationError{Field: "factor range", Reason: "min factor is greater than max factor"}
	}
	if !s.NoDuplicates {
		return model.Problem{
			A: g.intIn(s.MinFactor, s.MaxFactor),
			B: g.intIn(s.MinFactor, s.MaxFactor),
		}, nil
	}

	remaining := Remaining(s, used)
	if len(remaining) == 0 {
		used.Reset()
		remaining = Remaining(s, used)
	}
	pick := remaining[g.rnd.Intn(len(remaining))]
	used[pick.Key()] = struct{}{}
	return pick, nil
}

// Candidates enumerates every ordered pair in the factor range.
func Candidates(s model.Settings) []model.Problem {
	if s.MinFactor > s.MaxFactor {
		return nil
	}
	out := make([]model.Problem, 0, s.PoolSize())
	for i := s.MinFactor; i <= s.MaxFactor; i++ {
		for j := s.MinFactor; j <= s.MaxFactor; j++ {
			out = append(out, model.Problem{A: i, B: j})
		}
	}
	return out
}

// Remaining returns the candidates not present in used.
func Remaining(s model.Settings, used Used) []model.Problem {
	all := Candidates(s)
	out := all[:0]
	for _, p := range all {
		if used.Has(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (g *Generator) intIn(minVal, maxVal int) int {
	return minVal + g.rnd.Intn(maxVal-minVal+1)
}
