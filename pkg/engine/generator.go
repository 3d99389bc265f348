package engine

import (
	"math"
	"math/rand/v2"

	"github.com/aretw0/atsim/pkg/domain"
)

// interval samples the number of ticks until an irregular event is due again.
// The generator is seeded by usage and tick so replays are identical.
func interval(g *domain.Generator, usageID, tick int64) int64 {
	rng := rand.New(rand.NewPCG(uint64(usageID), uint64(tick)))

	x := g.Value
	switch g.Type {
	case domain.GeneratorUniform:
		x = g.Value - g.Dispersion + rng.Float64()*2*g.Dispersion
	case domain.GeneratorNormal:
		x = g.Value + g.Dispersion*rng.NormFloat64()
	case domain.GeneratorExponential:
		x = rng.ExpFloat64() * g.Value
	}

	if math.IsNaN(x) || x < 1 {
		return 1
	}
	if x > math.MaxInt32 {
		return math.MaxInt32
	}
	return int64(math.Ceil(x))
}
