package components

import (
	"math/rand/v2"

	"github.com/pthm-cable/ecogrid/config"
)

// Traits are the heritable physical properties of an agent.
type Traits struct {
	Size  float64
	Speed float64
	Sense float64
}

// Clamp returns t with every trait limited to [TraitMin, TraitMax].
func (t Traits) Clamp() Traits {
	return Traits{
		Size:  clamp(t.Size, config.TraitMin, config.TraitMax),
		Speed: clamp(t.Speed, config.TraitMin, config.TraitMax),
		Sense: clamp(t.Sense, config.TraitMin, config.TraitMax),
	}
}

// Mutate adds independent uniform noise in [-eps, eps] to each trait and clamps.
func (t Traits) Mutate(rng *rand.Rand, eps float64) Traits {
	noise := func() float64 { return (rng.Float64()*2 - 1) * eps }
	return Traits{
		Size:  t.Size + noise(),
		Speed: t.Speed + noise(),
		Sense: t.Sense + noise(),
	}.Clamp()
}

// TraitsFromConfig converts configured defaults to Traits.
func TraitsFromConfig(tc config.TraitsConfig) Traits {
	return Traits{Size: tc.Size, Speed: tc.Speed, Sense: tc.Sense}.Clamp()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
