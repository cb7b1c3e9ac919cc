package components

import "github.com/pthm-cable/ecogrid/config"

// Action identifies a metabolic expense.
type Action uint8

const (
	ActionMove Action = iota
	ActionEat
	ActionIdle
	ActionReplicate
)

// coefficient returns the configured coefficient for an action.
func (a Action) coefficient(c config.ActionCosts) float64 {
	switch a {
	case ActionMove:
		return c.Move
	case ActionEat:
		return c.Eat
	case ActionIdle:
		return c.Idle
	case ActionReplicate:
		return c.Replicate
	}
	return 0
}

// ActionCost returns the energy cost of an action. Cost grows with body
// size, speed and sense, and with the energy currently held:
//
//	(c/2 * ((2*size²*speed² + sense + size) + energy) + c/2*energy) * modifier
func ActionCost(t Traits, energy float64, a Action, costs config.ActionCosts, modifier float64) float64 {
	c := a.coefficient(costs)
	body := 2*t.Size*t.Size*t.Speed*t.Speed + t.Sense + t.Size
	return (c/2*(body+energy) + c/2*energy) * modifier
}
