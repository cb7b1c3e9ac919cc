// Package components defines the agent data stored in the roster.
package components

// Species is the closed set of agent kinds. Behavior is dispatched through a
// per-species table indexed by this value, so adding a species means adding
// a table row.
type Species uint8

const (
	Herbivore Species = iota // Grazes the resource layer
	Predator                 // Eats smaller herbivores
	NumSpecies
)

// Valid reports whether s is a known species.
func (s Species) Valid() bool {
	return s < NumSpecies
}
