package components

import "fmt"

// String returns the display name for a Species.
func (s Species) String() string {
	names := SpeciesNames()
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// SpeciesNames returns the display names for all species.
// The order matches the Species constants.
func SpeciesNames() []string {
	return []string{"herbivore", "predator"}
}

// ParseSpecies converts a display name back to a Species.
func ParseSpecies(name string) (Species, error) {
	for i, n := range SpeciesNames() {
		if n == name {
			return Species(i), nil
		}
	}
	return 0, fmt.Errorf("unknown species %q", name)
}
