package catalog

import (
	"fmt"

	"github.com/arloliu/fuda"

	"github.com/arloliu/remotesim/sampler"
)

// LoadFromFile loads a catalog from a YAML or JSON file using fuda for parsing.
// Sections absent from the file keep their default tables.
func LoadFromFile(path string) (*Catalog, error) {
	var loaded Catalog
	if err := fuda.LoadFile(path, &loaded); err != nil {
		return nil, fmt.Errorf("failed to load catalog file: %w", err)
	}

	c := merge(Default(), &loaded)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// ParseBytes parses a catalog document. Absent sections keep their defaults.
func ParseBytes(data []byte) (*Catalog, error) {
	var loaded Catalog
	if err := fuda.LoadBytes(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := merge(Default(), &loaded)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// merge replaces every non-empty section of base with the one from over.
func merge(base, over *Catalog) *Catalog {
	if len(over.Personas) > 0 {
		base.Personas = over.Personas
	}
	if len(over.Devices) > 0 {
		base.Devices = over.Devices
	}
	if len(over.Scenarios) > 0 {
		base.Scenarios = over.Scenarios
	}
	if len(over.Commands) > 0 {
		base.Commands = over.Commands
	}
	if over.Screens.Home != "" {
		base.Screens.Home = over.Screens.Home
	}
	if over.Screens.Player != "" {
		base.Screens.Player = over.Screens.Player
	}
	if over.Screens.Secondary != nil {
		base.Screens.Secondary = over.Screens.Secondary
	}
	if len(over.Tracks) > 0 {
		base.Tracks = over.Tracks
	}
	if over.ReliabilityPins != nil {
		base.ReliabilityPins = over.ReliabilityPins
	}
	if over.Lag != nil {
		base.Lag = over.Lag
	}
	if over.ScanWeights != nil {
		base.ScanWeights = over.ScanWeights
	}
	mergeTimings(&base.Timings, over.Timings)

	return base
}

func mergeTimings(base *Timings, over Timings) {
	pick := func(dst *sampler.Range, src sampler.Range) {
		if src != (sampler.Range{}) {
			*dst = src
		}
	}
	pick(&base.Scan, over.Scan)
	pick(&base.ScreenLoad, over.ScreenLoad)
	pick(&base.Interaction, over.Interaction)
	pick(&base.StateRender, over.StateRender)
	pick(&base.RenderFraction, over.RenderFraction)
	pick(&base.RenderCap, over.RenderCap)
	pick(&base.Signal, over.Signal)
	pick(&base.DegradedSignal, over.DegradedSignal)
}
