// Package catalog holds the static parameter tables that drive the simulation:
// behavioral personas, simulated Bluetooth audio devices, environment scenarios,
// command latencies and the deliberately tuned demo skews (reliability pins and
// per-control lag multipliers).
//
// Tables are plain data. The defaults reproduce the demo dashboards; a YAML file
// can replace any section (see [LoadFromFile]).
package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/arloliu/remotesim/sampler"
)

// ErrInvalidCatalog is returned by Validate.
var ErrInvalidCatalog = errors.New("catalog: invalid catalog")

// Persona is a behavioral archetype selected once per session.
type Persona struct {
	ID          string           `yaml:"id" json:"id"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	ActionCount sampler.IntRange `yaml:"actionCount" json:"actionCount"`
	// ErrorProbability is the chance that a single command write fails.
	ErrorProbability float64 `yaml:"errorProbability" json:"errorProbability"`
	// ThinkTime is the delay between commands, in milliseconds.
	ThinkTime sampler.Range `yaml:"thinkTimeMs" json:"thinkTimeMs"`
}

// Device is a simulated Bluetooth audio peripheral.
type Device struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
	// Latency is the connection latency range in milliseconds.
	Latency     sampler.Range `yaml:"latencyMs" json:"latencyMs"`
	Reliability float64       `yaml:"reliability" json:"reliability"`
	// CommandMultiplier scales command write and ack latencies.
	CommandMultiplier float64 `yaml:"commandMultiplier,omitempty" json:"commandMultiplier,omitempty"`
	Battery           *int    `yaml:"battery,omitempty" json:"battery,omitempty"`
}

// CommandScale returns CommandMultiplier, treating zero as one.
func (d Device) CommandScale() float64 {
	if d.CommandMultiplier <= 0 {
		return 1
	}

	return d.CommandMultiplier
}

// Scenario is an environment layer applied on top of a device.
type Scenario struct {
	Name              string   `yaml:"name" json:"name"`
	Description       string   `yaml:"description,omitempty" json:"description,omitempty"`
	Weight            float64  `yaml:"weight" json:"weight"`
	LatencyMultiplier float64  `yaml:"latencyMultiplier" json:"latencyMultiplier"`
	ErrorRateOverride *float64 `yaml:"errorRateOverride,omitempty" json:"errorRateOverride,omitempty"`
}

// Latency returns LatencyMultiplier, treating zero as one.
func (s Scenario) Latency() float64 {
	if s.LatencyMultiplier <= 0 {
		return 1
	}

	return s.LatencyMultiplier
}

// CommandFailure returns the write failure probability for persona p under s.
func (s Scenario) CommandFailure(p Persona) float64 {
	if s.ErrorRateOverride != nil {
		return sampler.Clamp01(*s.ErrorRateOverride)
	}

	return sampler.Clamp01(p.ErrorProbability)
}

// Controls map a command onto the UI control that issued it.
const (
	ControlPlayPause = "play_pause"
	ControlSkip      = "skip"
	ControlShuffle   = "shuffle"
	ControlVolume    = "volume"
)

// Command describes one remote-control command and its two-phase latency.
type Command struct {
	Type    string        `yaml:"type" json:"type"`
	Control string        `yaml:"control" json:"control"`
	Weight  float64       `yaml:"weight" json:"weight"`
	Write   sampler.Range `yaml:"writeMs" json:"writeMs"`
	Ack     sampler.Range `yaml:"ackMs" json:"ackMs"`
}

// Screens names the app screens a session moves through.
type Screens struct {
	Home      string   `yaml:"home" json:"home"`
	Player    string   `yaml:"player" json:"player"`
	Secondary []string `yaml:"secondary" json:"secondary"`
}

// Timings groups the device-independent latency ranges, in milliseconds.
type Timings struct {
	Scan        sampler.Range `yaml:"scanMs" json:"scanMs"`
	ScreenLoad  sampler.Range `yaml:"screenLoadMs" json:"screenLoadMs"`
	Interaction sampler.Range `yaml:"interactionMs" json:"interactionMs"`
	StateRender sampler.Range `yaml:"stateRenderMs" json:"stateRenderMs"`
	// RenderFraction and RenderCap bound the render that follows a command:
	// min(total*fraction, cap).
	RenderFraction sampler.Range `yaml:"renderFraction" json:"renderFraction"`
	RenderCap      sampler.Range `yaml:"renderCapMs" json:"renderCapMs"`
	Signal         sampler.Range `yaml:"signalDbm" json:"signalDbm"`
	DegradedSignal sampler.Range `yaml:"degradedSignalDbm" json:"degradedSignalDbm"`
}

// Catalog is the complete set of simulation tables.
type Catalog struct {
	Personas  []Persona  `yaml:"personas" json:"personas"`
	Devices   []Device   `yaml:"devices" json:"devices"`
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`
	Commands  []Command  `yaml:"commands" json:"commands"`
	Screens   Screens    `yaml:"screens" json:"screens"`
	Tracks    []string   `yaml:"tracks" json:"tracks"`
	Timings   Timings    `yaml:"timings" json:"timings"`

	// ReliabilityPins overrides the reliability of named devices.
	ReliabilityPins map[string]float64 `yaml:"reliabilityPins" json:"reliabilityPins"`
	// Lag maps device name -> control -> latency multiplier.
	Lag map[string]map[string]float64 `yaml:"lag" json:"lag"`
	// ScanWeights maps scan outcome -> relative weight.
	ScanWeights map[ScanOutcome]float64 `yaml:"scanWeights" json:"scanWeights"`
}

// Persona looks up a persona by id.
func (c *Catalog) Persona(id string) (Persona, bool) {
	i := slices.IndexFunc(c.Personas, func(p Persona) bool { return p.ID == id })
	if i < 0 {
		return Persona{}, false
	}

	return c.Personas[i], true
}

// Device looks up a device by name. The returned device has reliability pins applied.
func (c *Catalog) Device(name string) (Device, bool) {
	i := slices.IndexFunc(c.Devices, func(d Device) bool { return d.Name == name })
	if i < 0 {
		return Device{}, false
	}

	return c.Effective(c.Devices[i]), true
}

// Scenario looks up a scenario by name.
func (c *Catalog) Scenario(name string) (Scenario, bool) {
	i := slices.IndexFunc(c.Scenarios, func(s Scenario) bool { return s.Name == name })
	if i < 0 {
		return Scenario{}, false
	}

	return c.Scenarios[i], true
}

// Effective returns d with its reliability pin applied, if any.
func (c *Catalog) Effective(d Device) Device {
	if pin, ok := c.ReliabilityPins[d.Name]; ok {
		d.Reliability = sampler.Clamp01(pin)
	}

	return d
}

// Pin forces the reliability of the named device.
func (c *Catalog) Pin(device string, reliability float64) {
	if c.ReliabilityPins == nil {
		c.ReliabilityPins = map[string]float64{}
	}
	c.ReliabilityPins[device] = reliability
}

// LagMultiplier returns the latency multiplier for control on device, or 1.
func (c *Catalog) LagMultiplier(device, control string) float64 {
	if m, ok := c.Lag[device][control]; ok && m > 0 {
		return m
	}

	return 1
}

// ScenarioTable returns the scenarios as a weighted table.
func (c *Catalog) ScenarioTable() []sampler.Weighted[Scenario] {
	table := make([]sampler.Weighted[Scenario], 0, len(c.Scenarios))
	for _, s := range c.Scenarios {
		table = append(table, sampler.W(s.Weight, s))
	}

	return table
}

// CommandTable returns the commands as a weighted table.
func (c *Catalog) CommandTable() []sampler.Weighted[Command] {
	table := make([]sampler.Weighted[Command], 0, len(c.Commands))
	for _, cmd := range c.Commands {
		table = append(table, sampler.W(cmd.Weight, cmd))
	}

	return table
}

// PersonaIDs returns persona ids in catalog order.
func (c *Catalog) PersonaIDs() []string {
	ids := make([]string, 0, len(c.Personas))
	for _, p := range c.Personas {
		ids = append(ids, p.ID)
	}

	return ids
}

// DeviceNames returns device names in catalog order.
func (c *Catalog) DeviceNames() []string {
	names := make([]string, 0, len(c.Devices))
	for _, d := range c.Devices {
		names = append(names, d.Name)
	}

	return names
}

// Clone returns a deep copy of c.
func (c *Catalog) Clone() *Catalog {
	out := *c
	out.Personas = slices.Clone(c.Personas)
	out.Devices = slices.Clone(c.Devices)
	out.Scenarios = slices.Clone(c.Scenarios)
	out.Commands = slices.Clone(c.Commands)
	out.Tracks = slices.Clone(c.Tracks)
	out.Screens.Secondary = slices.Clone(c.Screens.Secondary)
	out.ReliabilityPins = maps.Clone(c.ReliabilityPins)
	out.ScanWeights = maps.Clone(c.ScanWeights)
	if c.Lag != nil {
		out.Lag = make(map[string]map[string]float64, len(c.Lag))
		for k, v := range c.Lag {
			out.Lag[k] = maps.Clone(v)
		}
	}

	return &out
}

// Validate checks every table for sampleable ranges and probabilities.
func (c *Catalog) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Personas) == 0 {
		add("no personas")
	}
	for _, p := range c.Personas {
		if p.ID == "" {
			add("persona with empty id")
		}
		if err := p.ActionCount.Validate(); err != nil || p.ActionCount.Min < 0 {
			add("persona %q: invalid action count %+v", p.ID, p.ActionCount)
		}
		if p.ErrorProbability < 0 || p.ErrorProbability > 1 {
			add("persona %q: error probability %v outside [0,1]", p.ID, p.ErrorProbability)
		}
		if err := p.ThinkTime.Validate(); err != nil || p.ThinkTime.Min < 0 {
			add("persona %q: invalid think time %+v", p.ID, p.ThinkTime)
		}
	}

	if len(c.Devices) == 0 {
		add("no devices")
	}
	for _, d := range c.Devices {
		if d.Name == "" {
			add("device with empty name")
		}
		if err := d.Latency.Validate(); err != nil || d.Latency.Min < 0 {
			add("device %q: invalid latency %+v", d.Name, d.Latency)
		}
		if d.Reliability < 0 || d.Reliability > 1 {
			add("device %q: reliability %v outside [0,1]", d.Name, d.Reliability)
		}
		if d.CommandMultiplier < 0 {
			add("device %q: negative command multiplier", d.Name)
		}
	}

	for name, pin := range c.ReliabilityPins {
		if pin < 0 || pin > 1 {
			add("reliability pin %q: %v outside [0,1]", name, pin)
		}
	}
	for device, controls := range c.Lag {
		for control, m := range controls {
			if m <= 0 {
				add("lag %q/%q: multiplier %v must be positive", device, control, m)
			}
		}
	}

	if err := sampler.ValidateTable(c.ScenarioTable()); err != nil {
		add("scenarios: %v", err)
	}
	for _, s := range c.Scenarios {
		if s.LatencyMultiplier < 0 {
			add("scenario %q: negative latency multiplier", s.Name)
		}
		if o := s.ErrorRateOverride; o != nil && (*o < 0 || *o > 1) {
			add("scenario %q: error rate override %v outside [0,1]", s.Name, *o)
		}
	}

	if err := sampler.ValidateTable(c.CommandTable()); err != nil {
		add("commands: %v", err)
	}
	for _, cmd := range c.Commands {
		if err := cmd.Write.Validate(); err != nil {
			add("command %q: write %v", cmd.Type, err)
		}
		if err := cmd.Ack.Validate(); err != nil {
			add("command %q: ack %v", cmd.Type, err)
		}
	}

	for outcome := range c.ScanWeights {
		if !slices.Contains(ScanOutcomes, outcome) {
			add("unknown scan outcome %q", outcome)
		}
	}
	if err := sampler.ValidateTable(c.ScanTable()); err != nil {
		add("scan weights: %v", err)
	}

	if c.Screens.Home == "" || c.Screens.Player == "" {
		add("home and player screens are required")
	}

	t := c.Timings
	for name, r := range map[string]sampler.Range{
		"scanMs":            t.Scan,
		"screenLoadMs":      t.ScreenLoad,
		"interactionMs":     t.Interaction,
		"stateRenderMs":     t.StateRender,
		"renderFraction":    t.RenderFraction,
		"renderCapMs":       t.RenderCap,
		"signalDbm":         t.Signal,
		"degradedSignalDbm": t.DegradedSignal,
	} {
		if err := r.Validate(); err != nil {
			add("timings %s: %v", name, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}

	return nil
}
