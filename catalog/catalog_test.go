package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Len(t, c.Personas, 4)
	assert.Len(t, c.Devices, 6)
	assert.Len(t, c.Scenarios, 4)
	assert.NotEmpty(t, c.Tracks)
}

func TestDefault_ReturnsFreshCopy(t *testing.T) {
	a := Default()
	a.Devices[0].Name = "changed"
	a.ReliabilityPins["x"] = 0.1

	b := Default()
	assert.Equal(t, "Living Room Speaker", b.Devices[0].Name)
	assert.NotContains(t, b.ReliabilityPins, "x")
}

func TestCatalog_DeviceAppliesPins(t *testing.T) {
	c := Default()

	d, ok := c.Device(DeviceBedroomMove)
	require.True(t, ok)
	assert.InDelta(t, 0.40, d.Reliability, 1e-9)

	d, ok = c.Device(DevicePatioRoam)
	require.True(t, ok)
	assert.InDelta(t, 0.70, d.Reliability, 1e-9)

	d, ok = c.Device("Office Headphones")
	require.True(t, ok)
	assert.InDelta(t, 0.98, d.Reliability, 1e-9)

	_, ok = c.Device("Garage Radio")
	assert.False(t, ok)
}

func TestCatalog_Pin(t *testing.T) {
	c := &Catalog{Devices: []Device{{Name: "a", Reliability: 0.9}}}
	c.Pin("a", 0.2)

	d, ok := c.Device("a")
	require.True(t, ok)
	assert.InDelta(t, 0.2, d.Reliability, 1e-9)
}

func TestCatalog_LagMultiplier(t *testing.T) {
	c := Default()

	tests := []struct {
		device  string
		control string
		want    float64
	}{
		{DeviceBedroomMove, ControlSkip, 6},
		{DeviceBedroomMove, ControlShuffle, 8},
		{DeviceBedroomMove, ControlVolume, 1},
		{DevicePatioRoam, ControlSkip, 5},
		{DevicePatioRoam, ControlShuffle, 5.5},
		{"Car Stereo", ControlSkip, 1},
	}

	for _, tt := range tests {
		t.Run(tt.device+"/"+tt.control, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.LagMultiplier(tt.device, tt.control), 1e-9)
		})
	}
}

func TestScenario_CommandFailure(t *testing.T) {
	c := Default()
	p, ok := c.Persona("impatient_user")
	require.True(t, ok)

	normal, ok := c.Scenario("normal")
	require.True(t, ok)
	assert.InDelta(t, 0.15, normal.CommandFailure(p), 1e-9)

	weak, ok := c.Scenario("weak_signal")
	require.True(t, ok)
	assert.InDelta(t, 0.25, weak.CommandFailure(p), 1e-9)
}

func TestScenario_LatencyDefaultsToOne(t *testing.T) {
	assert.InDelta(t, 1.0, Scenario{}.Latency(), 1e-9)
	assert.InDelta(t, 2.2, Scenario{LatencyMultiplier: 2.2}.Latency(), 1e-9)
	assert.InDelta(t, 1.0, Device{}.CommandScale(), 1e-9)
}

func TestCatalog_ScanTableOrder(t *testing.T) {
	table := Default().ScanTable()
	require.Len(t, table, 4)

	for i, o := range ScanOutcomes {
		assert.Equal(t, o, table[i].Value)
	}
	assert.InDelta(t, 50.0, table[0].Weight, 1e-9)
}

func TestCatalog_Clone(t *testing.T) {
	c := Default()
	cp := c.Clone()

	cp.Lag[DeviceBedroomMove][ControlSkip] = 99
	cp.Personas[0].ID = "changed"
	cp.Screens.Secondary[0] = "changed"

	assert.InDelta(t, 6.0, c.Lag[DeviceBedroomMove][ControlSkip], 1e-9)
	assert.Equal(t, "casual_listener", c.Personas[0].ID)
	assert.Equal(t, "library", c.Screens.Secondary[0])
}

func TestCatalog_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Catalog)
	}{
		{"no personas", func(c *Catalog) { c.Personas = nil }},
		{"inverted think time", func(c *Catalog) { c.Personas[0].ThinkTime.Min = 9000 }},
		{"error probability above one", func(c *Catalog) { c.Personas[1].ErrorProbability = 1.5 }},
		{"negative latency", func(c *Catalog) { c.Devices[0].Latency.Min = -1 }},
		{"reliability above one", func(c *Catalog) { c.Devices[0].Reliability = 2 }},
		{"pin below zero", func(c *Catalog) { c.ReliabilityPins[DeviceBedroomMove] = -0.1 }},
		{"zero lag", func(c *Catalog) { c.Lag[DevicePatioRoam][ControlSkip] = 0 }},
		{"all scenario weights zero", func(c *Catalog) {
			for i := range c.Scenarios {
				c.Scenarios[i].Weight = 0
			}
		}},
		{"negative command weight", func(c *Catalog) { c.Commands[0].Weight = -3 }},
		{"unknown scan outcome", func(c *Catalog) { c.ScanWeights["lost"] = 5 }},
		{"missing home screen", func(c *Catalog) { c.Screens.Home = "" }},
		{"inverted signal", func(c *Catalog) { c.Timings.Signal = c.Timings.Signal.Scale(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)

			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}
