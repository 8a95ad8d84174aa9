package catalog

import "github.com/arloliu/remotesim/sampler"

// Names of the devices that are deliberately skewed in the default catalog.
const (
	DeviceBedroomMove = "Bedroom Move"
	DevicePatioRoam   = "Patio Roam"
)

// Default returns a fresh copy of the built-in tables.
func Default() *Catalog {
	return &Catalog{
		Personas: []Persona{
			{
				ID:               "casual_listener",
				Description:      "Starts a playlist and occasionally skips",
				ActionCount:      sampler.IntRange{Min: 3, Max: 8},
				ErrorProbability: 0.05,
				ThinkTime:        sampler.R(2000, 6000),
			},
			{
				ID:               "commuter",
				Description:      "Short bursts of control between stops",
				ActionCount:      sampler.IntRange{Min: 5, Max: 12},
				ErrorProbability: 0.10,
				ThinkTime:        sampler.R(1000, 4000),
			},
			{
				ID:               "power_user",
				Description:      "Tweaks volume and queue constantly",
				ActionCount:      sampler.IntRange{Min: 12, Max: 25},
				ErrorProbability: 0.08,
				ThinkTime:        sampler.R(500, 1500),
			},
			{
				ID:               "impatient_user",
				Description:      "Hammers buttons and retries",
				ActionCount:      sampler.IntRange{Min: 8, Max: 20},
				ErrorProbability: 0.15,
				ThinkTime:        sampler.R(200, 900),
			},
		},
		Devices: []Device{
			{Name: "Living Room Speaker", Type: "speaker", Latency: sampler.R(250, 900), Reliability: 0.95, CommandMultiplier: 1.0},
			{Name: "Kitchen Soundbar", Type: "soundbar", Latency: sampler.R(300, 1100), Reliability: 0.92, CommandMultiplier: 1.1},
			{Name: DeviceBedroomMove, Type: "portable_speaker", Latency: sampler.R(400, 1600), Reliability: 0.93, CommandMultiplier: 1.8, Battery: intPtr(64)},
			{Name: "Office Headphones", Type: "headphones", Latency: sampler.R(150, 600), Reliability: 0.98, CommandMultiplier: 0.8, Battery: intPtr(82)},
			{Name: DevicePatioRoam, Type: "portable_speaker", Latency: sampler.R(500, 2000), Reliability: 0.90, CommandMultiplier: 1.4, Battery: intPtr(37)},
			{Name: "Car Stereo", Type: "car_audio", Latency: sampler.R(250, 800), Reliability: 0.90, CommandMultiplier: 1.0},
		},
		Scenarios: []Scenario{
			{Name: "normal", Description: "Quiet home network", Weight: 70, LatencyMultiplier: 1.0},
			{Name: "congested_2_4ghz", Description: "Crowded 2.4 GHz band", Weight: 15, LatencyMultiplier: 2.2},
			{Name: "weak_signal", Description: "Listener at the edge of range", Weight: 10, LatencyMultiplier: 1.6, ErrorRateOverride: floatPtr(0.25)},
			{Name: "firmware_regression", Description: "Buggy speaker firmware build", Weight: 5, LatencyMultiplier: 1.2, ErrorRateOverride: floatPtr(0.35)},
		},
		Commands: []Command{
			{Type: "play_pause", Control: ControlPlayPause, Weight: 25, Write: sampler.R(15, 60), Ack: sampler.R(40, 160)},
			{Type: "skip_next", Control: ControlSkip, Weight: 20, Write: sampler.R(20, 70), Ack: sampler.R(60, 220)},
			{Type: "skip_previous", Control: ControlSkip, Weight: 10, Write: sampler.R(20, 70), Ack: sampler.R(60, 220)},
			{Type: "volume_up", Control: ControlVolume, Weight: 15, Write: sampler.R(10, 40), Ack: sampler.R(30, 120)},
			{Type: "volume_down", Control: ControlVolume, Weight: 15, Write: sampler.R(10, 40), Ack: sampler.R(30, 120)},
			{Type: "shuffle", Control: ControlShuffle, Weight: 15, Write: sampler.R(25, 90), Ack: sampler.R(80, 260)},
		},
		Screens: Screens{
			Home:      "device_list",
			Player:    "now_playing",
			Secondary: []string{"library", "queue", "equalizer", "settings"},
		},
		Tracks: []string{
			"Harbor Lights",
			"Static Bloom",
			"Night Ferry",
			"Paper Satellites",
			"Low Tide Radio",
			"Glasshouse",
			"Copper Morning",
			"Signal Lost",
		},
		Timings: Timings{
			Scan:           sampler.R(1500, 4000),
			ScreenLoad:     sampler.R(120, 650),
			Interaction:    sampler.R(40, 220),
			StateRender:    sampler.R(8, 45),
			RenderFraction: sampler.R(0.10, 0.15),
			RenderCap:      sampler.R(50, 80),
			Signal:         sampler.R(-75, -40),
			DegradedSignal: sampler.R(-95, -80),
		},
		ReliabilityPins: map[string]float64{
			DeviceBedroomMove: 0.40,
			DevicePatioRoam:   0.70,
		},
		Lag: map[string]map[string]float64{
			DeviceBedroomMove: {ControlSkip: 6, ControlShuffle: 8},
			DevicePatioRoam:   {ControlSkip: 5, ControlShuffle: 5.5},
		},
		ScanWeights: map[ScanOutcome]float64{
			ScanSuccess: 50,
			ScanFailure: 15,
			ScanPartial: 15,
			ScanTimeout: 20,
		},
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
