package simulate

import (
	"context"
	"slices"
	"strconv"

	"github.com/arloliu/remotesim/catalog"
	"github.com/arloliu/remotesim/sampler"
	"github.com/arloliu/remotesim/spantree"
)

// Playlist is the in-memory now-playing state the controls act on.
type Playlist struct {
	tracks   []string
	order    []int
	pos      int
	shuffled bool
	playing  bool
	volume   int
}

// NewPlaylist creates a playlist over tracks in catalog order at volume 50.
func NewPlaylist(tracks []string) *Playlist {
	p := &Playlist{tracks: slices.Clone(tracks), volume: 50}
	p.resetOrder()

	return p
}

func (p *Playlist) resetOrder() {
	p.order = make([]int, len(p.tracks))
	for i := range p.order {
		p.order[i] = i
	}
}

// Current returns the current track, or "" for an empty playlist.
func (p *Playlist) Current() string {
	if len(p.order) == 0 {
		return ""
	}

	return p.tracks[p.order[p.pos]]
}

// Order returns the track titles in play order.
func (p *Playlist) Order() []string {
	out := make([]string, len(p.order))
	for i, idx := range p.order {
		out[i] = p.tracks[idx]
	}

	return out
}

// Shuffled reports whether shuffle is on.
func (p *Playlist) Shuffled() bool { return p.shuffled }

// Playing reports whether playback is running.
func (p *Playlist) Playing() bool { return p.playing }

// Volume returns the volume in [0, 100].
func (p *Playlist) Volume() int { return p.volume }

// Next advances to the next track, wrapping around.
func (p *Playlist) Next() {
	if len(p.order) > 0 {
		p.pos = (p.pos + 1) % len(p.order)
	}
}

// Previous goes back one track, wrapping around.
func (p *Playlist) Previous() {
	if len(p.order) > 0 {
		p.pos = (p.pos - 1 + len(p.order)) % len(p.order)
	}
}

// ToggleShuffle reorders the tracks randomly when turning shuffle on and
// restores catalog order when turning it off. The current track is kept.
func (p *Playlist) ToggleShuffle(rng *sampler.Sampler) {
	current := -1
	if len(p.order) > 0 {
		current = p.order[p.pos]
	}

	p.shuffled = !p.shuffled
	if p.shuffled {
		p.order = rng.Perm(len(p.tracks))
	} else {
		p.resetOrder()
	}

	if current >= 0 {
		p.pos = slices.Index(p.order, current)
	}
}

// TogglePlay flips the playing state.
func (p *Playlist) TogglePlay() { p.playing = !p.playing }

// AdjustVolume changes the volume by delta, clamped to [0, 100].
func (p *Playlist) AdjustVolume(delta int) {
	p.volume = min(100, max(0, p.volume+delta))
}

const volumeStep = 5

// control simulates a player control tap. Its duration is the base
// interaction time scaled by the device's lag multiplier for the control.
func (s *Simulator) control(
	ctx context.Context,
	parent *spantree.Span,
	controlType, action string,
	tags map[string]string,
) (float64, error) {
	base, err := s.rng.Uniform(s.catalog.Timings.Interaction)
	if err != nil {
		return 0, err
	}
	lag := s.catalog.LagMultiplier(s.env.Device.Name, controlType)
	ms := round(base * lag)

	all := map[string]string{
		"control_type": controlType,
		"user_action":  action,
		"screen_name":  s.catalog.Screens.Player,
		"device_name":  s.env.Device.Name,
	}
	for k, v := range tags {
		all[k] = v
	}
	data := map[string]float64{"interaction_time_ms": ms}
	if lag != 1 {
		data["lag_multiplier"] = lag
	}

	_, err = s.leaf(ctx, parent, OpAction, "Press "+action, ms, all, data)

	return ms, err
}

// Skip simulates the skip control and moves the playlist.
func (s *Simulator) Skip(ctx context.Context, parent *spantree.Span, pl *Playlist, forward bool) (float64, error) {
	action := "skip_next"
	if forward {
		pl.Next()
	} else {
		action = "skip_previous"
		pl.Previous()
	}

	return s.control(ctx, parent, catalog.ControlSkip, action, map[string]string{"track": pl.Current()})
}

// Shuffle simulates the shuffle toggle, reordering or resetting the playlist.
func (s *Simulator) Shuffle(ctx context.Context, parent *spantree.Span, pl *Playlist) (float64, error) {
	pl.ToggleShuffle(s.rng)

	return s.control(ctx, parent, catalog.ControlShuffle, "shuffle", map[string]string{
		"shuffle_enabled": strconv.FormatBool(pl.Shuffled()),
		"track":           pl.Current(),
	})
}

// Volume simulates a volume step.
func (s *Simulator) Volume(ctx context.Context, parent *spantree.Span, pl *Playlist, up bool) (float64, error) {
	action := "volume_up"
	delta := volumeStep
	if !up {
		action = "volume_down"
		delta = -volumeStep
	}
	pl.AdjustVolume(delta)

	return s.control(ctx, parent, catalog.ControlVolume, action, map[string]string{
		"volume_level": strconv.Itoa(pl.Volume()),
	})
}

// PlayPause simulates the play/pause toggle.
func (s *Simulator) PlayPause(ctx context.Context, parent *spantree.Span, pl *Playlist) (float64, error) {
	pl.TogglePlay()

	return s.control(ctx, parent, catalog.ControlPlayPause, "play_pause", map[string]string{
		"playing": strconv.FormatBool(pl.Playing()),
		"track":   pl.Current(),
	})
}

// Control dispatches the UI interaction that accompanies cmd.
func (s *Simulator) Control(ctx context.Context, parent *spantree.Span, pl *Playlist, cmd catalog.Command) (float64, error) {
	switch cmd.Control {
	case catalog.ControlSkip:
		return s.Skip(ctx, parent, pl, cmd.Type != "skip_previous")
	case catalog.ControlShuffle:
		return s.Shuffle(ctx, parent, pl)
	case catalog.ControlVolume:
		return s.Volume(ctx, parent, pl, cmd.Type != "volume_down")
	case catalog.ControlPlayPause:
		return s.PlayPause(ctx, parent, pl)
	default:
		return s.Interact(ctx, parent, cmd.Type, s.catalog.Screens.Player)
	}
}
