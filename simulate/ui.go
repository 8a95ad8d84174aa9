package simulate

import (
	"context"

	"github.com/arloliu/remotesim/spantree"
	"github.com/arloliu/remotesim/tracing"
)

// RenderState simulates a UI state render with a duration drawn from the
// catalog's state render range.
func (s *Simulator) RenderState(ctx context.Context, parent *spantree.Span, change string) (float64, error) {
	ms, err := s.rng.Uniform(s.catalog.Timings.StateRender)
	if err != nil {
		return 0, err
	}

	return s.render(ctx, parent, change, ms)
}

func (s *Simulator) render(ctx context.Context, parent *spantree.Span, change string, ms float64) (float64, error) {
	ms = round(ms)
	_, err := s.leaf(ctx, parent, OpRender, "Render "+change, ms,
		map[string]string{"state_change": change},
		map[string]float64{"render_time_ms": ms},
	)

	return ms, err
}

// Interact simulates a user tap on screen.
func (s *Simulator) Interact(ctx context.Context, parent *spantree.Span, action, screen string) (float64, error) {
	ms, err := s.rng.Uniform(s.catalog.Timings.Interaction)
	if err != nil {
		return 0, err
	}
	ms = round(ms)

	_, err = s.leaf(ctx, parent, OpAction, "Tap "+action, ms,
		map[string]string{"user_action": action, "screen_name": screen},
		map[string]float64{"interaction_time_ms": ms},
	)

	return ms, err
}

// LoadScreen simulates loading a screen. Loads always succeed.
func (s *Simulator) LoadScreen(ctx context.Context, parent *spantree.Span, screen string) (float64, error) {
	ms, err := s.rng.Uniform(s.catalog.Timings.ScreenLoad)
	if err != nil {
		return 0, err
	}
	ms = round(ms)

	span, err := s.leaf(ctx, parent, OpScreen, "Load "+screen, ms,
		map[string]string{"screen_name": screen, "load_status": "loaded"},
		map[string]float64{"load_time_ms": ms},
	)
	if err == nil {
		s.crumb(span, tracing.LevelInfo, CategoryNavigation, "Opened "+screen)
	}

	return ms, err
}

// Navigate simulates the tap that moves from one screen to another. The
// caller follows it with LoadScreen for the destination.
func (s *Simulator) Navigate(ctx context.Context, parent *spantree.Span, from, to string) (float64, error) {
	ms, err := s.rng.Uniform(s.catalog.Timings.Interaction)
	if err != nil {
		return 0, err
	}
	ms = round(ms)

	span, err := s.leaf(ctx, parent, OpAction, "Navigate to "+to, ms,
		map[string]string{"user_action": "navigate", "screen_name": from, "destination": to},
		map[string]float64{"interaction_time_ms": ms},
	)
	if err == nil {
		s.crumb(span, tracing.LevelInfo, CategoryNavigation, from+" -> "+to)
	}

	return ms, err
}
