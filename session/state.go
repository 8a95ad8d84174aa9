package session

import (
	"context"
	"fmt"

	"github.com/arloliu/remotesim/sampler"
	"github.com/arloliu/remotesim/simulate"
	"github.com/arloliu/remotesim/spantree"
	"github.com/arloliu/remotesim/tracing"
)

// State is a step of the session state machine.
type State int

const (
	StateStart State = iota
	StateScreenLoad
	StateScan
	StateConnect
	StateCommands
	StateNavigate
	StateEnd
)

var stateNames = [...]string{"start", "screen_load", "scan", "connect", "commands", "navigate", "end"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}

	return stateNames[s]
}

// run is the mutable state of one session.
type run struct {
	o    *Orchestrator
	ctx  context.Context
	rng  *sampler.Sampler
	tree *spantree.Tree
	sim  *simulate.Simulator
	pl   *simulate.Playlist
	root *spantree.Span
	res  Result
}

func (r *run) step(state State) (State, error) {
	switch state {
	case StateStart:
		return r.start()
	case StateScreenLoad:
		return r.screenLoad()
	case StateScan:
		return r.scan()
	case StateConnect:
		return r.connect()
	case StateCommands:
		return r.commands()
	case StateNavigate:
		return r.navigate()
	default:
		return StateEnd, fmt.Errorf("session: no transition from %s", state)
	}
}

func (r *run) start() (State, error) {
	env := r.sim.Env()

	r.root = r.tree.Start(r.ctx, nil, simulate.OpSession, "Bluetooth remote session")
	r.res.Start = r.root.StartTime()

	r.root.SetTag("user_persona", env.Persona.ID)
	r.root.SetTag("device_name", env.Device.Name)
	r.root.SetTag("device_type", env.Device.Type)
	r.root.SetTag("scenario", env.Scenario.Name)
	r.root.SetTag("session_id", r.res.SessionID)
	r.root.SetData("session_sequence", float64(r.res.Sequence))

	r.tree.SetUser(r.root, r.res.UserID)
	r.tree.Breadcrumb(r.root, tracing.LevelInfo, simulate.CategoryUI,
		fmt.Sprintf("Session started as %s with %s", env.Persona.ID, env.Device.Name))

	return StateScreenLoad, nil
}

func (r *run) screenLoad() (State, error) {
	if _, err := r.sim.LoadScreen(r.ctx, r.root, r.o.catalog.Screens.Home); err != nil {
		return StateEnd, err
	}

	if r.rng.Outcome(r.o.cfg.ScanProbability) {
		return StateScan, nil
	}

	return StateConnect, nil
}

func (r *run) scan() (State, error) {
	res, err := r.sim.Scan(r.ctx, r.root)
	if err != nil {
		return StateEnd, err
	}

	r.res.Scanned = true
	r.res.ScanOutcome = res.Outcome
	if res.Err != nil {
		r.res.Failures = append(r.res.Failures, res.Err)
	}

	return StateConnect, nil
}

func (r *run) connect() (State, error) {
	res, err := r.sim.Connect(r.ctx, r.root)
	if err != nil {
		return StateEnd, err
	}

	r.res.Connected = res.Connected
	r.root.SetBool("connected", res.Connected)
	if !res.Connected {
		r.res.Failures = append(r.res.Failures, res.Err)
		return StateEnd, nil
	}

	return StateCommands, nil
}

func (r *run) commands() (State, error) {
	persona := r.sim.Env().Persona

	n, err := r.rng.IntN(persona.ActionCount)
	if err != nil {
		return StateEnd, err
	}

	table := r.o.catalog.CommandTable()
	for range n {
		cmd, err := sampler.Choose(r.rng, table)
		if err != nil {
			return StateEnd, err
		}

		res, err := r.sim.WriteCommand(r.ctx, r.root, cmd)
		if err != nil {
			return StateEnd, err
		}
		r.res.Commands++
		if !res.Success {
			r.res.CommandFailures++
			r.res.Failures = append(r.res.Failures, res.Err)
		}

		if _, err := r.sim.Control(r.ctx, r.root, r.pl, cmd); err != nil {
			return StateEnd, err
		}

		think, err := r.rng.Uniform(persona.ThinkTime)
		if err != nil {
			return StateEnd, err
		}
		r.tree.Wait(r.ctx, sampler.Millis(think))
	}

	r.root.SetData("commands_sent", float64(r.res.Commands))
	r.root.SetData("commands_failed", float64(r.res.CommandFailures))

	if len(r.o.catalog.Screens.Secondary) > 0 && r.rng.Outcome(r.o.cfg.NavigateProbability) {
		return StateNavigate, nil
	}

	return StateEnd, nil
}

func (r *run) navigate() (State, error) {
	dest, err := sampler.Pick(r.rng, r.o.catalog.Screens.Secondary)
	if err != nil {
		return StateEnd, err
	}

	if _, err := r.sim.Navigate(r.ctx, r.root, r.o.catalog.Screens.Player, dest); err != nil {
		return StateEnd, err
	}
	if _, err := r.sim.LoadScreen(r.ctx, r.root, dest); err != nil {
		return StateEnd, err
	}
	r.res.Navigated = true

	return StateEnd, nil
}

// end closes the session span exactly once.
func (r *run) end() error {
	r.root.SetData("session_duration_seconds", r.tree.Now().Sub(r.root.StartTime()).Seconds())
	if r.res.Scanned {
		r.root.SetTag("scan_result", string(r.res.ScanOutcome))
	}

	if err := r.root.Finish(); err != nil {
		return fmt.Errorf("session %d: %w", r.res.Sequence, err)
	}

	d, err := r.root.Duration()
	if err != nil {
		return fmt.Errorf("session %d: %w", r.res.Sequence, err)
	}
	r.res.Duration = d
	r.res.Spans = r.tree.Emitted()

	return nil
}

// abort closes whatever is open after a contract error so nothing half
// finished reaches the backend.
func (r *run) abort(state State, err error) error {
	err = fmt.Errorf("session %d in %s: %w", r.res.Sequence, state, err)
	if r.root == nil || r.root.Finished() {
		return err
	}

	r.root.SetTag("simulation_error", err.Error())
	if ferr := r.root.Finish(); ferr != nil {
		err = fmt.Errorf("%w (finish: %w)", err, ferr)
	}
	r.res.Spans = r.tree.Emitted()

	return err
}
