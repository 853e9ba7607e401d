// Package timer implements the focus countdown.
//
// A Timer is a small state machine:
//
//	IDLE ──Start──▶ RUNNING ──Tick at 0:00──▶ FINISHED
//	  ▲               │                          │
//	  └─────Stop──────┘          Start (re-arms)─┘
//
// While RUNNING a single goroutine drives Tick from a time.Ticker. Mode
// (FOCUS/BREAK/FREE) is independent of the phase and only matters when the
// countdown completes.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/model"
)

// Phase is where the countdown is in its lifecycle.
type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhaseRunning  Phase = "RUNNING"
	PhaseFinished Phase = "FINISHED"
)

// EventType names what happened to the timer.
type EventType string

const (
	EventStart    EventType = "start"
	EventTick     EventType = "tick"
	EventStop     EventType = "stop"
	EventSet      EventType = "set"
	EventComplete EventType = "complete"
	// EventState carries a full snapshot, sent when a stream opens.
	EventState EventType = "state"
)

// Snapshot is the timer state plus its phase, as served over HTTP.
type Snapshot struct {
	model.TimerState
	Phase Phase `json:"phase"`
}

// Event is pushed to subscribers on every transition and tick.
type Event struct {
	Type  EventType `json:"type"`
	State Snapshot  `json:"state"`
}

// Alerter plays the completion alert. Failures are logged, never fatal.
type Alerter interface {
	Alert(ctx context.Context) error
}

// Defaults for a fresh timer.
const (
	DefaultMinutes  = 25
	DefaultInterval = time.Second

	subscriberBuffer = 16
	alertTimeout     = 10 * time.Second
)

// Config holds the optional collaborators of a Timer.
type Config struct {
	// Interval between ticks. Zero means DefaultInterval.
	Interval time.Duration
	// Minutes for the initial FOCUS countdown. Zero means DefaultMinutes.
	Minutes int
	Alerter Alerter
	// OnComplete runs once per finished countdown, after the alert.
	OnComplete func(model.TimerState)
	Logger     *slog.Logger
}

// Timer is safe for concurrent use.
type Timer struct {
	mu    sync.Mutex
	state model.TimerState
	phase Phase
	// armed is the last configured duration, restored when a finished
	// timer is started again.
	armedMinutes int
	armedSeconds int

	interval time.Duration
	stop     chan struct{}

	subs    map[int]chan Event
	nextSub int
	closed  bool

	alerter    Alerter
	onComplete func(model.TimerState)
	logger     *slog.Logger
}

// New creates an idle FOCUS timer.
func New(cfg Config) *Timer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Minutes <= 0 {
		cfg.Minutes = DefaultMinutes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Timer{
		state: model.TimerState{
			Minutes: cfg.Minutes,
			Mode:    model.ModeFocus,
		},
		phase:        PhaseIdle,
		armedMinutes: cfg.Minutes,
		interval:     cfg.Interval,
		subs:         make(map[int]chan Event),
		alerter:      cfg.Alerter,
		onComplete:   cfg.OnComplete,
		logger:       cfg.Logger,
	}
}

// Snapshot returns the current state.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timer) snapshotLocked() Snapshot {
	return Snapshot{TimerState: t.state, Phase: t.phase}
}

// Set configures the countdown. It is refused while the timer runs.
func (t *Timer) Set(minutes, seconds int, mode model.TimerMode, deliverable string) error {
	if minutes < 0 {
		return apperror.ValidationFailed("minutes", "minutes must not be negative")
	}
	if seconds < 0 || seconds > 59 {
		return apperror.ValidationFailed("seconds", "seconds must be between 0 and 59")
	}
	if !mode.Valid() {
		return apperror.ValidationFailed("mode", fmt.Sprintf("unknown timer mode %q", mode))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == PhaseRunning {
		return &apperror.AppError{Err: apperror.ErrConflict, Message: "stop the timer before changing it"}
	}

	t.state = model.TimerState{
		Minutes:     minutes,
		Seconds:     seconds,
		Mode:        mode,
		Deliverable: deliverable,
	}
	t.armedMinutes, t.armedSeconds = minutes, seconds
	t.phase = PhaseIdle
	t.broadcastLocked(EventSet)
	return nil
}

// Start begins ticking. It reports false, and changes nothing, when the
// timer is already running.
func (t *Timer) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == PhaseRunning || t.closed {
		return false
	}
	if t.phase == PhaseFinished && t.state.Remaining() == 0 {
		t.state.Minutes, t.state.Seconds = t.armedMinutes, t.armedSeconds
	}

	t.phase = PhaseRunning
	t.state.IsActive = true
	t.stop = make(chan struct{})
	go t.run(t.stop)

	t.logger.Debug("timer started",
		slog.String("mode", string(t.state.Mode)),
		slog.Int("remaining", t.state.Remaining()),
	)
	t.broadcastLocked(EventStart)
	return true
}

// Stop cancels ticking without completing. The remaining time is kept.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseRunning {
		return
	}
	t.haltLocked()
	t.phase = PhaseIdle
	t.broadcastLocked(EventStop)
}

// haltLocked closes the tick source. Must hold t.mu.
func (t *Timer) haltLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.state.IsActive = false
}

func (t *Timer) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tick(stop)
		}
	}
}

// Tick advances the countdown by one second. It does nothing unless the
// timer is running.
func (t *Timer) Tick() Snapshot {
	return t.tick(nil)
}

// tick advances the countdown. A non-nil source must still be the live stop
// channel, so a ticker that lost a race with Stop can't step a newer run.
func (t *Timer) tick(source chan struct{}) Snapshot {
	t.mu.Lock()

	if t.phase != PhaseRunning || (source != nil && source != t.stop) {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap
	}

	switch {
	case t.state.Seconds > 0:
		t.state.Seconds--
	case t.state.Minutes > 0:
		t.state.Minutes--
		t.state.Seconds = 59
	default:
		t.haltLocked()
		t.phase = PhaseFinished
		t.broadcastLocked(EventComplete)
		finished := t.state
		snap := t.snapshotLocked()
		t.mu.Unlock()

		t.complete(finished)
		return snap
	}

	t.broadcastLocked(EventTick)
	snap := t.snapshotLocked()
	t.mu.Unlock()
	return snap
}

// complete runs the alert and the completion callback, outside the lock.
func (t *Timer) complete(finished model.TimerState) {
	t.logger.Info("timer completed",
		slog.String("mode", string(finished.Mode)),
		slog.String("deliverable", finished.Deliverable),
	)

	if t.alerter != nil {
		if err := t.playAlert(); err != nil {
			t.logger.Warn("completion alert failed",
				slog.String("error", apperror.Playback(err).Error()),
			)
		}
	}

	if t.onComplete != nil {
		t.onComplete(finished)
	}
}

func (t *Timer) playAlert() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("alert panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()
	return t.alerter.Alert(ctx)
}

// Subscribe returns a channel of events and a function that cancels the
// subscription. Slow subscribers miss events rather than block the timer.
func (t *Timer) Subscribe() (<-chan Event, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(c)
			}
		})
	}
}

func (t *Timer) broadcastLocked(typ EventType) {
	ev := Event{Type: typ, State: t.snapshotLocked()}
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close stops the timer and ends every subscription. A closed timer cannot
// be started again.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	if t.phase == PhaseRunning {
		t.haltLocked()
		t.phase = PhaseIdle
	}
	t.closed = true
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}
