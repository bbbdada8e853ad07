package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"clickloop/internal/domain"
	"clickloop/internal/infra/tracer"
)

// Config holds tuning knobs for the Scheduler.
type Config struct {
	StartupDelay time.Duration   // delay before the first tick (default: 50ms)
	MinInterval  time.Duration   // floor for the delay between ticks (default: 100ms)
	Clock        Clock           // default: SystemClock
	Intn         func(n int) int // random source for RANDOM mode (default: math/rand)
}

// Stores groups the persisted collaborators read by the scheduler.
type Stores struct {
	Links    domain.LinkStore
	Settings domain.SettingsStore
	Logs     domain.LogSink
}

// Scheduler is the cycle control loop. Commands and timer callbacks
// serialize on mu; at most one timer is armed at any moment.
type Scheduler struct {
	stores  Stores
	display domain.DisplaySurface
	bus     domain.EventBus
	logger  *slog.Logger
	config  Config

	mu     sync.Mutex
	state  domain.RunState
	handle domain.DisplayHandle
	timer  Timer
	gen    uint64 // bumped on every arm/cancel; stale timer callbacks compare against it
}

// NewScheduler creates an idle Scheduler. bus may be nil.
func NewScheduler(stores Stores, display domain.DisplaySurface, bus domain.EventBus, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.StartupDelay <= 0 {
		cfg.StartupDelay = 50 * time.Millisecond
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 100 * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Intn == nil {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		var rmu sync.Mutex
		cfg.Intn = func(n int) int {
			rmu.Lock()
			defer rmu.Unlock()
			return rnd.Intn(n)
		}
	}
	return &Scheduler{
		stores:  stores,
		display: display,
		bus:     bus,
		logger:  logger,
		config:  cfg,
		state:   domain.IdleRunState(),
	}
}

// Snapshot returns a copy of the current RunState.
func (s *Scheduler) Snapshot() domain.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// IsActive reports whether a run is in progress (running or paused).
func (s *Scheduler) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsRunning
}

// Start begins a run. A non-empty singleLinkID pins the run to that link.
// Rejected commands leave the state untouched and write no log entry.
func (s *Scheduler) Start(ctx context.Context, singleLinkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsRunning {
		return domain.NewDomainError("Cycle.Start", domain.ErrAlreadyRunning, "")
	}

	links, err := s.stores.Links.LoadLinks(ctx)
	if err != nil {
		return domain.WrapOp("Cycle.Start", fmt.Errorf("load links: %w", err))
	}
	settings, err := s.stores.Settings.LoadSettings(ctx)
	if err != nil {
		return domain.WrapOp("Cycle.Start", fmt.Errorf("load settings: %w", err))
	}

	enabled := domain.EnabledLinks(links)
	if len(enabled) == 0 {
		return domain.NewDomainError("Cycle.Start", domain.ErrNoEnabledLinks, "")
	}

	pin := singleLinkID
	if pin != "" {
		idx := domain.IndexOfLink(links, pin)
		if idx < 0 || !links[idx].Enabled {
			return domain.NewDomainError("Cycle.Start", domain.ErrLinkNotEnabled, pin)
		}
	}

	s.state = domain.IdleRunState()
	s.state.IsRunning = true
	s.state.SingleLoopLinkID = pin

	var msg string
	if pin != "" {
		msg = fmt.Sprintf("Single link loop started for %q.", links[domain.IndexOfLink(links, pin)].Title)
	} else {
		msg = fmt.Sprintf("Loop started in %s mode.", settings.Mode)
	}
	s.appendLog(ctx, domain.LogStart, msg)
	s.publish(ctx, domain.EventCycleStarted)
	s.logger.Info("cycle started", "mode", string(settings.Mode), "pinned", pin)

	s.armLocked(s.config.StartupDelay)
	return nil
}

// Pause suspends a running cycle. No-op unless running and not paused.
func (s *Scheduler) Pause(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsRunning || s.state.IsPaused {
		return
	}
	s.cancelTimerLocked()
	s.closeDisplayLocked(ctx)
	s.state.IsPaused = true
	s.state.ActiveLinkID = ""

	s.appendLog(ctx, domain.LogPause, "Loop paused.")
	s.publish(ctx, domain.EventCyclePaused)
	s.logger.Info("cycle paused", "total", s.state.TotalIterationCount)
}

// Resume continues a paused cycle and ticks immediately. No-op unless paused.
func (s *Scheduler) Resume(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsPaused {
		return
	}
	s.state.IsPaused = false

	s.appendLog(ctx, domain.LogResume, "Loop resumed.")
	s.publish(ctx, domain.EventCycleResumed)
	s.logger.Info("cycle resumed")

	s.tickLocked(ctx)
}

// Stop ends the run and resets the state. Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop(ctx context.Context, reason domain.StopReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx, reason)
}

func (s *Scheduler) stopLocked(ctx context.Context, reason domain.StopReason) {
	wasRunning := s.state.IsRunning

	s.cancelTimerLocked()
	s.closeDisplayLocked(ctx)
	s.state = domain.IdleRunState()

	if !wasRunning {
		return
	}
	switch reason {
	case domain.StopFinished:
		s.appendLog(ctx, domain.LogFinish, "All loop cycles completed.")
	case domain.StopError:
		s.appendLog(ctx, domain.LogError, "Loop stopped due to an error.")
	default:
		s.appendLog(ctx, domain.LogStop, "Loop stopped by user.")
	}
	s.publishPayload(ctx, domain.EventCycleStopped, map[string]string{"reason": string(reason)})
	s.logger.Info("cycle stopped", "reason", string(reason))
}

// tickLocked runs one cycle: select, count, display, log, re-arm.
func (s *Scheduler) tickLocked(ctx context.Context) {
	if !s.state.IsRunning || s.state.IsPaused {
		return
	}

	ctx, span := tracer.StartSpan(ctx, "cycle.tick")
	defer span.End()

	links, err := s.stores.Links.LoadLinks(ctx)
	if err == nil {
		var settings domain.Settings
		settings, err = s.stores.Settings.LoadSettings(ctx)
		if err == nil {
			s.advanceLocked(ctx, links, settings)
			tracer.SetOK(span)
			return
		}
	}

	tracer.RecordError(span, err)
	s.logger.Error("cycle tick: read snapshot", "error", err)
	s.stopLocked(ctx, domain.StopError)
}

func (s *Scheduler) advanceLocked(ctx context.Context, links []domain.Link, settings domain.Settings) {
	if settings.MaxTotalIterations > 0 && s.state.TotalIterationCount >= settings.MaxTotalIterations {
		s.logger.Debug("cycle iteration cap reached", "cap", settings.MaxTotalIterations)
		s.stopLocked(ctx, domain.StopFinished)
		return
	}

	sel, ok := SelectNext(SelectInput{
		Links:        links,
		Visits:       s.state.PerLinkVisitCount,
		Mode:         settings.Mode,
		PinnedLinkID: s.state.SingleLoopLinkID,
		CurrentIndex: s.state.CurrentLinkIndex,
		Intn:         s.config.Intn,
	})
	if !ok {
		s.logger.Debug("cycle selection exhausted")
		s.stopLocked(ctx, domain.StopFinished)
		return
	}

	link := sel.Link
	s.state.CurrentLinkIndex = sel.Index
	s.state.TotalIterationCount++
	s.state.PerLinkVisitCount[link.ID]++
	s.state.ActiveLinkID = link.ID
	visits := s.state.PerLinkVisitCount[link.ID]

	s.closeDisplayLocked(ctx)
	h, err := s.display.Open(ctx, link.URL)
	if err != nil {
		s.logger.Warn("display open failed", "link_id", link.ID, "url", link.URL, "error", err)
		s.appendLog(ctx, domain.LogError, fmt.Sprintf("Could not open %s: %v", link.URL, err))
	} else {
		s.handle = h
	}

	count := fmt.Sprintf("%d", visits)
	if link.Iterations > 0 {
		count = fmt.Sprintf("%d/%d", visits, link.Iterations)
	}
	s.appendLog(ctx, domain.LogLoad, fmt.Sprintf("Loading: %s (%s) - visits: %s", link.Title, link.URL, count))
	s.publish(ctx, domain.EventCycleTick)

	s.armLocked(s.effectiveInterval(link, settings))
}

func (s *Scheduler) effectiveInterval(link domain.Link, settings domain.Settings) time.Duration {
	secs := link.IntervalSec
	if settings.GlobalInterval > 0 {
		secs = settings.GlobalInterval
	}
	d := time.Duration(secs) * time.Second
	if d < s.config.MinInterval {
		d = s.config.MinInterval
	}
	return d
}

func (s *Scheduler) armLocked(d time.Duration) {
	s.cancelTimerLocked()
	gen := s.gen
	s.timer = s.config.Clock.AfterFunc(d, func() { s.onTimer(gen) })
}

func (s *Scheduler) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) onTimer(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.timer = nil
	s.tickLocked(context.Background())
}

func (s *Scheduler) closeDisplayLocked(ctx context.Context) {
	if s.handle == "" {
		return
	}
	if err := s.display.Close(ctx, s.handle); err != nil {
		s.logger.Warn("display close failed", "handle", string(s.handle), "error", err)
	}
	s.handle = ""
}

func (s *Scheduler) appendLog(ctx context.Context, typ domain.LogEventType, msg string) {
	entry := domain.NewLogEntry(s.config.Clock.Now(), typ, msg)
	if err := s.stores.Logs.Append(ctx, entry); err != nil {
		s.logger.Warn("log append failed", "event", string(typ), "error", err)
		return
	}
	if s.bus != nil {
		s.bus.Publish(ctx, domain.NewEvent(domain.EventLogAppended, entry))
	}
}

func (s *Scheduler) publish(ctx context.Context, typ domain.EventType) {
	s.publishPayload(ctx, typ, s.state.Clone())
}

func (s *Scheduler) publishPayload(ctx context.Context, typ domain.EventType, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, domain.NewEvent(typ, payload))
}
