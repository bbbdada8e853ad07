package scheduling

import (
	"context"
	"errors"

	"clickloop/internal/domain"
)

// CycleController is the part of the cycle scheduler that autostart drives.
type CycleController interface {
	Start(ctx context.Context, singleLinkID string) error
	Stop(ctx context.Context, reason domain.StopReason)
}

// AutostartConfig holds the schedule for unattended runs. Empty fields are skipped.
type AutostartConfig struct {
	Start string
	Stop  string
}

// RegisterCycleActions wires cycle_start and cycle_stop to c. bus may be nil.
func RegisterCycleActions(s *Scheduler, c CycleController, bus domain.EventBus) {
	s.RegisterAction(ActionCycleStart, func(ctx context.Context) error {
		err := c.Start(ctx, "")
		if errors.Is(err, domain.ErrAlreadyRunning) {
			s.logger.Debug("autostart: cycle already running")
			err = nil
		}
		if err == nil {
			publishFired(ctx, bus, ActionCycleStart)
		}
		return err
	})
	s.RegisterAction(ActionCycleStop, func(ctx context.Context) error {
		c.Stop(ctx, domain.StopManual)
		publishFired(ctx, bus, ActionCycleStop)
		return nil
	})
}

// ConfigureAutostart adds the start/stop tasks described by cfg.
func ConfigureAutostart(s *Scheduler, cfg AutostartConfig) error {
	if cfg.Start != "" {
		if err := s.AddTask(ScheduledTask{Name: "autostart", Schedule: cfg.Start, Action: ActionCycleStart}); err != nil {
			return err
		}
	}
	if cfg.Stop != "" {
		if err := s.AddTask(ScheduledTask{Name: "autostop", Schedule: cfg.Stop, Action: ActionCycleStop}); err != nil {
			return err
		}
	}
	return nil
}

func publishFired(ctx context.Context, bus domain.EventBus, action ScheduledAction) {
	if bus == nil {
		return
	}
	bus.Publish(ctx, domain.NewEvent(domain.EventCycleSchedule, map[string]string{"action": string(action)}))
}
