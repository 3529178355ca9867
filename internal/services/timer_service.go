package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"overlay-widgets/internal/domain"
	apperrors "overlay-widgets/internal/errors"
	"overlay-widgets/internal/events"
	"overlay-widgets/internal/repository"
)

// timerServiceImpl implements the TimerService interface
type timerServiceImpl struct {
	repo      repository.Repository
	clock     clockwork.Clock
	publisher events.Publisher
	mapper    *domain.Mapper
}

// NewTimerService creates a new TimerService. A nil publisher discards events.
func NewTimerService(repo repository.Repository, clock clockwork.Clock, publisher events.Publisher) TimerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &timerServiceImpl{
		repo:      repo,
		clock:     clock,
		publisher: publisher,
		mapper:    domain.NewMapper(),
	}
}

// now is truncated to the millisecond precision timers are stored with
func (s *timerServiceImpl) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

func (s *timerServiceImpl) load(ctx context.Context, id string) (domain.Timer, error) {
	record, err := s.repo.GetTimer(ctx, id)
	if err != nil {
		return domain.Timer{}, err
	}
	return s.mapper.Timer.FromRecord(*record), nil
}

// save writes timer if nobody else wrote it since it was loaded, and moves
// timer.Version to the stored version
func (s *timerServiceImpl) save(ctx context.Context, timer *domain.Timer) error {
	record := s.mapper.Timer.ToRecord(*timer)
	if err := s.repo.UpdateTimer(ctx, &record); err != nil {
		return err
	}
	timer.Version = record.Version
	return nil
}

// maxWriteAttempts bounds how often a write that lost to a concurrent update
// is retried against the fresh row
const maxWriteAttempts = 5

func isConflict(err error) bool {
	return apperrors.IsErrorType(err, apperrors.ErrorTypeConflict)
}

func (s *timerServiceImpl) CreateTimer(ctx context.Context, name string, settings domain.TimerSettings) (*TimerSnapshot, error) {
	now := s.now()
	timer, err := domain.NewTimer(uuid.NewString(), name, settings, now)
	if err != nil {
		return nil, err
	}

	record := s.mapper.Timer.ToRecord(timer)
	if err := s.repo.CreateTimer(ctx, &record); err != nil {
		return nil, err
	}

	log.Info().Str("timer_id", timer.ID).Str("name", timer.Name).Msg("timer created")

	snapshot := &TimerSnapshot{
		Timer:     timer,
		Remaining: timer.State.RemainingAtLastAction,
		AsOf:      now,
	}
	s.publishChanges(ctx, domain.Timer{}, snapshot)
	return snapshot, nil
}

func (s *timerServiceImpl) GetTimer(ctx context.Context, id string) (*domain.Timer, error) {
	timer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &timer, nil
}

// ListTimers reconciles every timer, persisting those that changed phase
func (s *timerServiceImpl) ListTimers(ctx context.Context) ([]*TimerSnapshot, error) {
	records, err := s.repo.ListTimers(ctx)
	if err != nil {
		return nil, err
	}
	return s.syncRecords(ctx, records)
}

func (s *timerServiceImpl) DeleteTimer(ctx context.Context, id string) error {
	if err := s.repo.DeleteTimer(ctx, id); err != nil {
		return err
	}

	log.Info().Str("timer_id", id).Msg("timer deleted")
	s.publish(ctx, events.EventTimerDeleted, id, s.now(), nil)
	return nil
}

// SyncTimer reconciles the timer to the current time. The result is only
// written back when a phase transition happened: reconciling the stored
// state later gives the same answer otherwise. Events are published only by
// the call whose write landed.
func (s *timerServiceImpl) SyncTimer(ctx context.Context, id string) (*TimerSnapshot, error) {
	for attempt := 1; ; attempt++ {
		timer, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		snapshot, err := s.sync(ctx, timer)
		if isConflict(err) && attempt < maxWriteAttempts {
			log.Debug().Str("timer_id", id).Int("attempt", attempt).Msg("timer changed while syncing, retrying")
			continue
		}
		return snapshot, err
	}
}

func (s *timerServiceImpl) sync(ctx context.Context, timer domain.Timer) (*TimerSnapshot, error) {
	now := s.now()
	before := timer

	state, remaining, err := domain.Reconcile(timer.State, now)
	if err != nil {
		return nil, fmt.Errorf("reconcile timer %s: %w", timer.ID, err)
	}
	timer.State = state

	snapshot := &TimerSnapshot{
		Timer:        timer,
		Remaining:    remaining,
		AsOf:         now,
		PhaseChanged: transitioned(before.State, state),
		GoalReached:  domain.GoalCrossed(before.State.CyclesCompleted, state.CyclesCompleted, timer.CycleGoal),
	}
	if !snapshot.PhaseChanged {
		return snapshot, nil
	}

	snapshot.Timer.UpdatedAt = now
	if err := s.save(ctx, &snapshot.Timer); err != nil {
		return nil, err
	}

	log.Debug().
		Str("timer_id", timer.ID).
		Str("phase", string(state.Phase)).
		Int("cycles_completed", state.CyclesCompleted).
		Msg("timer caught up")
	s.publishChanges(ctx, before, snapshot)
	return snapshot, nil
}

// SyncRunningTimers reconciles every running timer. A failure on one timer
// does not stop the others; all failures are returned together.
func (s *timerServiceImpl) SyncRunningTimers(ctx context.Context) ([]*TimerSnapshot, error) {
	records, err := s.repo.ListRunningTimers(ctx)
	if err != nil {
		return nil, err
	}
	return s.syncRecords(ctx, records)
}

func (s *timerServiceImpl) syncRecords(ctx context.Context, records []*repository.TimerRecord) ([]*TimerSnapshot, error) {
	snapshots := make([]*TimerSnapshot, 0, len(records))
	var errs []error
	for _, record := range records {
		snapshot, err := s.sync(ctx, s.mapper.Timer.FromRecord(*record))
		if isConflict(err) {
			snapshot, err = s.SyncTimer(ctx, record.ID)
			if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
				continue
			}
		}
		if err != nil {
			log.Error().Err(err).Str("timer_id", record.ID).Msg("failed to sync timer")
			errs = append(errs, err)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, errors.Join(errs...)
}

// CurrentState returns the reconciled timer as an event payload
func (s *timerServiceImpl) CurrentState(ctx context.Context, id string) (events.TimerPayload, error) {
	snapshot, err := s.SyncTimer(ctx, id)
	if err != nil {
		return events.TimerPayload{}, err
	}
	return events.NewTimerPayload(snapshot.Timer, snapshot.Remaining, snapshot.AsOf), nil
}

func (s *timerServiceImpl) PauseTimer(ctx context.Context, id string) (*TimerSnapshot, error) {
	return s.apply(ctx, id, "pause", func(timer *domain.Timer, now time.Time) (domain.TimerState, error) {
		return domain.Pause(timer.State, now)
	})
}

func (s *timerServiceImpl) ResumeTimer(ctx context.Context, id string) (*TimerSnapshot, error) {
	return s.apply(ctx, id, "resume", func(timer *domain.Timer, now time.Time) (domain.TimerState, error) {
		return domain.Resume(timer.State, now)
	})
}

func (s *timerServiceImpl) SkipPhase(ctx context.Context, id string) (*TimerSnapshot, error) {
	return s.apply(ctx, id, "skip", func(timer *domain.Timer, now time.Time) (domain.TimerState, error) {
		return domain.Skip(timer.State, now)
	})
}

func (s *timerServiceImpl) AdjustTimer(ctx context.Context, id string, delta time.Duration) (*TimerSnapshot, error) {
	return s.apply(ctx, id, "adjust", func(timer *domain.Timer, now time.Time) (domain.TimerState, error) {
		return domain.Adjust(timer.State, now, delta)
	})
}

func (s *timerServiceImpl) ResetTimer(ctx context.Context, id string) (*TimerSnapshot, error) {
	return s.apply(ctx, id, "reset", func(timer *domain.Timer, now time.Time) (domain.TimerState, error) {
		return domain.Reset(timer.State, now)
	})
}

func (s *timerServiceImpl) ConfigureTimer(ctx context.Context, id string, settings domain.TimerSettings) (*TimerSnapshot, error) {
	return s.apply(ctx, id, "configure", func(timer *domain.Timer, now time.Time) (domain.TimerState, error) {
		state, err := domain.Reconfigure(timer.State, now, settings.WorkDuration, settings.BreakDuration)
		if err != nil {
			return state, err
		}
		timer.CycleGoal = settings.CycleGoal
		return state, nil
	})
}

type controlFunc func(timer *domain.Timer, now time.Time) (domain.TimerState, error)

// apply runs a control against the stored timer and persists the result.
// A write that lost to a concurrent update reruns the control on the fresh
// row.
func (s *timerServiceImpl) apply(ctx context.Context, id, action string, control controlFunc) (*TimerSnapshot, error) {
	for attempt := 1; ; attempt++ {
		snapshot, err := s.applyOnce(ctx, id, action, control)
		if isConflict(err) && attempt < maxWriteAttempts {
			log.Debug().Str("timer_id", id).Str("action", action).Int("attempt", attempt).Msg("timer changed while updating, retrying")
			continue
		}
		return snapshot, err
	}
}

func (s *timerServiceImpl) applyOnce(ctx context.Context, id, action string, control controlFunc) (*TimerSnapshot, error) {
	timer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	before := timer
	now := s.now()

	state, err := control(&timer, now)
	if err != nil {
		return nil, fmt.Errorf("%s timer %s: %w", action, id, err)
	}
	timer.State = state
	timer.UpdatedAt = now

	if err := s.save(ctx, &timer); err != nil {
		return nil, err
	}

	log.Info().
		Str("timer_id", id).
		Str("action", action).
		Str("phase", string(state.Phase)).
		Bool("paused", state.IsPaused).
		Msg("timer updated")

	snapshot := &TimerSnapshot{
		Timer:        timer,
		Remaining:    state.RemainingAtLastAction,
		AsOf:         now,
		PhaseChanged: transitioned(before.State, state),
		GoalReached:  domain.GoalCrossed(before.State.CyclesCompleted, state.CyclesCompleted, timer.CycleGoal),
	}
	s.publishChanges(ctx, before, snapshot)
	return snapshot, nil
}

// transitioned reports whether any phase boundary lies between before and
// after. A whole work and break cycle returns to the same phase but always
// completes a cycle.
func transitioned(before, after domain.TimerState) bool {
	return before.Phase != after.Phase || before.CyclesCompleted != after.CyclesCompleted
}

// publishChanges emits timer.updated, plus phase and goal events when the
// snapshot says they happened
func (s *timerServiceImpl) publishChanges(ctx context.Context, before domain.Timer, snapshot *TimerSnapshot) {
	timer := snapshot.Timer
	s.publish(ctx, events.EventTimerUpdated, timer.ID, snapshot.AsOf,
		events.NewTimerPayload(timer, snapshot.Remaining, snapshot.AsOf))

	if snapshot.PhaseChanged {
		s.publish(ctx, events.EventPhaseChanged, timer.ID, snapshot.AsOf, events.PhaseChangedPayload{
			From:            string(before.State.Phase),
			To:              string(timer.State.Phase),
			CyclesCompleted: timer.State.CyclesCompleted,
		})
	}

	if snapshot.GoalReached {
		log.Info().Str("timer_id", timer.ID).Int("cycle_goal", timer.CycleGoal).Msg("cycle goal reached")
		s.publish(ctx, events.EventGoalReached, timer.ID, snapshot.AsOf, events.GoalReachedPayload{
			CycleGoal:       timer.CycleGoal,
			CyclesCompleted: timer.State.CyclesCompleted,
		})
	}
}

// publish never fails the caller; delivery problems are only logged
func (s *timerServiceImpl) publish(ctx context.Context, eventType events.EventType, timerID string, at time.Time, data interface{}) {
	event, err := events.NewEvent(eventType, timerID, at, data)
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("timer_id", timerID).
			Str("event_type", string(eventType)).
			Msg("failed to publish timer event")
	}
}
