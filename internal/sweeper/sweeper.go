package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fastdo_auth/internal/lib/logger/sl"
	"fastdo_auth/internal/lib/metrics"

	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@daily"

type Cleaner interface {
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper по расписанию удаляет refresh токены с истекшим сроком.
type Sweeper struct {
	log      *slog.Logger
	cleaner  Cleaner
	schedule string
	timeout  time.Duration
	now      func() time.Time

	cron *cron.Cron
}

func New(log *slog.Logger, cleaner Cleaner, schedule string, timeout time.Duration) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	return &Sweeper{
		log:      log,
		cleaner:  cleaner,
		schedule: schedule,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// * Sweep удаляет строки с expires_at < now и возвращает их количество.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	const op = "sweeper.Sweep"

	log := s.log.With(slog.String("op", op))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	deleted, err := s.cleaner.DeleteExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		metrics.SweepErrors.Inc()
		log.Error("failed to delete expired refresh tokens", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RefreshTokensSwept.Add(float64(deleted))

	log.Info("expired refresh tokens deleted", slog.Int64("deleted", deleted))

	return deleted, nil
}

// * Start регистрирует задачу в планировщике и запускает его.
func (s *Sweeper) Start() error {
	const op = "sweeper.Start"

	c := cron.New(
		cron.WithLogger(cronLogger{log: s.log}),
		cron.WithChain(
			cron.Recover(cronLogger{log: s.log}),
			cron.SkipIfStillRunning(cronLogger{log: s.log}),
		),
	)

	_, err := c.AddFunc(s.schedule, func() {
		_, _ = s.Sweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("%s: invalid schedule %q: %w", op, s.schedule, err)
	}

	s.cron = c
	c.Start()

	s.log.Info("sweeper started", slog.String("schedule", s.schedule))

	return nil
}

// * Stop останавливает планировщик и ждет завершения запущенной очистки.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
		s.log.Info("sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]any{sl.Err(err)}, keysAndValues...)...)
}
