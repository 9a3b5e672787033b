// File: internal/jobs/session_watch.go
package jobs

import (
	"context"
	"time"

	"desirius_backend/internal/config"
	"desirius_backend/internal/session"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	watchRunTimeout     = 5 * time.Minute
	refreshTimeout      = 15 * time.Second
	schedulerStopBudget = 10 * time.Second
)

// LiveSessions is the set of browser sessions the watchdog walks.
type LiveSessions interface {
	Sweep()
	Each(fn func(id string, ctrl *session.Controller))
}

// SessionWatchJob periodically closes idle browser sessions and asks every signed-in one to
// refresh with the provider. A revoked or disabled account surfaces as a signed-out event.
type SessionWatchJob struct {
	sessions      LiveSessions
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewSessionWatchJob creates a new SessionWatchJob.
func NewSessionWatchJob(sessions LiveSessions, logger *zap.Logger, cfg *config.Config) *SessionWatchJob {
	scheduler := cron.New(
		cron.WithLogger(NewCronLogger(logger.Named("cron"))),
		cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
	)
	return &SessionWatchJob{
		sessions:      sessions,
		logger:        logger.Named("SessionWatchJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the watchdog.
func (j *SessionWatchJob) SetupAndStart() error {
	jobSpec := j.cfg.SessionRefreshSchedule
	if jobSpec == "" {
		j.logger.Warn("Session watchdog schedule not defined (SESSION_REFRESH_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule session watchdog", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Session watchdog scheduled", zap.String("spec", jobSpec), zap.Int("jobID", int(jobID)))
	j.cronScheduler.Start()
	return nil
}

func (j *SessionWatchJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), watchRunTimeout)
	defer cancel()
	j.Run(ctx)
}

// Run performs one watchdog pass and reports how many sessions were refreshed and how many failed.
func (j *SessionWatchJob) Run(ctx context.Context) (refreshed, failed int) {
	j.sessions.Sweep()

	j.sessions.Each(func(id string, ctrl *session.Controller) {
		if ctx.Err() != nil {
			return
		}
		if st := ctrl.State(); !st.IsAuthenticated {
			return
		}
		rctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()
		if err := ctrl.RefreshSession(rctx); err != nil {
			failed++
			j.logger.Warn("Session refresh failed", zap.String("session", shortSessionID(id)), zap.Error(err))
			return
		}
		refreshed++
	})

	j.logger.Info("Session watchdog run completed", zap.Int("refreshed", refreshed), zap.Int("failed", failed))
	return refreshed, failed
}

// Stop gracefully stops the cron scheduler.
func (j *SessionWatchJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping session watchdog scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Session watchdog scheduler stopped gracefully.")
	case <-time.After(schedulerStopBudget):
		j.logger.Warn("Session watchdog scheduler stop timed out.")
	}
}

func shortSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
