package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Playfield/internal/clock"
)

const (
	ExpirySweepJobName = "expired_hold_sweep"
	sweepTimeout       = time.Minute
)

// Sweeper reclaims PENDING holds whose deadline has passed.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// RegisterExpirySweep runs sweeper on cronExpr. Runs never overlap; a run
// that is still going when the next one is due delays it.
func RegisterExpirySweep(svc *Service, sweeper Sweeper, c clock.Clock, cronExpr string) (gocron.Job, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("expiry sweep requires a sweeper")
	}
	c = clock.OrReal(c)

	jobLogger := log.With().
		Str("component", "expiry_sweep_job").
		Str("job_name", ExpirySweepJobName).
		Str("cron", cronExpr).
		Logger()

	job, err := svc.AddJob(ExpirySweepJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		now := c.Now()
		reclaimed, err := sweeper.Sweep(ctx, now)
		if err != nil {
			jobLogger.Error().Err(err).Time("now", now).Msg("Expiry sweep failed")
			return
		}
		jobLogger.Debug().Int("reclaimed", reclaimed).Msg("Expiry sweep finished")
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return nil, err
	}

	jobLogger.Info().Msg("Expiry sweep job registered")
	return job, nil
}
