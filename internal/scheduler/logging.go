package scheduler

import (
	"context"
	"errors"
	"time"

	auditdomain "github.com/smallbiznis/lis/internal/audit/domain"
	obscontext "github.com/smallbiznis/lis/internal/observability/context"
	obslogger "github.com/smallbiznis/lis/internal/observability/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
)

// jobRun is one execution of one job. Its id doubles as the request id so every
// log line and audit entry written by the job can be correlated.
type jobRun struct {
	job     string
	id      string
	started time.Time
	log     *zap.Logger
}

func (s *Scheduler) beginRun(ctx context.Context, job string) (context.Context, *jobRun) {
	id := s.genID.Generate().String()
	ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	ctx = obscontext.WithRequestID(ctx, id)
	run := &jobRun{
		job:     job,
		id:      id,
		started: time.Now(),
		log:     obslogger.WithContext(ctx, s.log).With(zap.String("job", job)),
	}
	run.log.Debug("job started", zap.Int("batch_size", s.cfg.BatchSize))
	return ctx, run
}

// end logs the result and reports its outcome label. Idle runs log at debug.
func (r *jobRun) end(processed int, err error) string {
	outcome := outcomeOK
	lvl := zapcore.DebugLevel
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		outcome, lvl = outcomeTimeout, zapcore.WarnLevel
	case err != nil:
		outcome, lvl = outcomeError, zapcore.WarnLevel
	case processed > 0:
		lvl = zapcore.InfoLevel
	}

	fields := []zap.Field{
		zap.String("outcome", outcome),
		zap.Int("processed", processed),
		zap.Duration("elapsed", time.Since(r.started)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if ce := r.log.Check(lvl, "job finished"); ce != nil {
		ce.Write(fields...)
	}
	return outcome
}
