package remotewrite

import (
	"context"
	"time"

	"github.com/smallbiznis/lis/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Register starts the push loop when METRICS_REMOTE_WRITE_URL is set. A final push
// runs on shutdown so the last interval is not lost.
func Register(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) error {
	tel := cfg.Telemetry
	if tel.RemoteWriteURL == "" {
		return nil
	}
	p, err := NewPusher(tel.RemoteWriteURL, tel.RemoteWriteToken, nil)
	if err != nil {
		return err
	}
	log = log.Named("remotewrite")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				p.loop(ctx, tel.RemoteWriteInterval, log)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			<-done
			if err := p.Push(stopCtx); err != nil {
				log.Warn("final metrics push failed", zap.Error(err))
			}
			return nil
		},
	})
	return nil
}

func (p *Pusher) loop(ctx context.Context, every time.Duration, log *zap.Logger) {
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
			if err := p.Push(pushCtx); err != nil {
				log.Warn("metrics push failed", zap.Error(err))
			}
			cancel()
		}
	}
}
