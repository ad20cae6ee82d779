package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"svcmon/internal/config"
	"svcmon/pkg/logx"
)

// Serve runs a pass on every tick of spec until ctx is done. Runs never
// overlap; a tick that fires while a pass is still reporting is skipped.
//
// Passes are detached from ctx: cancellation stops new passes from starting
// and Serve returns once the in-flight pass has finished.
func (a *Agent) Serve(ctx context.Context, spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("agent: empty schedule")
	}

	cl := cronLogger{log: a.log.With(logx.String("component", "scheduler"))}
	c := cron.New(
		cron.WithParser(config.ScheduleParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	runCtx := context.WithoutCancel(ctx)
	if _, err := c.AddFunc(spec, func() {
		// Run logs its own outcome; a failed pass must not stop the schedule.
		_ = a.Run(runCtx)
	}); err != nil {
		return fmt.Errorf("agent: schedule %q: %w", spec, err)
	}

	a.log.Info("scheduler started", logx.String("schedule", spec), logx.Strs("services", a.opts.Services))
	c.Start()

	<-ctx.Done()
	a.log.Info("scheduler stopping; waiting for in-flight run")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts logx.Logger to cron.Logger.
type cronLogger struct {
	log logx.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, logx.Any("extra", kv[len(kv)-1]))
	}
	return out
}
