package syncengine

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// RunScheduled registers fn to run on the standard five-field cron schedule
// cronExpr and starts the scheduler immediately. The caller is responsible
// for calling Stop on the returned *cron.Cron during shutdown.
//
// This has no counterpart in the core sync protocol: automatic background
// sync is standard handheld-save-sync functionality and is a thin wrapper
// the CLI's schedule subcommand drives, not a new engine operation.
func (e *Engine) RunScheduled(ctx context.Context, cronExpr string, fn func(context.Context) error) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(cronExpr, func() {
		if err := fn(ctx); err != nil {
			e.Logger.Printf("syncengine: scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("syncengine: invalid cron expression %q: %w", cronExpr, err)
	}
	c.Start()
	return c, nil
}
