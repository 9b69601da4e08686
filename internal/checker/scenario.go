package checker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pagewatch/pagewatch/internal/browser"
	"github.com/pagewatch/pagewatch/internal/types"
)

// scenarioStepTimeout bounds a single interaction step so one stuck
// wait_selector cannot eat the whole check budget
const scenarioStepTimeout = 10 * time.Second

// runScenario executes the monitor's interaction steps against the live
// page before extraction. A failing step is logged and skipped; the
// remaining steps still run. Only context cancellation aborts the list.
func runScenario(ctx context.Context, bctx browser.Context, monitorID string, steps []types.ScenarioStep) {
	for i, step := range steps {
		if ctx.Err() != nil {
			return
		}
		if err := runStep(ctx, bctx, step); err != nil {
			fmt.Fprintf(os.Stderr, "Pipeline: monitor %s scenario step %d (%s) failed: %v\n",
				monitorID, i+1, step.Action, err)
		}
	}
}

func runStep(ctx context.Context, bctx browser.Context, step types.ScenarioStep) error {
	stepCtx, cancel := context.WithTimeout(ctx, scenarioStepTimeout)
	defer cancel()

	switch step.Action {
	case types.ActionWait:
		ms, err := strconv.Atoi(step.Value)
		if err != nil || ms <= 0 {
			ms = 1000
		}
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case types.ActionClick:
		return bctx.Click(stepCtx, step.Selector)
	case types.ActionType:
		return bctx.Type(stepCtx, step.Selector, step.Value)
	case types.ActionWaitSelector:
		return bctx.WaitAttached(stepCtx, step.Selector, scenarioStepTimeout)
	case types.ActionScroll:
		return bctx.ScrollToBottom(stepCtx)
	case types.ActionKey:
		return bctx.PressKey(stepCtx, step.Value)
	default:
		return fmt.Errorf("unknown scenario action: %s", step.Action)
	}
}
