// Package mutation removes a single listing through the console's delete
// dialogs.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/models"
	"ListingSweeper/internal/scraper"
	"ListingSweeper/utils"
)

// State is a step of the delete protocol.
type State int

const (
	StateIdle State = iota
	StateClicked
	StateConfirmWait
	StateConfirmDone
	StateConfirmSkipped
	StateResultWait
	StateResultDone
	StateResultSkipped
	StateAbsenceWait
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateClicked:        "clicked",
	StateConfirmWait:    "confirm-wait",
	StateConfirmDone:    "confirm-done",
	StateConfirmSkipped: "confirm-skipped",
	StateResultWait:     "result-wait",
	StateResultDone:     "result-done",
	StateResultSkipped:  "result-skipped",
	StateAbsenceWait:    "absence-wait",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Console is the part of the listing console the executor drives.
type Console interface {
	scraper.Dialogs
	WaitRowGone(ctx context.Context, id models.Identity, timeout time.Duration) error
}

// Timeouts bound each wait of the protocol.
type Timeouts struct {
	Confirm         time.Duration
	Result          time.Duration
	DialogDetach    time.Duration
	Absence         time.Duration
	AbsenceFallback time.Duration
}

// Outcome describes how one deletion ended.
type Outcome struct {
	Deleted bool
	// NoControl is set when the row had nothing to click.
	NoControl bool
	Trace     []State
	Err       error
}

// Executor runs the delete protocol for one row at a time.
type Executor struct {
	console  Console
	timeouts Timeouts
	removed  *regexp.Regexp
	log      *logger.Logger
}

// New returns an executor. removed matches the text of the alert dialog that
// reports a successful removal; nil means any alert dialog is acceptable.
func New(console Console, timeouts Timeouts, removed *regexp.Regexp, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{console: console, timeouts: timeouts, removed: removed, log: log}
}

// Delete removes the row at index row, identified by id, and reports whether
// it is believed gone. It never returns an error: failures are logged and
// reported as false so the sweep can continue with the next row.
func (e *Executor) Delete(ctx context.Context, row int, id models.Identity) bool {
	out := e.Run(ctx, row, id)
	if out.Err != nil {
		e.log.LogWarnf("Delete action failed for %s: %v", label(id), out.Err)
	}
	return out.Deleted
}

// Run drives the protocol to a terminal state and returns the full outcome.
func (e *Executor) Run(ctx context.Context, row int, id models.Identity) Outcome {
	out := Outcome{Trace: []State{StateIdle}}
	state := StateIdle
	for state != StateDone && state != StateFailed {
		next, err := e.step(ctx, state, row, id)
		if err != nil {
			if errors.Is(err, scraper.ErrNotFound) && state == StateIdle {
				out.NoControl = true
			} else {
				out.Err = fmt.Errorf("%s: %w", state, err)
			}
			next = StateFailed
		}
		e.log.LogDebugf("delete %s: %s -> %s", label(id), state, next)
		out.Trace = append(out.Trace, next)
		state = next
	}
	out.Deleted = state == StateDone
	return out
}

func (e *Executor) step(ctx context.Context, state State, row int, id models.Identity) (State, error) {
	if err := ctx.Err(); err != nil {
		return StateFailed, err
	}

	switch state {
	case StateIdle:
		if err := e.console.ClickDelete(ctx, row); err != nil {
			return StateFailed, err
		}
		return StateClicked, nil

	case StateClicked:
		return StateConfirmWait, nil

	case StateConfirmWait:
		// Some flows skip the confirmation and go straight to the result.
		if err := e.console.WaitConfirmDialog(ctx, e.timeouts.Confirm); err != nil {
			if ctx.Err() != nil {
				return StateFailed, ctx.Err()
			}
			return StateConfirmSkipped, nil
		}
		if err := e.console.ClickConfirm(ctx); err != nil {
			return StateFailed, err
		}
		return StateConfirmDone, nil

	case StateConfirmDone, StateConfirmSkipped:
		return StateResultWait, nil

	case StateResultWait:
		if err := e.console.WaitAlertDialog(ctx, e.timeouts.Result); err != nil {
			if ctx.Err() != nil {
				return StateFailed, ctx.Err()
			}
			return StateResultSkipped, nil
		}
		return e.dismissResult(ctx)

	case StateResultDone, StateResultSkipped:
		return StateAbsenceWait, nil

	case StateAbsenceWait:
		if err := e.console.WaitRowGone(ctx, id, e.timeouts.Absence); err != nil {
			if ctx.Err() != nil {
				return StateFailed, ctx.Err()
			}
			// The table may lag behind the dialog; assume the removal went through.
			e.log.LogDebugf("row %s still listed after %s, assuming removed", label(id), e.timeouts.Absence)
			if err := utils.Sleep(ctx, e.timeouts.AbsenceFallback); err != nil {
				return StateFailed, err
			}
		}
		return StateDone, nil
	}
	return StateFailed, fmt.Errorf("no transition from %s", state)
}

// dismissResult closes the result dialog, preferring the one that reports the
// removal, through its confirm button or else its close control.
func (e *Executor) dismissResult(ctx context.Context) (State, error) {
	dialogs, err := e.console.AlertDialogs(ctx)
	if err != nil {
		return StateFailed, err
	}
	if len(dialogs) == 0 {
		return StateResultSkipped, nil
	}

	target := dialogs[0]
	if e.removed != nil {
		for _, d := range dialogs {
			if e.removed.MatchString(d.Text) {
				target = d
				break
			}
		}
	}

	clicked := false
	if target.HasConfirm {
		if err := e.console.ClickAlertConfirm(ctx, target.Index); err == nil {
			clicked = true
		} else {
			e.log.LogDebugf("result dialog confirm failed, trying close: %v", err)
		}
	}
	if !clicked {
		if err := e.console.ClickAlertClose(ctx, target.Index); err != nil {
			return StateFailed, err
		}
	}

	if err := e.console.WaitAlertGone(ctx, target.Index, e.timeouts.DialogDetach); err != nil {
		e.log.LogDebugf("result dialog still attached: %v", err)
	}
	return StateResultDone, nil
}

func label(id models.Identity) string {
	if id.Title != "" {
		return id.Title
	}
	return id.GoodsNo
}
