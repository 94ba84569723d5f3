package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	"github.com/MattB543/textpress-matt-test/internal/orchestrator"
)

// slotInput is one positional argument bound to one slot.
type slotInput struct {
	Input domain.ConvertInput
	Title string
}

type slotState struct {
	status  orchestrator.SlotStatus
	attempt int
}

// watcher binds every input, reports progress and re-binds failed slots or
// retries a failed combine up to retries times.
type watcher struct {
	o       *orchestrator.Orchestrator
	inputs  []slotInput
	retries int
	out     io.Writer
}

func (w *watcher) run(ctx context.Context) (orchestrator.Session, error) {
	updates, cancel := w.o.Subscribe()
	defer cancel()

	for i, in := range w.inputs {
		if err := w.o.BindInput(i, in.Input, in.Title); err != nil {
			return w.o.Snapshot(), err
		}
	}

	n := len(w.inputs)
	// Keyed by attempt so stale queued snapshots never trigger a second retry.
	seen := make([]slotState, n)
	slotRetries := make([]int, n)
	combineRetries := 0
	combineReported := false
	failureHandled := false

	for {
		var snap orchestrator.Session
		select {
		case <-ctx.Done():
			return w.o.Snapshot(), ctx.Err()
		case s, open := <-updates:
			if !open {
				return w.o.Snapshot(), domain.ErrSessionClosed
			}
			snap = s
		}

		for i, slot := range snap.Slots {
			state := slotState{slot.Status, slot.Attempt}
			if state == seen[i] {
				continue
			}
			seen[i] = state
			w.report(i, n, slot)

			if slot.Status != orchestrator.StatusFailed {
				continue
			}
			if slotRetries[i] >= w.retries {
				return snap, fmt.Errorf("%s: %s", w.name(i), slot.Error)
			}
			slotRetries[i]++
			fmt.Fprintf(w.out, "[%d/%d] %s: retrying (%d/%d)\n", i+1, n, w.name(i), slotRetries[i], w.retries)
			if err := w.o.BindInput(i, w.inputs[i].Input, w.inputs[i].Title); err != nil {
				return snap, err
			}
		}

		if snap.Mode == orchestrator.ModeSingle {
			if snap.Slots[0].Status == orchestrator.StatusComplete {
				return snap, nil
			}
			continue
		}

		if snap.Result != nil {
			return snap, nil
		}
		if snap.Busy {
			failureHandled = false
			if !combineReported {
				combineReported = true
				fmt.Fprintf(w.out, "Combining %d documents...\n", n)
			}
			continue
		}
		if snap.LastError != "" && !snap.JoinFired && !failureHandled {
			failureHandled = true
			if combineRetries >= w.retries {
				return snap, errors.New("combine failed: " + snap.LastError)
			}
			combineRetries++
			combineReported = false
			fmt.Fprintf(w.out, "Combine failed: %s (retrying %d/%d)\n", snap.LastError, combineRetries, w.retries)
			if err := w.o.RetryCombine(); err != nil {
				return snap, err
			}
		}
	}
}

func (w *watcher) report(i, n int, slot orchestrator.Slot) {
	switch slot.Status {
	case orchestrator.StatusInFlight:
		fmt.Fprintf(w.out, "[%d/%d] %s: converting\n", i+1, n, w.name(i))
	case orchestrator.StatusComplete:
		fmt.Fprintf(w.out, "[%d/%d] %s: %s\n", i+1, n, w.name(i), slot.PublicURL)
	case orchestrator.StatusFailed:
		fmt.Fprintf(w.out, "[%d/%d] %s: failed: %s\n", i+1, n, w.name(i), slot.Error)
	}
}

func (w *watcher) name(i int) string {
	if t := w.inputs[i].Title; t != "" {
		return t
	}
	return w.inputs[i].Input.DisplayName()
}
