package orchestrator

import (
	"fmt"

	"github.com/MattB543/textpress-matt-test/internal/domain"
)

// SlotStatus is the lifecycle state of one upload slot.
type SlotStatus string

const (
	StatusWaiting  SlotStatus = "waiting"
	StatusInFlight SlotStatus = "in_flight"
	StatusComplete SlotStatus = "complete"
	StatusFailed   SlotStatus = "failed"
)

// Mode selects whether the session combines its slots once they are all complete.
type Mode string

const (
	ModeCombine Mode = "combine"
	ModeSingle  Mode = "single"
)

// Slot is one input bound to one conversion attempt.
type Slot struct {
	Index      int                  `json:"index"`
	Status     SlotStatus           `json:"status"`
	Label      string               `json:"label,omitempty"`
	DocumentID string               `json:"document_id,omitempty"`
	PublicURL  string               `json:"public_url,omitempty"`
	Error      string               `json:"error,omitempty"`
	Attempt    int                  `json:"attempt"`
	Input      *domain.ConvertInput `json:"-"`
	Title      string               `json:"-"`
}

// Session is the whole orchestration state. It is a value: Reduce never mutates its argument.
type Session struct {
	Mode          Mode                   `json:"mode"`
	Slots         []Slot                 `json:"slots"`
	CombinedTitle string                 `json:"combined_title"`
	JoinFired     bool                   `json:"join_fired"`
	Busy          bool                   `json:"busy"`
	LastError     string                 `json:"last_error,omitempty"`
	Result        *domain.CombinedResult `json:"result,omitempty"`
}

// NewSession returns a session with n waiting slots.
func NewSession(mode Mode, n int, combinedTitle string) (Session, error) {
	switch {
	case mode == ModeSingle && n != 1:
		return Session{}, fmt.Errorf("%w: single mode takes exactly one slot, got %d", domain.ErrInvalidSlotCount, n)
	case mode == ModeCombine && n < 2:
		return Session{}, fmt.Errorf("%w: combine mode needs at least two slots, got %d", domain.ErrInvalidSlotCount, n)
	case mode != ModeSingle && mode != ModeCombine:
		return Session{}, fmt.Errorf("unknown mode %q", mode)
	}

	slots := make([]Slot, n)
	for i := range slots {
		slots[i] = Slot{Index: i, Status: StatusWaiting}
	}
	return Session{Mode: mode, Slots: slots, CombinedTitle: combinedTitle}, nil
}

// Clone returns a deep copy safe to hand to observers.
func (s Session) Clone() Session {
	out := s
	out.Slots = append([]Slot(nil), s.Slots...)
	out.Result = s.Result.Clone()
	return out
}

// Event is anything that can change a session.
type Event interface {
	event()
}

// BindInput attaches an input to a waiting or failed slot and starts its conversion.
type BindInput struct {
	Index int
	Input domain.ConvertInput
	Title string
}

// ResetSlot returns a complete or failed slot to waiting.
type ResetSlot struct {
	Index int
}

// SetCombinedTitle edits the title used by the combine call.
type SetCombinedTitle struct {
	Title string
}

// RetryCombine re-evaluates the join after a failed combine.
type RetryCombine struct{}

// ConvertSucceeded reports a finished conversion for a given slot attempt.
type ConvertSucceeded struct {
	Index   int
	Attempt int
	Result  domain.ConvertResult
}

// ConvertFailed reports a rejected conversion for a given slot attempt.
type ConvertFailed struct {
	Index   int
	Attempt int
	Err     string
}

// CombineSucceeded reports the combined artifact.
type CombineSucceeded struct {
	Result domain.CombinedResult
}

// CombineFailed reports a rejected combine call.
type CombineFailed struct {
	Err string
}

func (BindInput) event()        {}
func (ResetSlot) event()        {}
func (SetCombinedTitle) event() {}
func (RetryCombine) event()     {}
func (ConvertSucceeded) event() {}
func (ConvertFailed) event()    {}
func (CombineSucceeded) event() {}
func (CombineFailed) event()    {}

// Effect is work the runtime must perform after a transition.
type Effect interface {
	effect()
}

// StartConvert asks the runtime to convert one slot's input.
type StartConvert struct {
	Index   int
	Attempt int
	Input   domain.ConvertInput
}

// StartCombine asks the runtime to combine the completed documents, in slot order.
type StartCombine struct {
	DocumentIDs   []string
	Titles        []string
	CombinedTitle string
}

// NotifyCombined asks the runtime to hand the result to the completion callback.
type NotifyCombined struct {
	Result domain.CombinedResult
}

func (StartConvert) effect()   {}
func (StartCombine) effect()   {}
func (NotifyCombined) effect() {}

// Reduce applies one event and returns the next session plus the effects to run.
// Command events that are not allowed in the current state return an error and
// the unchanged session. Results for stale attempts are dropped silently.
func Reduce(s Session, e Event) (Session, []Effect, error) {
	next := s.Clone()
	var effects []Effect

	switch ev := e.(type) {
	case BindInput:
		slot, err := next.slot(ev.Index)
		if err != nil {
			return s, nil, err
		}
		switch slot.Status {
		case StatusInFlight, StatusComplete:
			return s, nil, fmt.Errorf("%w: slot %d is %s", domain.ErrSlotBusy, ev.Index, slot.Status)
		case StatusFailed:
			clearSlot(slot)
		}
		input := ev.Input
		slot.Input = &input
		slot.Title = ev.Title
		slot.Status = StatusInFlight
		slot.Attempt++
		next.LastError = ""
		effects = append(effects, StartConvert{Index: slot.Index, Attempt: slot.Attempt, Input: input})

	case ResetSlot:
		slot, err := next.slot(ev.Index)
		if err != nil {
			return s, nil, err
		}
		if slot.Status == StatusInFlight {
			return s, nil, fmt.Errorf("%w: slot %d is %s", domain.ErrSlotBusy, ev.Index, slot.Status)
		}
		clearSlot(slot)

	case SetCombinedTitle:
		if next.JoinFired {
			return s, nil, domain.ErrTitleFrozen
		}
		next.CombinedTitle = ev.Title
		return next, nil, nil

	case RetryCombine:

	case ConvertSucceeded:
		slot, ok := next.current(ev.Index, ev.Attempt)
		if !ok {
			return s, nil, nil
		}
		slot.Status = StatusComplete
		slot.DocumentID = ev.Result.ID
		slot.PublicURL = ev.Result.PublicURL
		slot.Error = ""
		slot.Label = slot.Title
		if slot.Label == "" && slot.Input != nil {
			slot.Label = slot.Input.DisplayName()
		}
		// The converted document replaces the payload.
		slot.Input = nil

	case ConvertFailed:
		slot, ok := next.current(ev.Index, ev.Attempt)
		if !ok {
			return s, nil, nil
		}
		slot.Status = StatusFailed
		slot.Error = ev.Err

	case CombineSucceeded:
		if !next.Busy {
			return s, nil, nil
		}
		next.Busy = false
		result := ev.Result
		next.Result = result.Clone()
		return next, []Effect{NotifyCombined{Result: result}}, nil

	case CombineFailed:
		if !next.Busy {
			return s, nil, nil
		}
		next.Busy = false
		next.JoinFired = false
		next.LastError = ev.Err
		return next, nil, nil

	default:
		return s, nil, fmt.Errorf("unknown event %T", e)
	}

	if combine, ok := evaluateJoin(&next); ok {
		effects = append(effects, combine)
	}
	return next, effects, nil
}

// allComplete reports whether every slot holds a converted document.
func allComplete(s Session) bool {
	if len(s.Slots) == 0 {
		return false
	}
	for _, slot := range s.Slots {
		if slot.Status != StatusComplete {
			return false
		}
	}
	return true
}

// evaluateJoin closes the latch and builds the combine request when the barrier is satisfied.
func evaluateJoin(s *Session) (StartCombine, bool) {
	if s.Mode != ModeCombine || s.JoinFired || s.Busy || !allComplete(*s) {
		return StartCombine{}, false
	}
	s.JoinFired = true
	s.Busy = true
	s.LastError = ""

	req := StartCombine{
		DocumentIDs:   make([]string, len(s.Slots)),
		Titles:        make([]string, len(s.Slots)),
		CombinedTitle: s.CombinedTitle,
	}
	for i, slot := range s.Slots {
		req.DocumentIDs[i] = slot.DocumentID
		req.Titles[i] = slot.Label
	}
	return req, true
}

func (s *Session) slot(index int) (*Slot, error) {
	if index < 0 || index >= len(s.Slots) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", domain.ErrSlotOutOfRange, index, len(s.Slots))
	}
	return &s.Slots[index], nil
}

// current returns the slot only if it is still in flight for the given attempt.
func (s *Session) current(index, attempt int) (*Slot, bool) {
	slot, err := s.slot(index)
	if err != nil || slot.Status != StatusInFlight || slot.Attempt != attempt {
		return nil, false
	}
	return slot, true
}

func clearSlot(slot *Slot) {
	slot.Status = StatusWaiting
	slot.Input = nil
	slot.Title = ""
	slot.DocumentID = ""
	slot.PublicURL = ""
	slot.Label = ""
	slot.Error = ""
}
