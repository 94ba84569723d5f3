// Package orchestrator drives a fixed set of upload slots through conversion and,
// once every slot is complete, issues exactly one combine call.
//
// State changes go through Reduce, a pure function. The Orchestrator serializes
// events under one lock so the join check happens in the same step as the
// transition that satisfied it; network calls run outside the lock and report
// back as events.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	"github.com/MattB543/textpress-matt-test/internal/observability"
	apperrors "github.com/MattB543/textpress-matt-test/pkg/errors"

	"golang.org/x/sync/semaphore"
)

const (
	DefaultConvertTimeout        = 60 * time.Second
	DefaultCombineTimeout        = 60 * time.Second
	DefaultMaxConcurrentConverts = 4

	subscriberBuffer = 16
)

// Options configures an Orchestrator.
type Options struct {
	Mode                  Mode
	Slots                 int
	CombinedTitle         string
	ConvertTimeout        time.Duration
	CombineTimeout        time.Duration
	MaxConcurrentConverts int
	// OnCombined is called once, from a background goroutine, with the combined result.
	OnCombined func(domain.CombinedResult)
	Logger     domain.Logger
}

// Orchestrator owns one session and the goroutines working on it.
type Orchestrator struct {
	mu          sync.Mutex
	session     Session
	transport   domain.Transport
	logger      domain.Logger
	opts        Options
	sem         *semaphore.Weighted
	ctx         context.Context
	cancel      context.CancelFunc
	subscribers map[int]chan Session
	nextSubID   int
	closed      bool
	wg          sync.WaitGroup
}

// New creates an orchestrator with all slots waiting.
func New(transport domain.Transport, opts Options) (*Orchestrator, error) {
	if transport == nil {
		return nil, errors.New("orchestrator: nil transport")
	}
	if opts.Mode == "" {
		opts.Mode = ModeCombine
	}
	session, err := NewSession(opts.Mode, opts.Slots, opts.CombinedTitle)
	if err != nil {
		return nil, err
	}
	if opts.ConvertTimeout <= 0 {
		opts.ConvertTimeout = DefaultConvertTimeout
	}
	if opts.CombineTimeout <= 0 {
		opts.CombineTimeout = DefaultCombineTimeout
	}
	if opts.MaxConcurrentConverts <= 0 {
		opts.MaxConcurrentConverts = DefaultMaxConcurrentConverts
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		session:     session,
		transport:   transport,
		logger:      opts.Logger,
		opts:        opts,
		sem:         semaphore.NewWeighted(int64(opts.MaxConcurrentConverts)),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[int]chan Session),
	}, nil
}

// BindInput binds an input to a waiting or failed slot and starts converting it.
// An empty title defaults the slot label to the input's display name.
func (o *Orchestrator) BindInput(index int, input domain.ConvertInput, title string) error {
	return o.dispatch(BindInput{Index: index, Input: input, Title: title})
}

// ResetSlot returns a complete or failed slot to waiting.
func (o *Orchestrator) ResetSlot(index int) error {
	return o.dispatch(ResetSlot{Index: index})
}

// SetCombinedTitle edits the combined title until the combine call has been issued.
func (o *Orchestrator) SetCombinedTitle(title string) error {
	return o.dispatch(SetCombinedTitle{Title: title})
}

// RetryCombine re-evaluates the join; it issues a combine only if every slot is
// complete and no combine is outstanding or has succeeded.
func (o *Orchestrator) RetryCombine() error {
	return o.dispatch(RetryCombine{})
}

// Snapshot returns a copy of the current session.
func (o *Orchestrator) Snapshot() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Clone()
}

// Subscribe returns a channel that receives the current session and then a
// snapshot after every transition. A slow reader only loses intermediate
// snapshots; the newest one is always delivered. The channel is closed by the
// returned cancel func or by Close.
func (o *Orchestrator) Subscribe() (<-chan Session, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan Session, subscriberBuffer)
	if o.closed {
		ch <- o.session.Clone()
		close(ch)
		return ch, func() {}
	}

	id := o.nextSubID
	o.nextSubID++
	o.subscribers[id] = ch
	ch <- o.session.Clone()

	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if sub, ok := o.subscribers[id]; ok {
			delete(o.subscribers, id)
			close(sub)
		}
	}
}

// Close abandons the session: in-flight calls are cancelled, their results are
// dropped and subscriber channels are closed. It does not wait; see Wait.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.cancel()
	for id, ch := range o.subscribers {
		close(ch)
		delete(o.subscribers, id)
	}
}

// Wait blocks until every background convert and combine call has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) dispatch(e Event) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return domain.ErrSessionClosed
	}

	prev := o.session
	next, effects, err := Reduce(prev, e)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.session = next
	o.logTransitions(prev, next)
	o.publishLocked(next)
	for _, eff := range effects {
		switch eff.(type) {
		case StartConvert, StartCombine:
			o.wg.Add(1)
		}
	}
	o.mu.Unlock()

	for _, eff := range effects {
		switch eff := eff.(type) {
		case StartConvert:
			go o.convert(eff)
		case StartCombine:
			go o.combine(eff)
		case NotifyCombined:
			if o.opts.OnCombined != nil {
				o.opts.OnCombined(eff.Result)
			}
		}
	}
	return nil
}

func (o *Orchestrator) convert(eff StartConvert) {
	defer o.wg.Done()

	if err := o.sem.Acquire(o.ctx, 1); err != nil {
		return
	}
	defer o.sem.Release(1)

	ctx, cancel := context.WithTimeout(o.ctx, o.opts.ConvertTimeout)
	defer cancel()

	start := time.Now()
	result, err := o.transport.Convert(ctx, eff.Input)
	if err == nil && result == nil {
		err = errInvalidResponse
	}
	if err != nil {
		observability.RecordConvert(observability.OutcomeFailed, time.Since(start))
		o.logger.Warn("Convert failed", "slot", eff.Index, "attempt", eff.Attempt, "error", err)
		_ = o.dispatch(ConvertFailed{Index: eff.Index, Attempt: eff.Attempt, Err: failureMessage(err)})
		return
	}
	observability.RecordConvert(observability.OutcomeSuccess, time.Since(start))
	_ = o.dispatch(ConvertSucceeded{Index: eff.Index, Attempt: eff.Attempt, Result: *result})
}

func (o *Orchestrator) combine(eff StartCombine) {
	defer o.wg.Done()

	ctx, cancel := context.WithTimeout(o.ctx, o.opts.CombineTimeout)
	defer cancel()

	o.logger.Info("Combining documents", "count", len(eff.DocumentIDs), "combined_title", eff.CombinedTitle)
	start := time.Now()
	result, err := o.transport.Combine(ctx, eff.DocumentIDs, eff.Titles, eff.CombinedTitle)
	if err == nil && result == nil {
		err = errInvalidResponse
	}
	if err != nil {
		observability.RecordCombine(observability.OutcomeFailed, time.Since(start))
		o.logger.Error("Combine failed", err, "count", len(eff.DocumentIDs))
		_ = o.dispatch(CombineFailed{Err: failureMessage(err)})
		return
	}
	observability.RecordCombine(observability.OutcomeSuccess, time.Since(start))
	o.logger.Info("Combine complete", "id", result.ID, "public_url", result.PublicURL)
	_ = o.dispatch(CombineSucceeded{Result: *result})
}

func (o *Orchestrator) publishLocked(s Session) {
	for _, ch := range o.subscribers {
		snap := s.Clone()
		select {
		case ch <- snap:
			continue
		default:
		}
		// Full: drop the oldest queued snapshot.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (o *Orchestrator) logTransitions(prev, next Session) {
	for i := range next.Slots {
		if prev.Slots[i].Status != next.Slots[i].Status {
			o.logger.Debug("Slot transition",
				"slot", i,
				"from", string(prev.Slots[i].Status),
				"to", string(next.Slots[i].Status),
				"attempt", next.Slots[i].Attempt,
			)
		}
	}
	if !prev.JoinFired && next.JoinFired {
		o.logger.Debug("Join fired", "slots", len(next.Slots))
	}
}

// failureMessage is the text shown next to a failed slot or session.
// errInvalidResponse stands in for a transport that returned neither a result nor an error.
var errInvalidResponse = apperrors.NewTransportError("Invalid response from server", nil)

func failureMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Message + " (" + appErr.Details + ")"
		}
		return appErr.Message
	}
	return err.Error()
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Error(string, error, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})         {}
