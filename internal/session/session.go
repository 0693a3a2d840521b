// Package session drives one streamed exchange at a time: it resolves the
// request, records the user turn, streams the answer through the renderer and
// records the model turn when the stream completes.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lumen/internal/backend"
	"lumen/internal/conversation"
	"lumen/internal/grounding"
	"lumen/internal/models"
	"lumen/internal/request"
	"lumen/internal/suggest"
)

var (
	ErrBusy       = errors.New("a response is already streaming")
	ErrEmptyInput = errors.New("nothing to send")
	ErrCancelled  = errors.New("response cancelled")
)

type State int

const (
	StateIdle State = iota
	StateDrafting
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrafting:
		return "drafting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Finished reports whether s ends an exchange.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Renderer formats accumulated answer text for display.
type Renderer interface {
	Render(text string) (string, error)
}

// HistorySaver persists the whole conversation after each append.
type HistorySaver interface {
	SaveHistory(msgs []models.Message)
}

// Observer receives progress for the exchange in flight. Calls happen on the
// goroutine running Send.
type Observer interface {
	Started(s Start)
	Progress(p Progress)
	Finished(o Outcome)
}

type Start struct {
	RequestID  string
	Descriptor models.RequestDescriptor
	Turn       models.Message
}

type Progress struct {
	RequestID string
	Text      string
	Rendered  string
	Sources   []models.SourceCard
}

// Outcome describes how an exchange ended. Reply is set only on completion.
type Outcome struct {
	RequestID string
	State     State
	Mode      string
	Text      string
	Rendered  string
	Sources   []models.SourceCard
	Reply     *models.Message
	Actions   []models.Action
	Err       error
}

// Input is what the user submits.
type Input struct {
	Text       string
	Attachment *models.Attachment
	DevMode    bool
	DevConfig  models.DevConfig
}

func (in Input) empty() bool {
	return strings.TrimSpace(in.Text) == "" && in.Attachment == nil
}

type Options struct {
	// MaxReplayMessages caps the prior turns sent with a request; zero sends all.
	MaxReplayMessages int
	// Timeout bounds a single exchange; zero means none.
	Timeout time.Duration
	Now     func() time.Time
}

type Driver struct {
	backend  backend.Backend
	store    *conversation.Store
	saver    HistorySaver
	renderer Renderer
	observer Observer
	log      *zap.Logger
	opts     Options

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	cancelled bool
}

type Option func(*Driver)

func WithRenderer(r Renderer) Option         { return func(d *Driver) { d.renderer = r } }
func WithObserver(o Observer) Option         { return func(d *Driver) { d.observer = o } }
func WithHistorySaver(h HistorySaver) Option { return func(d *Driver) { d.saver = h } }
func WithLogger(l *zap.Logger) Option        { return func(d *Driver) { d.log = l } }
func WithOptions(o Options) Option           { return func(d *Driver) { d.opts = o } }

func New(b backend.Backend, store *conversation.Store, opts ...Option) *Driver {
	d := &Driver{backend: b, store: store, log: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	if d.opts.Now == nil {
		d.opts.Now = now
	}
	if d.observer == nil {
		d.observer = nopObserver{}
	}
	d.log = d.log.Named("session")
	return d
}

func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SetObserver replaces the observer. Safe to call between exchanges.
func (d *Driver) SetObserver(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o == nil {
		o = nopObserver{}
	}
	d.observer = o
}

// Draft moves between idle and drafting as the input gains or loses content.
// It has no effect while a response is streaming.
func (d *Driver) Draft(hasContent bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateStreaming {
		return
	}
	if hasContent {
		d.state = StateDrafting
	} else {
		d.state = StateIdle
	}
}

// Cancel stops the exchange in flight. It reports whether there was one.
func (d *Driver) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateStreaming || d.cancel == nil {
		return false
	}
	d.cancelled = true
	d.cancel()
	return true
}

// Send runs one exchange to completion and blocks until the stream ends.
// It returns ErrEmptyInput or ErrBusy without side effects; otherwise the
// returned error is the outcome's error, if any.
func (d *Driver) Send(ctx context.Context, in Input) (Outcome, error) {
	if in.empty() {
		return Outcome{}, ErrEmptyInput
	}

	d.mu.Lock()
	if d.state == StateStreaming {
		d.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	d.state = StateStreaming
	d.cancelled = false
	var cancel context.CancelFunc
	if d.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	d.cancel = cancel
	observer := d.observer
	d.mu.Unlock()
	defer cancel()

	id := uuid.NewString()
	log := d.log.With(zap.String("request_id", id))

	text := strings.TrimSpace(in.Text)
	desc := request.Configure(text, in.Attachment.Kind(), in.DevMode, in.DevConfig)
	turn := models.NewUserMessage(text, in.Attachment, d.opts.Now())

	prior := d.store.Tail(d.opts.MaxReplayMessages)
	d.store.Append(turn)
	d.save()

	log.Info("stream started",
		zap.String("model", desc.Model),
		zap.String("mode", desc.Mode),
		zap.Int("history", len(prior)),
		zap.Bool("media", in.Attachment != nil),
	)
	observer.Started(Start{RequestID: id, Descriptor: desc, Turn: turn.Clone()})

	req := backend.Request{Descriptor: desc, History: prior, Turn: turn}
	out := Outcome{RequestID: id, Mode: desc.Mode}

	var acc strings.Builder
	var streamErr error
	for frag, err := range d.backend.Stream(ctx, req) {
		if err != nil {
			streamErr = err
			break
		}
		acc.WriteString(frag.Delta())
		if cited, ok := frag.(backend.CitedTextDelta); ok {
			out.Sources = grounding.Extract(cited.Chunks)
		}
		out.Text = acc.String()
		out.Rendered = d.render(out.Text, log)
		observer.Progress(Progress{RequestID: id, Text: out.Text, Rendered: out.Rendered, Sources: out.Sources})
	}
	if streamErr == nil && ctx.Err() != nil {
		streamErr = ctx.Err()
	}

	d.mu.Lock()
	userCancelled := d.cancelled
	d.mu.Unlock()

	switch {
	case streamErr == nil:
		reply := models.NewModelMessage(out.Text, desc.Mode, d.opts.Now())
		d.store.Append(reply)
		d.save()
		out.State = StateCompleted
		out.Reply = &reply
		out.Rendered = d.render(out.Text, log)
		out.Actions = suggest.Suggest("", models.MediaNone, &reply)
		log.Info("stream completed", zap.Int("chars", len(out.Text)), zap.Int("sources", len(out.Sources)))
	case userCancelled && errors.Is(streamErr, context.Canceled):
		out.State = StateCancelled
		out.Err = ErrCancelled
		log.Info("stream cancelled", zap.Int("chars", len(out.Text)))
	default:
		out.State = StateFailed
		out.Err = streamErr
		log.Warn("stream failed", zap.Error(streamErr))
	}

	d.mu.Lock()
	d.state = out.State
	d.cancel = nil
	d.mu.Unlock()

	observer.Finished(out)
	return out, out.Err
}

func (d *Driver) save() {
	if d.saver != nil {
		d.saver.SaveHistory(d.store.Messages())
	}
}

func (d *Driver) render(text string, log *zap.Logger) string {
	if d.renderer == nil {
		return text
	}
	out, err := d.renderer.Render(text)
	if err != nil {
		log.Debug("markdown render failed, showing raw text", zap.Error(err))
		return text
	}
	return out
}

// now drops the monotonic reading so stored timestamps survive a JSON round trip.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

type nopObserver struct{}

func (nopObserver) Started(Start)     {}
func (nopObserver) Progress(Progress) {}
func (nopObserver) Finished(Outcome)  {}
