// Package app holds the interactive application state and the transitions the
// UI triggers on it. The terminal UI only reads snapshots and calls methods
// here; it never mutates state directly.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"lumen/internal/conversation"
	"lumen/internal/media"
	"lumen/internal/models"
	"lumen/internal/request"
	"lumen/internal/session"
	"lumen/internal/suggest"
)

// Persistence is the subset of the persistence adapter the controller needs.
type Persistence interface {
	LoadDevConfig() models.DevConfig
	SaveDevConfig(cfg models.DevConfig)
	LoadDevMode() bool
	SaveDevMode(on bool)
}

// State is a read-only snapshot of the application.
type State struct {
	Input     string
	Pending   *models.Attachment
	DevMode   bool
	DevConfig models.DevConfig

	// Preview is the request the current input would send.
	Preview models.RequestDescriptor
	Actions []models.Action

	// Sources belong to the most recent exchange.
	Sources []models.SourceCard
	Session session.State
}

type Controller struct {
	store   *conversation.Store
	driver  *session.Driver
	persist Persistence
	log     *zap.Logger

	mu        sync.Mutex
	input     string
	pending   *models.Attachment
	devMode   bool
	devConfig models.DevConfig
	actions   []models.Action
	sources   []models.SourceCard
	// sourcesGen counts writes to sources.
	sourcesGen uint64
}

func New(store *conversation.Store, driver *session.Driver, p Persistence, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		store:     store,
		driver:    driver,
		persist:   p,
		log:       log.Named("app"),
		devMode:   p.LoadDevMode(),
		devConfig: p.LoadDevConfig(),
	}
	c.refreshActions()
	return c
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	var pending *models.Attachment
	if c.pending != nil {
		p := *c.pending
		pending = &p
	}
	return State{
		Input:     c.input,
		Pending:   pending,
		DevMode:   c.devMode,
		DevConfig: c.devConfig,
		Preview:   c.preview(),
		Actions:   append([]models.Action(nil), c.actions...),
		Sources:   append([]models.SourceCard(nil), c.sources...),
		Session:   c.driver.State(),
	}
}

// History returns the conversation so far.
func (c *Controller) History() []models.Message {
	return c.store.Messages()
}

func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
	c.changed()
}

// Attach stages att as the single pending attachment, replacing any other.
func (c *Controller) Attach(att models.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &att
	c.changed()
}

// AttachFile decodes and stages the file at path. Unsupported files leave the
// pending attachment unchanged and return media.ErrUnsupported.
func (c *Controller) AttachFile(path string) error {
	att, err := media.Decode(path)
	if err != nil {
		if errors.Is(err, media.ErrUnsupported) {
			c.log.Debug("ignoring unsupported attachment", zap.String("path", path))
		} else {
			c.log.Warn("attachment failed", zap.String("path", path), zap.Error(err))
		}
		return err
	}
	c.Attach(att)
	return nil
}

func (c *Controller) ClearAttachment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	c.changed()
}

func (c *Controller) ToggleDevMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devMode = !c.devMode
	c.persist.SaveDevMode(c.devMode)
	c.changed()
	return c.devMode
}

// UpdateDevConfig applies fn to a copy of the developer configuration, clamps
// the result and persists it.
func (c *Controller) UpdateDevConfig(fn func(*models.DevConfig)) models.DevConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg := c.devConfig
	fn(&cfg)
	c.devConfig = cfg.Clamp()
	c.persist.SaveDevConfig(c.devConfig)
	c.changed()
	return c.devConfig
}

// UseAction replaces the input with the action's prompt.
func (c *Controller) UseAction(a models.Action) {
	c.SetInput(a.Prompt)
}

// Send submits the current input and blocks until the exchange ends. The
// input and pending attachment are cleared once the send is accepted. A send
// the driver rejects as busy leaves them, and the sources of the exchange in
// flight, untouched.
func (c *Controller) Send(ctx context.Context) (session.Outcome, error) {
	c.mu.Lock()
	in := session.Input{
		Text:       c.input,
		Attachment: c.pending,
		DevMode:    c.devMode,
		DevConfig:  c.devConfig,
	}
	if strings.TrimSpace(in.Text) == "" && in.Attachment == nil {
		c.mu.Unlock()
		return session.Outcome{}, session.ErrEmptyInput
	}
	prevSources := c.sources
	c.input = ""
	c.pending = nil
	c.sources = nil
	c.sourcesGen++
	gen := c.sourcesGen
	c.mu.Unlock()

	out, err := c.driver.Send(ctx, in)

	c.mu.Lock()
	defer c.mu.Unlock()
	if errors.Is(err, session.ErrBusy) {
		if c.input == "" && c.pending == nil {
			c.input = in.Text
			c.pending = in.Attachment
			c.changed()
		}
		if c.sourcesGen == gen {
			c.sources = prevSources
		}
		return out, err
	}
	c.sources = out.Sources
	c.sourcesGen++
	if out.State == session.StateCompleted {
		c.actions = out.Actions
	} else {
		c.refreshActions()
	}
	return out, err
}

func (c *Controller) Cancel() bool {
	return c.driver.Cancel()
}

// changed recomputes derived state after an input mutation. Callers hold c.mu.
func (c *Controller) changed() {
	c.driver.Draft(strings.TrimSpace(c.input) != "" || c.pending != nil)
	c.refreshActions()
}

func (c *Controller) refreshActions() {
	var last *models.Message
	if m, ok := c.store.Last(); ok {
		last = &m
	}
	c.actions = suggest.Suggest(c.input, c.pending.Kind(), last)
}

func (c *Controller) preview() models.RequestDescriptor {
	return request.Configure(strings.TrimSpace(c.input), c.pending.Kind(), c.devMode, c.devConfig)
}
