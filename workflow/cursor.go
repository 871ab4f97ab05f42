// Package workflow implements the guided-procedure step cursor: fetching a
// named workflow from the backend, tracking the current step, and exposing
// next/previous/jump/repeat navigation with boundary checks. Every operation
// returns a spoken string; fetch failures never surface as errors to the
// conversation loop.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/lynkup/aitas/backend"
	"github.com/lynkup/aitas/types"
)

// Service is the slice of the backend API the cursor consumes.
type Service interface {
	ListWorkflows(ctx context.Context) ([]backend.WorkflowSummary, error)
	GetWorkflow(ctx context.Context, id string) ([]backend.Step, error)
}

// Workflow is an immutable fetched procedure. Replaced wholesale when a new
// one is loaded.
type Workflow struct {
	ID          string
	Name        string
	Description string
	Steps       []backend.Step
}

// Cursor tracks the loaded workflow and current step for one Workflow
// specialist instance.
type Cursor struct {
	svc    Service
	cache  *gocache.Cache
	logger *zap.Logger

	current *Workflow
	step    int
}

// NewCursor creates a cursor with a listing cache bounded by ttl.
func NewCursor(svc Service, ttl time.Duration, logger *zap.Logger) *Cursor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cursor{
		svc:    svc,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger.With(zap.String("component", "workflow_cursor")),
	}
}

// Loaded reports whether a workflow is currently loaded.
func (c *Cursor) Loaded() bool { return c.current != nil }

// StepIndex returns the zero-based current step index.
func (c *Cursor) StepIndex() int { return c.step }

// CachedName returns the workflow name previously cached for an id.
func (c *Cursor) CachedName(id string) (string, bool) {
	v, ok := c.cache.Get("id:" + id)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// List fetches the workflow catalog, refreshes the name/id cache, and
// returns a spoken listing. The cursor state does not change.
func (c *Cursor) List(ctx context.Context) string {
	items, err := c.svc.ListWorkflows(ctx)
	if err != nil {
		return fetchApology(err)
	}
	if len(items) == 0 {
		return "There aren't any workflows set up yet."
	}

	names := make([]string, 0, len(items))
	for _, wf := range items {
		c.cache.Set("id:"+wf.ID, wf.Name, gocache.DefaultExpiration)
		c.cache.Set(nameKey(wf.Name), wf, gocache.DefaultExpiration)
		names = append(names, wf.Name)
	}
	c.cache.Set("list", items, gocache.DefaultExpiration)

	return fmt.Sprintf("Here are the workflows I have: %s. Which one would you like?",
		strings.Join(names, ", "))
}

// LoadByID fetches a workflow's steps and positions the cursor at step one.
// On any fetch failure the cursor keeps its previous state.
func (c *Cursor) LoadByID(ctx context.Context, id string) string {
	steps, err := c.svc.GetWorkflow(ctx, id)
	if err != nil {
		return fetchApology(err)
	}

	name := id
	if cached, ok := c.CachedName(id); ok {
		name = cached
	}

	c.current = &Workflow{ID: id, Name: name, Steps: steps}
	c.step = 0

	if len(steps) == 0 {
		return fmt.Sprintf("The workflow '%s' has no steps defined.", name)
	}
	return fmt.Sprintf("Loaded '%s'. Step one: %s", name, steps[0].Description)
}

// LoadByName resolves a spoken name against the listing. Zero matches keeps
// the current state; exactly one delegates to LoadByID; several matches ask
// the user to disambiguate.
func (c *Cursor) LoadByName(ctx context.Context, name string) string {
	matches, err := c.findByName(ctx, name)
	if err != nil {
		return fetchApology(err)
	}

	switch len(matches) {
	case 0:
		return fmt.Sprintf("I couldn't find a workflow called '%s'.", name)
	case 1:
		return c.LoadByID(ctx, matches[0].ID)
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return fmt.Sprintf("I found a few workflows that could match: %s. Which one did you mean?",
			strings.Join(names, ", "))
	}
}

func (c *Cursor) findByName(ctx context.Context, name string) ([]backend.WorkflowSummary, error) {
	if v, ok := c.cache.Get(nameKey(name)); ok {
		wf := v.(backend.WorkflowSummary)
		return []backend.WorkflowSummary{wf}, nil
	}

	var items []backend.WorkflowSummary
	if v, ok := c.cache.Get("list"); ok {
		items = v.([]backend.WorkflowSummary)
	} else {
		fetched, err := c.svc.ListWorkflows(ctx)
		if err != nil {
			return nil, err
		}
		items = fetched
		for _, wf := range items {
			c.cache.Set("id:"+wf.ID, wf.Name, gocache.DefaultExpiration)
			c.cache.Set(nameKey(wf.Name), wf, gocache.DefaultExpiration)
		}
		c.cache.Set("list", items, gocache.DefaultExpiration)
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	var matches []backend.WorkflowSummary
	for _, wf := range items {
		if strings.Contains(strings.ToLower(wf.Name), needle) {
			matches = append(matches, wf)
		}
	}
	return matches, nil
}

// Next advances one step, clamped at the last step.
func (c *Cursor) Next() string {
	if msg, ok := c.guard(); !ok {
		return msg
	}
	if c.step >= len(c.current.Steps)-1 {
		c.step = len(c.current.Steps) - 1
		return fmt.Sprintf("That was the last step, so '%s' is complete. Anything else?", c.current.Name)
	}
	c.step++
	return c.describe()
}

// Previous steps back, clamped at the first step.
func (c *Cursor) Previous() string {
	if msg, ok := c.guard(); !ok {
		return msg
	}
	if c.step <= 0 {
		c.step = 0
		return fmt.Sprintf("We're already at the first step. %s", c.describe())
	}
	c.step--
	return c.describe()
}

// Jump moves to the 1-based step n. Out-of-range values are rejected without
// mutating the index.
func (c *Cursor) Jump(n int) string {
	if msg, ok := c.guard(); !ok {
		return msg
	}
	idx := n - 1
	if idx < 0 || idx >= len(c.current.Steps) {
		return fmt.Sprintf("That's an invalid step number; '%s' has %d steps.",
			c.current.Name, len(c.current.Steps))
	}
	c.step = idx
	return c.describe()
}

// Current re-reports the present step without changing state.
func (c *Cursor) Current() string {
	if msg, ok := c.guard(); !ok {
		return msg
	}
	return c.describe()
}

// guard returns the fixed message for the no-workflow and zero-step cases.
func (c *Cursor) guard() (string, bool) {
	if c.current == nil {
		return "There's no workflow loaded right now. Would you like me to list what's available?", false
	}
	if len(c.current.Steps) == 0 {
		return fmt.Sprintf("The workflow '%s' has no steps defined.", c.current.Name), false
	}
	return "", true
}

func (c *Cursor) describe() string {
	return fmt.Sprintf("Step %d of %d: %s",
		c.step+1, len(c.current.Steps), c.current.Steps[c.step].Description)
}

func nameKey(name string) string {
	return "name:" + strings.ToLower(strings.TrimSpace(name))
}

// fetchApology maps a backend error category to its spoken message.
func fetchApology(err error) string {
	switch types.GetErrorCode(err) {
	case types.ErrConfigMissing:
		return "Sorry, the workflow service isn't configured right now."
	case types.ErrNotFound:
		return "I couldn't find that workflow on the server."
	case types.ErrUpstreamStatus:
		return "The workflow service reported an error. Please try again in a moment."
	case types.ErrMalformedPayload:
		return "I got an answer from the workflow service I couldn't make sense of."
	default:
		return "Sorry, I couldn't reach the workflow service right now."
	}
}
