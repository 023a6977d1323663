// Package narrator turns world memory into prompts and sends them to a
// text-completion backend. The memory packages never depend on it.
package narrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/lorekeeper/internal/global"
	"github.com/rcliao/lorekeeper/internal/logger"
	"github.com/rcliao/lorekeeper/internal/manager"
	"github.com/rcliao/lorekeeper/internal/store"
)

// Request is a single completion call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completer generates text from a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Available(ctx context.Context) bool
	Model() string
}

// Journal records prompts and responses.
type Journal interface {
	AppendJournal(ctx context.Context, p store.JournalParams) (*store.JournalEntry, error)
}

// Narration is the outcome of one Narrate call.
type Narration struct {
	Prompt   string   `json:"prompt"`
	Text     string   `json:"text"`
	Model    string   `json:"model"`
	EntryIDs []string `json:"journal_entries,omitempty"`
}

// Narrator builds prompts from a manager and completes them.
type Narrator struct {
	m             *manager.Manager
	c             Completer
	journal       Journal
	temperature   float64
	maxTokens     int
	contextTokens int
}

type Option func(*Narrator)

// WithJournal logs every prompt and response to j.
func WithJournal(j Journal) Option {
	return func(n *Narrator) { n.journal = j }
}

// WithSampling sets temperature and response length.
func WithSampling(temperature float64, maxTokens int) Option {
	return func(n *Narrator) {
		n.temperature = temperature
		n.maxTokens = maxTokens
	}
}

// WithContextTokens sets the token budget of the memory context in the prompt.
func WithContextTokens(tokens int) Option {
	return func(n *Narrator) { n.contextTokens = tokens }
}

func New(m *manager.Manager, c Completer, opts ...Option) *Narrator {
	n := &Narrator{
		m:             m,
		c:             c,
		temperature:   0.7,
		maxTokens:     500,
		contextTokens: manager.DefaultPromptTokens,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Prompt assembles the system and user prompts for a player action. With an
// entity id the entity's own context is used, otherwise the narrative context.
func (n *Narrator) Prompt(action, entityID string) (Request, error) {
	kind := manager.ContextNarrative
	if entityID != "" {
		kind = manager.ContextEntity
	}
	ctxText, err := n.m.PromptContext(kind, entityID, n.contextTokens)
	if err != nil {
		return Request{}, err
	}

	var b strings.Builder
	b.WriteString(ctxText)
	b.WriteString("\n\n")
	if name, ok := n.m.EntityName(entityID); ok {
		fmt.Fprintf(&b, "Respond as %s.\n", name)
	}
	fmt.Fprintf(&b, "Player action: %s\n", strings.TrimSpace(action))

	return Request{
		System:      n.m.PromptTemplate(global.TemplateNarrative),
		Prompt:      b.String(),
		Temperature: n.temperature,
		MaxTokens:   n.maxTokens,
	}, nil
}

// Narrate completes the prompt for action and journals both sides when a
// journal is configured. Journal failures are logged, not returned.
func (n *Narrator) Narrate(ctx context.Context, action, entityID string) (Narration, error) {
	req, err := n.Prompt(action, entityID)
	if err != nil {
		return Narration{}, err
	}

	text, err := n.c.Complete(ctx, req)
	if err != nil {
		return Narration{}, fmt.Errorf("complete with %s: %w", n.c.Model(), err)
	}
	out := Narration{Prompt: req.Prompt, Text: strings.TrimSpace(text), Model: n.c.Model()}

	if n.journal == nil {
		return out, nil
	}
	for _, e := range []store.JournalParams{
		{World: n.m.WorldID(), EntityID: entityID, Kind: store.KindPrompt, Content: action},
		{World: n.m.WorldID(), EntityID: entityID, Kind: store.KindResponse, Content: out.Text},
	} {
		entry, err := n.journal.AppendJournal(ctx, e)
		if err != nil {
			logger.Warn("journal append failed", "world", e.World, "kind", e.Kind, "err", err)
			continue
		}
		out.EntryIDs = append(out.EntryIDs, entry.ID)
	}
	return out, nil
}
