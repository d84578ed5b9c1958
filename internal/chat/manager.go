package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

// Grounder supplies context passages for a user question.
type Grounder interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.ScoredPassage, error)
}

// Manager runs conversations: it grounds each user message in the indexed
// corpus, asks the generator for an answer, and records both turns. Turns
// within a session are serialized so the history stays an alternating,
// append-only sequence.
type Manager struct {
	store     SessionStore
	grounder  Grounder
	generator Generator
	log       logger.Logger

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

func NewManager(store SessionStore, grounder Grounder, generator Generator, log logger.Logger) *Manager {
	return &Manager{
		store:     store,
		grounder:  grounder,
		generator: generator,
		log:       log.Named("chat"),
		sessions:  make(map[string]*sync.Mutex),
	}
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.sessions[sessionID] = lock
	}
	return lock
}

// PostMessage appends the user turn, produces an assistant turn and appends
// that too. The returned turn is the assistant's. When generation fails the
// user turn is kept and ErrGenerationUnavailable is returned, so the message
// is not lost and a later retry sees it in the history.
func (m *Manager) PostMessage(ctx context.Context, sessionID, text string) (models.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Turn{}, fmt.Errorf("message text is empty")
	}

	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	history, err := m.store.History(ctx, sessionID)
	if err != nil {
		return models.Turn{}, err
	}

	userTurn := models.Turn{
		Role:      models.RoleUser,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Append(ctx, sessionID, userTurn); err != nil {
		return models.Turn{}, err
	}

	if reply, ok := cannedReply(text); ok {
		assistant := models.Turn{
			Role:      models.RoleAssistant,
			Text:      reply,
			CreatedAt: time.Now().UTC(),
		}
		if err := m.store.Append(ctx, sessionID, assistant); err != nil {
			return models.Turn{}, err
		}
		return assistant, nil
	}

	grounding, err := m.grounder.Retrieve(ctx, text, 0)
	if err != nil {
		return models.Turn{}, err
	}

	prompt := buildPrompt(history, grounding, text)
	answer, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		m.log.Error("generation failed",
			logger.String("session_id", sessionID),
			logger.Error(err))
		return models.Turn{}, fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}

	refs := make([]models.PassageRef, 0, len(grounding))
	for _, g := range grounding {
		refs = append(refs, models.PassageRef{
			DocumentID: g.Passage.DocumentID,
			PassageID:  g.Passage.ID,
		})
	}

	assistant := models.Turn{
		Role:      models.RoleAssistant,
		Text:      strings.TrimSpace(answer),
		Grounding: refs,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Append(ctx, sessionID, assistant); err != nil {
		return models.Turn{}, err
	}
	return assistant, nil
}

// History returns the session's turns in order. Unknown sessions yield an
// empty history, not an error.
func (m *Manager) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	return m.store.History(ctx, sessionID)
}

// Clear removes one session. Unknown sessions return models.ErrNotFound.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return m.store.Clear(ctx, sessionID)
}

// ClearAll removes every session and reports how many were dropped.
func (m *Manager) ClearAll(ctx context.Context) (int, error) {
	return m.store.ClearAll(ctx)
}

// Short social messages get canned replies instead of a corpus lookup.
var (
	greetings = map[string]struct{}{
		"hi": {}, "hello": {}, "hey": {}, "hi there": {}, "hello there": {},
		"good morning": {}, "good afternoon": {}, "good evening": {},
	}
	wellBeing = map[string]struct{}{
		"how are you": {}, "how are you?": {}, "how's it going": {},
		"how's it going?": {}, "how are you doing": {}, "how are you doing?": {},
	}
)

func cannedReply(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimRight(normalized, "!.")
	if _, ok := greetings[normalized]; ok {
		return "Hello! Ask me anything about your uploaded documents.", true
	}
	if _, ok := wellBeing[normalized]; ok {
		return "I'm doing well, thanks! What would you like to know about your documents?", true
	}
	return "", false
}

func buildPrompt(history []models.Turn, grounding []models.ScoredPassage, question string) string {
	var sb strings.Builder

	if len(grounding) > 0 {
		sb.WriteString("Based on the following context, please answer the question.\n\nContext:\n")
		for i, g := range grounding {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, strings.TrimSpace(g.Passage.Text)))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No relevant documents were found for this question. ")
		sb.WriteString("Answer from general knowledge and say so.\n\n")
	}

	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, turn := range history {
			sb.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Text))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}
