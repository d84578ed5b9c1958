package handlers

import (
	"github.com/arigen-tech/docsearch/internal/chat"
	"github.com/arigen-tech/docsearch/internal/search"
	"github.com/arigen-tech/docsearch/internal/service/ingest"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
	Search   *SearchHandler
	Chat     *ChatHandler
}

func NewHandlers(
	ingestService ingest.Service,
	engine *search.Engine,
	manager *chat.Manager,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(ingestService, log),
		Search:   NewSearchHandler(engine, log),
		Chat:     NewChatHandler(manager, log),
	}
}

// ErrorResponse is the wire shape of every handler error.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}
