package nlp

import (
	"context"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
)

// Classifier is the black-box NLP collaborator. Implementations know nothing
// about tickets, sessions or the transport. Every call is synchronous
// request/response; callers own the safe-default degradation on error.
type Classifier interface {
	// Intent labels a message as ventas, soporte or pregunta_general.
	Intent(ctx context.Context, text string) (domain.Intent, error)
	// Sentiment labels the emotional tone of a support request.
	Sentiment(ctx context.Context, text string) (domain.Sentiment, error)
	// Confirm reads a free-text reply as SI or NO.
	Confirm(ctx context.Context, text string) (domain.Confirmation, error)
	// Answer responds to a client question given the dialogue history. The
	// reply may contain the [NO_ANSWER] sentinel when the question exceeds
	// the knowledge base.
	Answer(ctx context.Context, history []domain.ChatTurn) (string, error)
	// SalesReply drives the prospect dialogue. The reply may carry the
	// [DIRECCION_DETECTADA] or [CIERRE_DIRECTO] tag.
	SalesReply(ctx context.Context, history []domain.ChatTurn) (string, error)
}
