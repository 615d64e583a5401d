package nlp

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spec-kit/isp-routing-engine/internal/config"
	"github.com/spec-kit/isp-routing-engine/internal/domain"
	apperrors "github.com/spec-kit/isp-routing-engine/pkg/util"
)

const intentPrompt = `Sos un clasificador de mensajes de un proveedor de internet.
Respondé con UNA sola palabra: ventas, soporte o pregunta_general.`

const sentimentPrompt = `Clasificá el tono del mensaje del cliente.
Respondé con UNA sola palabra: enojado, frustrado, neutro o contento.`

const confirmPrompt = `El cliente respondió a una pregunta de sí o no.
Respondé únicamente SI o NO. Ante la duda respondé NO.`

const answerPrompt = `Sos el asistente virtual de un proveedor de internet.
Respondé la consulta del cliente de forma breve y cordial en español.
Si no podés responder con certeza, respondé exactamente [NO_ANSWER].`

const salesPrompt = `Sos un vendedor del proveedor de internet. Guiá al prospecto
hacia la contratación de un plan. Pedile su dirección para verificar cobertura.
Si el mensaje del prospecto contiene una dirección, agregá la etiqueta
[DIRECCION_DETECTADA] al final de tu respuesta. Si pide directamente contratar,
agregá [CIERRE_DIRECTO]. No uses las etiquetas en ningún otro caso.`

// OpenAIClassifier implements Classifier over the OpenAI chat API.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier builds the classifier from config.
func NewOpenAIClassifier(cfg config.OpenAIConfig) *OpenAIClassifier {
	return &OpenAIClassifier{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}
}

func (c *OpenAIClassifier) Intent(ctx context.Context, text string) (domain.Intent, error) {
	label, err := c.single(ctx, intentPrompt, text)
	if err != nil {
		return "", apperrors.NewClassifierError("intent", err)
	}
	switch domain.Intent(label) {
	case domain.IntentVentas, domain.IntentSoporte, domain.IntentPreguntaGeneral:
		return domain.Intent(label), nil
	}
	return domain.IntentPreguntaGeneral, nil
}

func (c *OpenAIClassifier) Sentiment(ctx context.Context, text string) (domain.Sentiment, error) {
	label, err := c.single(ctx, sentimentPrompt, text)
	if err != nil {
		return "", apperrors.NewClassifierError("sentiment", err)
	}
	switch domain.Sentiment(label) {
	case domain.SentimentEnojado, domain.SentimentFrustrado, domain.SentimentNeutro, domain.SentimentContento:
		return domain.Sentiment(label), nil
	}
	return domain.SentimentNeutro, nil
}

func (c *OpenAIClassifier) Confirm(ctx context.Context, text string) (domain.Confirmation, error) {
	label, err := c.single(ctx, confirmPrompt, text)
	if err != nil {
		return "", apperrors.NewClassifierError("confirm", err)
	}
	if strings.EqualFold(label, string(domain.ConfirmationYes)) {
		return domain.ConfirmationYes, nil
	}
	return domain.ConfirmationNo, nil
}

func (c *OpenAIClassifier) Answer(ctx context.Context, history []domain.ChatTurn) (string, error) {
	reply, err := c.dialogue(ctx, answerPrompt, history)
	if err != nil {
		return "", apperrors.NewClassifierError("answer", err)
	}
	return reply, nil
}

func (c *OpenAIClassifier) SalesReply(ctx context.Context, history []domain.ChatTurn) (string, error) {
	reply, err := c.dialogue(ctx, salesPrompt, history)
	if err != nil {
		return "", apperrors.NewClassifierError("sales reply", err)
	}
	return reply, nil
}

func (c *OpenAIClassifier) single(ctx context.Context, system, text string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}

func (c *OpenAIClassifier) dialogue(ctx context.Context, system string, history []domain.ChatTurn) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
