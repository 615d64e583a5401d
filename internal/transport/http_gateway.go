package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spec-kit/isp-routing-engine/internal/config"
	apperrors "github.com/spec-kit/isp-routing-engine/pkg/util"
)

// HTTPGateway talks to the chat gateway's REST API.
type HTTPGateway struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPGateway builds the gateway client from config.
func NewHTTPGateway(cfg config.TransportConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type sendTextRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendTextResponse struct {
	MessageID string `json:"message_id"`
}

type sendMediaRequest struct {
	ChatID   string `json:"chat_id"`
	MediaRef string `json:"media_ref"`
	Caption  string `json:"caption,omitempty"`
}

func (g *HTTPGateway) SendText(ctx context.Context, chatID, text string) (string, error) {
	var resp sendTextResponse
	if err := g.post(ctx, "/messages/text", sendTextRequest{ChatID: chatID, Text: text}, &resp); err != nil {
		return "", apperrors.NewTransportError("send text", err)
	}
	return resp.MessageID, nil
}

func (g *HTTPGateway) SendMedia(ctx context.Context, chatID, mediaRef, caption string) error {
	if err := g.post(ctx, "/messages/media", sendMediaRequest{ChatID: chatID, MediaRef: mediaRef, Caption: caption}, nil); err != nil {
		return apperrors.NewTransportError("send media", err)
	}
	return nil
}

func (g *HTTPGateway) ResolveQuoted(ctx context.Context, messageID string) (*InboundMessage, error) {
	endpoint := g.baseURL + "/messages/" + url.PathEscape(messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewTransportError("resolve quoted", err)
	}
	g.authorize(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError("resolve quoted", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewTransportError("resolve quoted", fmt.Errorf("gateway returned %d", resp.StatusCode))
	}

	var msg InboundMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, apperrors.NewTransportError("resolve quoted", err)
	}
	return &msg, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (g *HTTPGateway) authorize(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}
