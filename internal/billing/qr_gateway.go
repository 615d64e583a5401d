package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
	apperrors "github.com/spec-kit/isp-routing-engine/pkg/util"
)

// QRGenerator produces a payable QR image for an invoice. The payment
// provider behind it is an opaque collaborator.
type QRGenerator interface {
	GenerateQR(ctx context.Context, client domain.ClientProfile, invoice domain.Invoice) (mediaRef string, err error)
}

// HTTPQRGateway calls the payment provider's QR endpoint.
type HTTPQRGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPQRGateway builds the gateway client.
func NewHTTPQRGateway(baseURL string) *HTTPQRGateway {
	return &HTTPQRGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type qrRequest struct {
	ClientID      string  `json:"client_id"`
	InvoiceNumber string  `json:"invoice_number"`
	Amount        float64 `json:"amount"`
}

type qrResponse struct {
	MediaRef string `json:"media_ref"`
}

func (g *HTTPQRGateway) GenerateQR(ctx context.Context, client domain.ClientProfile, invoice domain.Invoice) (string, error) {
	body, err := json.Marshal(qrRequest{
		ClientID:      client.ID,
		InvoiceNumber: invoice.Number,
		Amount:        invoice.Amount,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/qr", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewTransportError("generate qr", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", apperrors.NewTransportError("generate qr", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewTransportError("generate qr", fmt.Errorf("provider returned %d", resp.StatusCode))
	}

	var out qrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperrors.NewTransportError("generate qr", err)
	}
	return out.MediaRef, nil
}
