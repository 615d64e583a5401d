package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
)

// ReceiptRepository stores payment receipts and their client bindings.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *domain.PaymentReceipt) error
	// BindToClient retroactively attaches the newest unmatched receipt of a
	// chat to a resolved client.
	BindToClient(ctx context.Context, chatID, clientID string) error
	GetLatestUnmatched(ctx context.Context, chatID string) (*domain.PaymentReceipt, error)
}

type receiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository instantiates repository.
func NewReceiptRepository(pool *pgxpool.Pool) ReceiptRepository {
	return &receiptRepository{pool: pool}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *domain.PaymentReceipt) error {
	const query = `
        INSERT INTO payment_receipts (id, chat_id, client_id, media_ref, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		receipt.ID,
		receipt.ChatID,
		receipt.ClientID,
		receipt.MediaRef,
		receipt.Status,
	).Scan(&receipt.CreatedAt)
}

func (r *receiptRepository) BindToClient(ctx context.Context, chatID, clientID string) error {
	const query = `
        UPDATE payment_receipts SET client_id=$2, status='MATCHED'
        WHERE id = (
            SELECT id FROM payment_receipts
            WHERE chat_id=$1 AND status='UNMATCHED'
            ORDER BY created_at DESC LIMIT 1
        )`
	cmd, err := r.pool.Exec(ctx, query, chatID, clientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *receiptRepository) GetLatestUnmatched(ctx context.Context, chatID string) (*domain.PaymentReceipt, error) {
	const query = `
        SELECT id, chat_id, client_id, media_ref, status, created_at
        FROM payment_receipts
        WHERE chat_id=$1 AND status='UNMATCHED'
        ORDER BY created_at DESC LIMIT 1`
	var receipt domain.PaymentReceipt
	err := r.pool.QueryRow(ctx, query, chatID).Scan(
		&receipt.ID,
		&receipt.ChatID,
		&receipt.ClientID,
		&receipt.MediaRef,
		&receipt.Status,
		&receipt.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
