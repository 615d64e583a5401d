package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
)

// LeadRepository stores sales prospects.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.SalesLead) error
	UpdateStatus(ctx context.Context, chatID string, status domain.LeadStatus, notes string) error
}

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository instantiates repository.
func NewLeadRepository(pool *pgxpool.Pool) LeadRepository {
	return &leadRepository{pool: pool}
}

func (r *leadRepository) Create(ctx context.Context, lead *domain.SalesLead) error {
	const query = `
        INSERT INTO sales_leads (id, chat_id, name, status, notes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		lead.ID,
		lead.ChatID,
		lead.Name,
		lead.Status,
		lead.Notes,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)
}

func (r *leadRepository) UpdateStatus(ctx context.Context, chatID string, status domain.LeadStatus, notes string) error {
	const query = `
        UPDATE sales_leads SET status=$2, notes=$3, updated_at=NOW()
        WHERE id = (
            SELECT id FROM sales_leads WHERE chat_id=$1
            ORDER BY created_at DESC LIMIT 1
        )`
	_, err := r.pool.Exec(ctx, query, chatID, status, notes)
	return err
}
