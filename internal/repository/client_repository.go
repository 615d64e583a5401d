package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
)

// ClientRepository resolves registered accounts and their billing documents.
type ClientRepository interface {
	// GetByPhone resolves a profile from the transport identity. Returns
	// nil when the sender is not a registered client.
	GetByPhone(ctx context.Context, phone string) (*domain.ClientProfile, error)
	GetByDNI(ctx context.Context, dni string) (*domain.ClientProfile, error)
	ListPendingInvoices(ctx context.Context, clientID string) ([]domain.Invoice, error)
}

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository instantiates repository.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

const clientColumns = `id, name, dni, phone, balance, services`

func (r *clientRepository) GetByPhone(ctx context.Context, phone string) (*domain.ClientProfile, error) {
	return r.fetchSingle(ctx, `SELECT `+clientColumns+` FROM clients WHERE phone=$1`, phone)
}

func (r *clientRepository) GetByDNI(ctx context.Context, dni string) (*domain.ClientProfile, error) {
	return r.fetchSingle(ctx, `SELECT `+clientColumns+` FROM clients WHERE dni=$1`, dni)
}

func (r *clientRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ClientProfile, error) {
	var profile domain.ClientProfile
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&profile.ID,
		&profile.Name,
		&profile.DNI,
		&profile.Phone,
		&profile.Balance,
		&profile.Services,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *clientRepository) ListPendingInvoices(ctx context.Context, clientID string) ([]domain.Invoice, error) {
	const query = `
        SELECT id, client_id, number, amount, due_date, status
        FROM invoices
        WHERE client_id=$1 AND status IN ('PENDING','OVERDUE')
        ORDER BY due_date`
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(
			&inv.ID,
			&inv.ClientID,
			&inv.Number,
			&inv.Amount,
			&inv.DueDate,
			&inv.Status,
		); err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}
