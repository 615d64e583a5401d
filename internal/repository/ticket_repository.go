package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetOpenByClient returns the client's PENDING or IN_PROGRESS ticket,
	// or nil when the client has no open escalation.
	GetOpenByClient(ctx context.Context, clientID string) (*domain.Ticket, error)
	// ClaimPending transitions PENDING -> IN_PROGRESS and binds agent and
	// group in a single compare-and-swap. It reports false when the ticket
	// was already claimed or closed; the first valid claim wins.
	ClaimPending(ctx context.Context, id, agentID, groupID string) (bool, error)
	Close(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, client_id, client_name, initial_message, sentiment, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.ClientID,
		ticket.ClientName,
		ticket.InitialMessage,
		ticket.Sentiment,
		ticket.Status,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, client_id, client_name, initial_message, sentiment, status,
               assigned_agent_id, assigned_group_id, created_at, updated_at, closed_at
        FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetOpenByClient(ctx context.Context, clientID string) (*domain.Ticket, error) {
	const query = `
        SELECT id, client_id, client_name, initial_message, sentiment, status,
               assigned_agent_id, assigned_group_id, created_at, updated_at, closed_at
        FROM tickets
        WHERE client_id=$1 AND status IN ('PENDING','IN_PROGRESS')
        ORDER BY created_at DESC LIMIT 1`
	ticket, err := r.fetchSingle(ctx, query, clientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

func (r *ticketRepository) ClaimPending(ctx context.Context, id, agentID, groupID string) (bool, error) {
	const query = `
        UPDATE tickets
        SET status='IN_PROGRESS', assigned_agent_id=$2, assigned_group_id=$3, updated_at=NOW()
        WHERE id=$1 AND status='PENDING'`
	cmd, err := r.pool.Exec(ctx, query, id, agentID, groupID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) Close(ctx context.Context, id string) error {
	const query = `
        UPDATE tickets SET status='CLOSED', closed_at=$2, updated_at=NOW()
        WHERE id=$1 AND status <> 'CLOSED'`
	// Closing an already closed ticket is a no-op; close must stay idempotent.
	_, err := r.pool.Exec(ctx, query, id, time.Now())
	return err
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ClientID,
		&ticket.ClientName,
		&ticket.InitialMessage,
		&ticket.Sentiment,
		&ticket.Status,
		&ticket.AssignedAgentID,
		&ticket.AssignedGroupID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
