package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
)

// MenuRepository reads the self-service menu tree.
type MenuRepository interface {
	GetNode(ctx context.Context, id string) (*domain.MenuNode, error)
	// ListChildren returns the ordered sibling options under a parent.
	// A nil parent lists the root options.
	ListChildren(ctx context.Context, parentID *string) ([]domain.MenuNode, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, node *domain.MenuNode) error
}

type menuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository instantiates repository.
func NewMenuRepository(pool *pgxpool.Pool) MenuRepository {
	return &menuRepository{pool: pool}
}

func (r *menuRepository) GetNode(ctx context.Context, id string) (*domain.MenuNode, error) {
	const query = `
        SELECT id, parent_id, sort_order, title, action, reply_text
        FROM menu_nodes WHERE id=$1`
	var node domain.MenuNode
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&node.ID,
		&node.ParentID,
		&node.SortOrder,
		&node.Title,
		&node.Action,
		&node.ReplyText,
	); err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *menuRepository) ListChildren(ctx context.Context, parentID *string) ([]domain.MenuNode, error) {
	const withParent = `
        SELECT id, parent_id, sort_order, title, action, reply_text
        FROM menu_nodes WHERE parent_id=$1 ORDER BY sort_order`
	const roots = `
        SELECT id, parent_id, sort_order, title, action, reply_text
        FROM menu_nodes WHERE parent_id IS NULL ORDER BY sort_order`

	var rows pgx.Rows
	var err error
	if parentID == nil {
		rows, err = r.pool.Query(ctx, roots)
	} else {
		rows, err = r.pool.Query(ctx, withParent, *parentID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MenuNode
	for rows.Next() {
		var node domain.MenuNode
		if err := rows.Scan(
			&node.ID,
			&node.ParentID,
			&node.SortOrder,
			&node.Title,
			&node.Action,
			&node.ReplyText,
		); err != nil {
			return nil, err
		}
		result = append(result, node)
	}
	return result, rows.Err()
}

func (r *menuRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM menu_nodes`).Scan(&count)
	return count, err
}

func (r *menuRepository) Insert(ctx context.Context, node *domain.MenuNode) error {
	const query = `
        INSERT INTO menu_nodes (id, parent_id, sort_order, title, action, reply_text)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, query,
		node.ID,
		node.ParentID,
		node.SortOrder,
		node.Title,
		node.Action,
		node.ReplyText,
	)
	return err
}
