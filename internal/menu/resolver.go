package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
	"github.com/spec-kit/isp-routing-engine/internal/repository"
)

// Resolver loads ordered option lists from the menu tree and renders them
// as numbered text menus.
type Resolver struct {
	repo repository.MenuRepository
}

// NewResolver constructs the resolver.
func NewResolver(repo repository.MenuRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Root returns the ordered root options.
func (r *Resolver) Root(ctx context.Context) ([]domain.MenuNode, error) {
	return r.repo.ListChildren(ctx, nil)
}

// Children returns the ordered options under a parent node.
func (r *Resolver) Children(ctx context.Context, parentID string) ([]domain.MenuNode, error) {
	return r.repo.ListChildren(ctx, &parentID)
}

// Node loads a single menu node.
func (r *Resolver) Node(ctx context.Context, id string) (*domain.MenuNode, error) {
	return r.repo.GetNode(ctx, id)
}

// Render builds the numbered menu text. Each option is listed under its
// declared sort order, and non-root menus get a "0" back-to-start hint.
func Render(header string, options []domain.MenuNode, atRoot bool) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}
	for _, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", opt.SortOrder, opt.Title)
	}
	if !atRoot {
		b.WriteString("\n0. Volver al inicio")
	}
	return strings.TrimRight(b.String(), "\n")
}

// SelectByOrder finds the option whose declared sort order matches the
// client's numeric choice.
func SelectByOrder(options []domain.MenuNode, order int) (*domain.MenuNode, bool) {
	for i := range options {
		if options[i].SortOrder == order {
			return &options[i], true
		}
	}
	return nil, false
}
