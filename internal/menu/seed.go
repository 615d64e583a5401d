package menu

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
	"github.com/spec-kit/isp-routing-engine/internal/repository"
)

type seedNode struct {
	ID        string     `yaml:"id"`
	Order     int        `yaml:"order"`
	Title     string     `yaml:"title"`
	Action    string     `yaml:"action"`
	ReplyText string     `yaml:"reply_text"`
	Children  []seedNode `yaml:"children"`
}

type seedFile struct {
	Menu []seedNode `yaml:"menu"`
}

// Seed loads the menu tree from a YAML file into the store when the tree is
// empty. An existing tree is left untouched.
func Seed(ctx context.Context, repo repository.MenuRepository, path string, logger *zap.Logger) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count menu nodes: %w", err)
	}
	if count > 0 {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("menu seed file unavailable; menu tree stays empty", zap.String("path", path), zap.Error(err))
		return nil
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse menu seed: %w", err)
	}

	inserted := 0
	var insert func(nodes []seedNode, parentID *string) error
	insert = func(nodes []seedNode, parentID *string) error {
		for _, n := range nodes {
			node := &domain.MenuNode{
				ID:        n.ID,
				ParentID:  parentID,
				SortOrder: n.Order,
				Title:     n.Title,
				Action:    domain.MenuAction(n.Action),
				ReplyText: n.ReplyText,
			}
			if node.Action == "" {
				node.Action = domain.MenuActionReply
			}
			if len(n.Children) > 0 {
				node.Action = domain.MenuActionSubmenu
			}
			if err := repo.Insert(ctx, node); err != nil {
				return fmt.Errorf("insert menu node %s: %w", n.ID, err)
			}
			inserted++
			if len(n.Children) > 0 {
				id := n.ID
				if err := insert(n.Children, &id); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := insert(file.Menu, nil); err != nil {
		return err
	}

	logger.Info("menu tree seeded", zap.Int("nodes", inserted), zap.String("path", path))
	return nil
}
