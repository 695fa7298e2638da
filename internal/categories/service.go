package categories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/pkg/db/models"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
)

// TreeNode is one category with its ordered children.
type TreeNode struct {
	ID          uuid.UUID   `json:"id"`
	ParentID    *uuid.UUID  `json:"parent_id,omitempty"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Position    int         `json:"position"`
	IconMediaID *uuid.UUID  `json:"icon_media_id,omitempty"`
	Children    []*TreeNode `json:"children"`
}

// Service assembles the storefront category tree.
type Service interface {
	Tree(ctx context.Context) ([]*TreeNode, error)
}

type service struct {
	repo *Repository
}

// NewService constructs the category read-side service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("categories repository is required")
	}
	return &service{repo: repo}, nil
}

// Tree loads all categories in one query and assembles them in memory.
// Rows arrive ordered by (position, name), so children keep that order.
func (s *service) Tree(ctx context.Context) ([]*TreeNode, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return assembleTree(rows), nil
}

func assembleTree(rows []models.Category) []*TreeNode {
	nodes := make(map[uuid.UUID]*TreeNode, len(rows))
	for _, row := range rows {
		nodes[row.ID] = &TreeNode{
			ID:          row.ID,
			ParentID:    row.ParentID,
			Name:        row.Name,
			Slug:        row.Slug,
			Position:    row.Position,
			IconMediaID: row.IconMediaID,
			Children:    []*TreeNode{},
		}
	}

	roots := make([]*TreeNode, 0, len(rows))
	for _, row := range rows {
		node := nodes[row.ID]
		if row.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*row.ParentID]
		if !ok || *row.ParentID == row.ID {
			// Orphaned subtree; surface it at the root rather than dropping it.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}
