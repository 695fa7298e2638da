package categories

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/pkg/db/models"
)

func newTestTree(t *testing.T) (Service, *Repository) {
	t.Helper()

	dsn := fmt.Sprintf("file:categories_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Category{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewRepository(conn)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo
}

func seedCategory(t *testing.T, repo *Repository, name, slug string, position int, parentID *uuid.UUID) uuid.UUID {
	t.Helper()
	row, err := repo.Create(context.Background(), &models.Category{
		ID:       uuid.New(),
		ParentID: parentID,
		Name:     name,
		Slug:     slug,
		Position: position,
	})
	if err != nil {
		t.Fatalf("seed category %s: %v", slug, err)
	}
	return row.ID
}

func TestTreeAssemblesNestedCategories(t *testing.T) {
	t.Parallel()

	svc, repo := newTestTree(t)
	ctx := context.Background()

	apparel := seedCategory(t, repo, "Apparel", "apparel", 0, nil)
	home := seedCategory(t, repo, "Home", "home", 1, nil)
	shirts := seedCategory(t, repo, "Shirts", "shirts", 1, &apparel)
	hats := seedCategory(t, repo, "Hats", "hats", 0, &apparel)
	seedCategory(t, repo, "Tees", "tees", 0, &shirts)

	tree, err := svc.Tree(ctx)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}

	if len(tree) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree))
	}
	if tree[0].ID != apparel || tree[1].ID != home {
		t.Fatalf("expected roots ordered by position")
	}

	children := tree[0].Children
	if len(children) != 2 {
		t.Fatalf("expected 2 apparel children, got %d", len(children))
	}
	if children[0].ID != hats || children[1].ID != shirts {
		t.Fatalf("expected children ordered by position")
	}
	if len(children[1].Children) != 1 || children[1].Children[0].Slug != "tees" {
		t.Fatalf("expected nested tees under shirts")
	}
	if len(tree[1].Children) != 0 {
		t.Fatalf("expected home to have no children")
	}
}

func TestTreeSurfacesOrphans(t *testing.T) {
	t.Parallel()

	svc, repo := newTestTree(t)
	ctx := context.Background()

	missing := uuid.New()
	orphan := seedCategory(t, repo, "Dangling", "dangling", 0, &missing)

	tree, err := svc.Tree(ctx)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 1 || tree[0].ID != orphan {
		t.Fatalf("expected orphan promoted to root, got %+v", tree)
	}
}

func TestTreeEmpty(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTree(t)
	tree, err := svc.Tree(context.Background())
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 0 {
		t.Fatalf("expected empty forest, got %d roots", len(tree))
	}
}
