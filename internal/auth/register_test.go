package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/pkg/config"
	"github.com/amezav/storefront-backend/pkg/db"
	"github.com/amezav/storefront-backend/pkg/db/models"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/security"
)

func newRegisterService(t *testing.T) (RegisterService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:auth_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := NewRegisterService(RegisterServiceParams{
		DB:             db.NewFromConn(conn),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("build register service: %v", err)
	}
	return svc, conn
}

func TestRegisterCreatesCustomer(t *testing.T) {
	t.Parallel()

	svc, conn := newRegisterService(t)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     "Ada@Example.com",
		Password:  "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if dto.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %s", dto.Email)
	}
	if dto.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", dto.Role)
	}
	if dto.FirstName != "Ada" {
		t.Fatalf("expected trimmed first name, got %q", dto.FirstName)
	}

	var stored models.User
	if err := conn.First(&stored, "id = ?", dto.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !stored.IsActive {
		t.Fatalf("expected new user to be active")
	}
	valid, err := security.VerifyPassword("correct-horse", stored.PasswordHash)
	if err != nil || !valid {
		t.Fatalf("expected stored hash to verify, valid=%v err=%v", valid, err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newRegisterService(t)

	req := RegisterRequest{
		FirstName: "First",
		LastName:  "User",
		Email:     "taken@example.com",
		Password:  "long-enough",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newRegisterService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Short",
		LastName:  "Pass",
		Email:     "short@example.com",
		Password:  "short",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
