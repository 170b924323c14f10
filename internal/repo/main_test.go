package repo

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ndemidenko/pressroom/internal/config"
	"github.com/ndemidenko/pressroom/internal/db"
	"github.com/ndemidenko/pressroom/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	cfg := &config.Config{
		SeedRoles:      models.RoleHierarchy(),
		SeedCategories: []string{"General"},
	}
	require.NoError(t, db.Init(context.Background(), gdb, cfg))
	return gdb
}

func newUserRepo(t *testing.T) *UserRepo {
	t.Helper()
	return &UserRepo{DB: initTestDB(t), BcryptCost: bcrypt.MinCost}
}

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }
func boolPtr(v bool) *bool { return &v }
func strPtr(s string) *string {
	return &s
}
