package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ndemidenko/pressroom/internal/config"
	"github.com/ndemidenko/pressroom/internal/db"
	"github.com/ndemidenko/pressroom/internal/models"
	"github.com/ndemidenko/pressroom/internal/repo"
)

type testEnv struct {
	DB     *gorm.DB
	Users  *repo.UserRepo
	Tokens *TokenService
	Roles  *RoleService
	Gate   *Gate
	Auth   *AuthService

	clock time.Time
}

func newTestEnv(t *testing.T) *testEnv {
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

	env := &testEnv{DB: gdb, clock: time.Now()}
	env.Users = &repo.UserRepo{DB: gdb, BcryptCost: bcrypt.MinCost}
	env.Tokens = &TokenService{
		Users:  env.Users,
		Secret: []byte("test-secret"),
		TTL:    time.Hour,
		Now:    func() time.Time { return env.clock },
	}
	env.Roles = &RoleService{Users: env.Users}
	env.Gate = &Gate{Roles: env.Roles}
	env.Auth = &AuthService{Users: env.Users, Tokens: env.Tokens}
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func (e *testEnv) createUser(t *testing.T, email, roleName string) *models.User {
	t.Helper()

	roles := repo.RoleRepo{DB: e.DB}
	role, err := roles.FindByName(context.Background(), roleName)
	require.NoError(t, err)

	user, err := e.Users.Create(context.Background(), repo.CreateUserInput{
		FirstName: "Some",
		LastName:  "User",
		Email:     email,
		Password:  "longenough1",
		RoleID:    role.ID,
	})
	require.NoError(t, err)
	return user
}
