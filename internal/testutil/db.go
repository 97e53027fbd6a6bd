// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/anonto42/swaply/backend/internal/models"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/anonto42/swaply/backend/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory SQLite database with the schema migrated.
// It is closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on&_busy_timeout=5000", uuid.NewString())
	db, err := config.OpenGorm(config.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user whose password is "password123"
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
	}
	require.NoError(t, repositories.NewPostgresUserRepository(db).CreateUser(context.Background(), user))
	return user
}

// CreateItem inserts an item owned by owner
func CreateItem(t testing.TB, db *gorm.DB, owner *models.User, title string, mode models.ItemMode) *models.Item {
	t.Helper()

	item := &models.Item{OwnerID: owner.ID, Title: title, Mode: mode}
	require.NoError(t, repositories.NewPostgresItemRepository(db).CreateItem(context.Background(), item))
	return item
}

// CreateRequest inserts a request in the given status
func CreateRequest(t testing.TB, db *gorm.DB, item *models.Item, requester *models.User, status models.RequestStatus) *models.ItemRequest {
	t.Helper()

	repo := repositories.NewPostgresItemRequestRepository(db)
	req := &models.ItemRequest{ItemID: item.ID, RequesterID: requester.ID}
	require.NoError(t, repo.CreateRequest(context.Background(), req))
	if status != models.RequestStatusPending {
		changed, err := repo.TransitionStatus(context.Background(), req.ID, models.RequestStatusPending, status)
		require.NoError(t, err)
		require.True(t, changed)
		req.Status = status
	}
	return req
}
