// Package storagetest provides in-memory backends for tests.
package storagetest

import (
	"testing"

	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewService opens a migrated, private in-memory SQLite database.
func NewService(t testing.TB) *storage.Service {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	svc := storage.NewStorageService(db)
	require.NoError(t, svc.Migrate())
	return svc
}

// NewRedis starts a miniredis server and returns a store connected to it.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *storage.RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := storage.NewRedisClient("redis://"+mr.Addr(), zap.NewNop())
	t.Cleanup(func() { _ = client.Close() })
	return mr, storage.NewRedisStore(client, zap.NewNop())
}

// SeedUser inserts a user with a profile named displayName.
func SeedUser(t testing.TB, svc *storage.Service, displayName string) *models.User {
	t.Helper()

	user := &models.User{AuthSubject: "sub-" + uuid.NewString(), Email: uuid.NewString() + "@example.com"}
	require.NoError(t, svc.DB.Omit("Profile").Create(user).Error)

	name := displayName
	profile := &models.Profile{UserID: user.ID, DisplayName: &name}
	require.NoError(t, svc.DB.Create(profile).Error)
	user.Profile = profile
	return user
}
