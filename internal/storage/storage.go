package storage

import (
	"context"

	"dmsync/backend/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Service is the persistent store adapter. A Service returned to a
// Transaction callback is bound to that transaction; calling Transaction on it
// again opens a savepoint.
type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Transaction runs fn inside a transaction. Any error returned by fn rolls the
// transaction (or savepoint) back.
func (s *Service) Transaction(ctx context.Context, fn func(tx *Service) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx})
	})
}

// Migrate creates or updates the schema.
func (s *Service) Migrate() error {
	if err := s.DB.AutoMigrate(models.All()...); err != nil {
		return errors.Wrap(err, "storage.Migrate")
	}

	// gorm cannot express a self-referencing ON DELETE SET NULL through tags.
	if s.DB.Dialector.Name() == "postgres" {
		stmts := []string{
			`ALTER TABLE messages DROP CONSTRAINT IF EXISTS fk_messages_parent`,
			`ALTER TABLE messages ADD CONSTRAINT fk_messages_parent
				FOREIGN KEY (parent_id) REFERENCES messages(id) ON DELETE SET NULL`,
		}
		for _, stmt := range stmts {
			if err := s.DB.Exec(stmt).Error; err != nil {
				return errors.Wrap(err, "storage.Migrate: parent constraint")
			}
		}
	}
	return nil
}

// IsID reports whether id is well-formed enough to name a stored row.
// Postgres rejects malformed uuids instead of matching nothing.
func IsID(id string) bool {
	return uuid.Validate(id) == nil
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}
