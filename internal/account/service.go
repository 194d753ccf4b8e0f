// Package account manages users, their profiles and last-active timestamps.
package account

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/config"
	"dmsync/backend/internal/models"
	"dmsync/backend/internal/storage"

	"go.uber.org/zap"
)

type Service struct {
	store     *storage.Service
	ephemeral storage.Ephemeral
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewService(store *storage.Service, ephemeral storage.Ephemeral, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		ephemeral: ephemeral,
		logger:    logger.Sugar(),
		now:       time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateUser provisions a user bound to authSubject together with its profile.
func (s *Service) CreateUser(ctx context.Context, authSubject, email string, displayName *string) (*models.User, error) {
	authSubject = strings.TrimSpace(authSubject)
	email = strings.ToLower(strings.TrimSpace(email))
	if authSubject == "" || email == "" {
		return nil, apperrors.NewInvalidRequest("auth subject and email are required")
	}

	taken, err := s.store.UserExistsByAuthOrEmail(ctx, authSubject, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.NewInvalidRequest("user already exists")
	}

	user := &models.User{AuthSubject: authSubject, Email: email, LastLoginAt: s.now()}
	err = s.store.Transaction(ctx, func(tx *storage.Service) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		profile := &models.Profile{UserID: user.ID, DisplayName: displayName}
		if err := tx.CreateProfile(ctx, profile); err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if storage.IsUniqueViolation(err) {
		return nil, apperrors.Wrap(err, apperrors.InvalidRequest, "user already exists")
	}
	if err != nil {
		return nil, err
	}

	s.logger.Infow("User created", "user_id", user.ID)
	return user, nil
}

// GetByAuthSubject returns the user (with profile) bound to subject.
func (s *Service) GetByAuthSubject(ctx context.Context, subject string) (*models.User, error) {
	if subject == "" {
		return nil, apperrors.NewInvalidRequest("auth subject is required")
	}
	user, err := s.store.FindUserByAuthSubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFound("user not found")
	}
	return user, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if !storage.IsID(userID) {
		return nil, apperrors.NewNotFound("profile not found")
	}
	profile, err := s.store.FindProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperrors.NewNotFound("profile not found")
	}
	return profile, nil
}

// ListProfiles lists the profiles of everyone except userID.
func (s *Service) ListProfiles(ctx context.Context, userID string) ([]models.Profile, error) {
	profiles, err := s.store.ListProfilesExcluding(ctx, userID, config.ProfilesPageSize)
	if err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	return profiles, nil
}

// TouchLastActiveAt records that userID is active now and announces it.
func (s *Service) TouchLastActiveAt(ctx context.Context, userID string) error {
	now := s.now().UnixMilli()
	if err := s.ephemeral.Set(ctx, storage.LastActiveAtKey(userID), strconv.FormatInt(now, 10), config.LastActiveAtTTL); err != nil {
		return err
	}

	payload, err := json.Marshal(models.LastActiveAtUpdate{UserID: userID, LastActiveAt: now})
	if err != nil {
		return err
	}
	if err := s.ephemeral.Publish(ctx, storage.LastActiveAtTopic, string(payload)); err != nil {
		s.logger.Warnw("Last-active update not published", "user_id", userID, "error", err)
	}
	return nil
}

// GetLastActiveAt returns the last-active time of each user; users never seen
// map to nil.
func (s *Service) GetLastActiveAt(ctx context.Context, userIDs []string) (map[string]*time.Time, error) {
	out := make(map[string]*time.Time, len(userIDs))
	for _, id := range userIDs {
		raw, ok, err := s.ephemeral.Get(ctx, storage.LastActiveAtKey(id))
		if err != nil {
			return nil, err
		}
		out[id] = nil
		if !ok {
			continue
		}
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.logger.Warnw("Ignoring malformed last-active value", "user_id", id, "value", raw)
			continue
		}
		at := time.UnixMilli(millis).UTC()
		out[id] = &at
	}
	return out, nil
}
