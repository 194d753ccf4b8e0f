package storage

import (
	"context"

	"dmsync/backend/internal/models"

	"github.com/pkg/errors"
)

// CreateUser inserts the user row only; the profile is created separately.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db(ctx).Omit("Profile").Create(user).Error; err != nil {
		return errors.Wrap(err, "storage.CreateUser")
	}
	return nil
}

func (s *Service) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if err := s.db(ctx).Create(profile).Error; err != nil {
		return errors.Wrap(err, "storage.CreateProfile")
	}
	return nil
}

// FindUserByAuthSubject returns nil without error when no user is bound to subject.
func (s *Service) FindUserByAuthSubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	err := s.db(ctx).Preload("Profile").Where("auth_subject = ?", subject).First(&user).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage.FindUserByAuthSubject")
	}
	return &user, nil
}

// UserExistsByAuthOrEmail reports whether subject or email is already taken.
func (s *Service) UserExistsByAuthOrEmail(ctx context.Context, subject, email string) (bool, error) {
	var count int64
	err := s.db(ctx).Model(&models.User{}).
		Where("auth_subject = ? OR email = ?", subject, email).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "storage.UserExistsByAuthOrEmail")
	}
	return count > 0, nil
}

func (s *Service) UserExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "storage.UserExists")
	}
	return count > 0, nil
}

// FindProfileByUserID returns nil without error when the profile does not exist.
func (s *Service) FindProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db(ctx).Where("user_id = ?", userID).First(&profile).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage.FindProfileByUserID")
	}
	return &profile, nil
}

// ProfilesByUserIDs returns the profiles of userIDs keyed by user id.
func (s *Service) ProfilesByUserIDs(ctx context.Context, userIDs []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var profiles []models.Profile
	if err := s.db(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "storage.ProfilesByUserIDs")
	}
	for i := range profiles {
		out[profiles[i].UserID] = &profiles[i]
	}
	return out, nil
}

// ListProfilesExcluding lists up to limit profiles that do not belong to userID.
func (s *Service) ListProfilesExcluding(ctx context.Context, userID string, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := s.db(ctx).
		Where("user_id <> ?", userID).
		Order("created_at ASC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.ListProfilesExcluding")
	}
	return profiles, nil
}
