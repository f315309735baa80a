package services

import (
	"context"

	"github.com/anjiri1684/agency_messaging/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserService keeps the participant display directory in step with the
// identities presented by callers.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Sync records the caller's display fields. Tokens without display claims
// only make sure a row exists so earlier profile data is kept.
func (s *UserService) Sync(ctx context.Context, identity models.Identity) error {
	user := identity.User()

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "avatar_url", "role", "updated_at"}),
	}
	if identity.FullName == "" && identity.AvatarURL == "" {
		onConflict = clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}
	}

	if err := s.db.WithContext(ctx).Clauses(onConflict).Create(&user).Error; err != nil {
		return storageError("sync user", err)
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, storageError("load user", err)
	}
	return &user, nil
}
