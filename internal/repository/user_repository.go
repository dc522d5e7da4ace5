package repository

import (
	"github.com/farhan-web-dev/truckerCheatSheet/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	return &user, err
}

// List returns the chat roster: every dashboard user, admins first so the
// dispatcher sorts to the top of the driver's user list.
func (r *UserRepository) List(limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Order("CASE WHEN role = 'admin' THEN 0 ELSE 1 END, name ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *UserRepository) UpdateOnlineStatus(userID uint, isOnline bool) error {
	updates := map[string]interface{}{"is_online": isOnline}
	if !isOnline {
		updates["last_seen"] = gorm.Expr("NOW()")
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}
