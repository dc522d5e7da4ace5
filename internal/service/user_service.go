package service

import (
	"github.com/farhan-web-dev/truckerCheatSheet/internal/models"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepositoryInterface
}

func NewUserService(userRepo repository.UserRepositoryInterface) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetUser(id uint) (*models.User, error) {
	return s.userRepo.FindByID(id)
}

// ListRoster returns the users shown in the chat sidebar.
func (s *UserService) ListRoster(limit int) ([]models.User, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	return s.userRepo.List(limit)
}

func (s *UserService) SetUserOnline(userID uint) error {
	return s.userRepo.UpdateOnlineStatus(userID, true)
}

func (s *UserService) SetUserOffline(userID uint) error {
	return s.userRepo.UpdateOnlineStatus(userID, false)
}
