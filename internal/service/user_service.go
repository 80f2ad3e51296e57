package service

import (
	"context"

	"tagboard/internal/models"
	"tagboard/internal/repository"
)

// UserService manages accounts and their roles.
type UserService struct {
	userRepo        repository.UserRepository
	notifyAllAdmins bool
}

// NewUserService returns a UserService. With notifyAllAdmins false only the
// oldest admin account receives approval failure reports.
func NewUserService(userRepo repository.UserRepository, notifyAllAdmins bool) *UserService {
	return &UserService{userRepo: userRepo, notifyAllAdmins: notifyAllAdmins}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetByID satisfies middleware.UserLookup.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// NotificationAdmins returns the admins that receive approval failure reports.
func (s *UserService) NotificationAdmins(ctx context.Context) ([]models.User, error) {
	admins, err := s.userRepo.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	if !s.notifyAllAdmins && len(admins) > 1 {
		admins = admins[:1]
	}
	return admins, nil
}

// ChangeRole moves the target account to role on behalf of actorID. Admins
// cannot step down themselves and the last admin cannot be demoted, so
// failure reports always have a recipient. actorID 0 is the operator CLI.
func (s *UserService) ChangeRole(ctx context.Context, actorID, targetID uint, role models.Role) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.Role() == role {
		return user, nil
	}

	if user.IsAdmin && role != models.RoleAdmin {
		if actorID == targetID {
			return nil, models.NewValidationError("Admins cannot remove their own admin role")
		}
		admins, err := s.userRepo.ListAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if len(admins) <= 1 {
			return nil, models.NewConflictError("Cannot demote the last admin")
		}
	}

	user.SetRole(role)
	if err := s.userRepo.UpdateRoles(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
