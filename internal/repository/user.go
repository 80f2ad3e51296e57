package repository

import (
	"context"
	"errors"
	"strings"

	"tagboard/internal/models"

	"gorm.io/gorm"
)

// UserRepository stores member accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// FindByLogin matches an email or a username, ignoring case. It returns
	// nil, nil when no account matches.
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// UpdateRoles persists only the admin and builder flags.
	UpdateRoles(ctx context.Context, user *models.User) error
	// ListAdmins returns admin accounts, oldest first.
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a gorm backed UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	ctx, done := traceQuery(ctx, "GetByID", "users")
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	done(err)
	if err != nil {
		return nil, lookupError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return nil, nil
	}

	column := "LOWER(username)"
	if strings.Contains(login, "@") {
		column = "LOWER(email)"
	}

	ctx, done := traceQuery(ctx, "FindByLogin", "users")
	var user models.User
	err := r.db.WithContext(ctx).Where(column+" = ?", login).First(&user).Error
	done(err)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	ctx, done := traceQuery(ctx, "Create", "users")
	err := r.db.WithContext(ctx).Create(user).Error
	done(err)
	switch {
	case isUniqueConstraintError(err):
		return models.NewConflictError("Username or email already taken")
	case err != nil:
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateRoles(ctx context.Context, user *models.User) error {
	ctx, done := traceQuery(ctx, "UpdateRoles", "users")
	res := r.db.WithContext(ctx).Model(user).
		Select("is_admin", "is_builder").
		Updates(map[string]interface{}{"is_admin": user.IsAdmin, "is_builder": user.IsBuilder})
	done(res.Error)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	return nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	ctx, done := traceQuery(ctx, "ListAdmins", "users")
	var users []models.User
	err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("id").Find(&users).Error
	done(err)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
