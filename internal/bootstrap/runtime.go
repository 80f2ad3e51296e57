// Package bootstrap opens the database and Redis for the binaries and
// prepares development data.
package bootstrap

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tagboard/internal/cache"
	"tagboard/internal/config"
	"tagboard/internal/database"
	"tagboard/internal/middleware"
	"tagboard/internal/models"
	"tagboard/internal/seed"
	"tagboard/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	rootID              = 1
	defaultRootUsername = "tagboard_root"
	defaultRootEmail    = "root@tagboard.local"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoData fills an empty development database with sample users,
	// tagged posts and pending bulk update requests.
	SeedDemoData bool
}

// Runtime holds the shared connections. Redis is nil when unavailable.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// Start connects to the database and Redis, ensures the development root
// admin and optionally seeds demo data.
func Start(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &Runtime{DB: db, Redis: cache.Connect(ctx, cfg.RedisURL)}

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("bootstrap development root admin: %w", err)
	}
	if opts.SeedDemoData {
		if err := seedIfEmpty(ctx, db); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}
	return rt, nil
}

// Close releases both connections.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	if sqlDB, err := rt.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

type rootAccount struct {
	username string
	email    string
	hash     string
}

// rootAccountFrom reads the DEV_ROOT_* settings. ok is false when the root
// account is not wanted in this environment.
func rootAccountFrom(cfg *config.Config) (acct rootAccount, ok bool, err error) {
	if cfg == nil || !cfg.DevBootstrapRoot || !strings.EqualFold(cfg.Env, "development") {
		return acct, false, nil
	}
	if cfg.DevRootPassword == "" {
		return acct, false, errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}
	if err := validation.ValidatePassword(cfg.DevRootPassword); err != nil {
		return acct, false, fmt.Errorf("DEV_ROOT_PASSWORD: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return acct, false, fmt.Errorf("hash root password: %w", err)
	}

	acct = rootAccount{
		username: cmp.Or(strings.TrimSpace(cfg.DevRootUsername), defaultRootUsername),
		email:    cmp.Or(strings.ToLower(strings.TrimSpace(cfg.DevRootEmail)), defaultRootEmail),
		hash:     string(hash),
	}
	return acct, true, nil
}

// ensureDevRootAdmin makes user 1 an admin in development. An existing
// user 1 keeps its credentials unless DEV_ROOT_FORCE_CREDENTIALS is set.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	acct, ok, err := rootAccountFrom(cfg)
	if err != nil || !ok || db == nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.First(&existing, rootID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			root := models.User{ID: rootID, Username: acct.username, Email: acct.email, Password: acct.hash}
			root.SetRole(models.RoleAdmin)
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			updates := map[string]any{"is_admin": true, "is_builder": true}
			if cfg.DevRootForceCredentials {
				updates["username"] = acct.username
				updates["email"] = acct.email
				updates["password"] = acct.hash
			}
			if err := tx.Model(&models.User{}).Where("id = ?", rootID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return syncUserSequence(tx)
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured",
		slog.Int("user_id", rootID), slog.String("email", acct.email))
	return nil
}

// syncUserSequence moves the postgres id sequence past the explicit root id.
func syncUserSequence(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	err := tx.Exec(`SELECT setval(pg_get_serial_sequence('users', 'id'),
		GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1), true)`).Error
	if err != nil {
		return fmt.Errorf("reset users sequence: %w", err)
	}
	return nil
}

// seedIfEmpty seeds demo data unless any bulk update request already exists.
func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.BulkUpdateRequest{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		middleware.Logger.Info("demo data present, skipping seed", slog.Int64("requests", count))
		return nil
	}
	_, err := seed.Seed(ctx, db, seed.Options{
		NumUsers:    10,
		NumPosts:    200,
		NumRequests: 5,
		BatchSize:   100,
	})
	return err
}
