package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"writehub/internal/cache"
	"writehub/internal/config"
	"writehub/internal/db"
	"writehub/internal/logger"
	"writehub/internal/model"
	"writehub/internal/repository"
	"writehub/internal/service"
)

// cacheInvalidator drops cached entries. *cache.Client satisfies it.
type cacheInvalidator interface {
	Delete(ctx context.Context, key string) error
}

// AdminAccount describes the admin account to ensure.
type AdminAccount struct {
	Name     string
	Email    string
	Password string
}

func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.IsProduction())
	log.Info("starting admin seed")

	if cfg.AdminPassword == "" {
		log.Fatal("ADMIN_PASSWORD must be set")
	}

	gormDB, err := db.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.Info("database migrations completed")

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	postRepo := repository.NewPostRepository(gormDB)

	admin, created, err := ensureAdmin(ctx, userRepo, cacheClient, AdminAccount{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to ensure admin user")
	}

	fields := logrus.Fields{"email": admin.Email, "role": admin.Role}
	if created {
		log.WithFields(fields).Info("admin user created")
	} else {
		log.WithFields(fields).Info("admin user found, password reset")
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(cfg.AdminPassword)) != nil {
		log.Fatal("password check failed after seeding")
	}
	log.Info("password check passed")

	count, err := postRepo.Count(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to count posts")
	}
	if count == 0 {
		log.Warn("no posts found")
	} else {
		log.WithField("posts", count).Info("posts are ready")
	}
}

// ensureAdmin creates the admin user, or resets the password and role of an
// existing user with the same email.
func ensureAdmin(ctx context.Context, repo repository.UserRepository, users cacheInvalidator, account AdminAccount) (*model.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(account.Email))
	if email == "" || account.Password == "" {
		return nil, false, errors.New("admin email and password are required")
	}

	hash, err := service.HashPassword(account.Password)
	if err != nil {
		return nil, false, err
	}

	existing, err := repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find admin %s: %w", email, err)
	}

	if existing != nil {
		existing.PasswordHash = hash
		existing.Role = model.RoleAdmin
		if err := repo.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("update admin %s: %w", email, err)
		}
		// A running server would otherwise keep the old role until the entry expires.
		_ = users.Delete(ctx, service.UserCacheKey(existing.ID))
		return existing, false, nil
	}

	admin := &model.User{
		Name:         account.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return nil, false, fmt.Errorf("create admin %s: %w", email, err)
	}
	return admin, true, nil
}
