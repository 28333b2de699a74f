package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-booking/internal/database"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// AuthorizationChecker answers role questions for handlers.
type AuthorizationChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// RoleSource loads the roles stored for a user. Unknown users yield
// database.ErrNotFound.
type RoleSource interface {
	UserRoles(ctx context.Context, userID string) ([]string, error)
}

type RoleCache interface {
	Get(ctx context.Context, userID string) ([]string, bool, error)
	Set(ctx context.Context, userID string, roles []string) error
}

// RoleChecker resolves roles through an optional cache. The configured
// super-admin subject is an admin regardless of stored roles.
type RoleChecker struct {
	source        RoleSource
	cache         RoleCache
	superAdminUID string
	logger        *logger.Logger
}

func NewRoleChecker(source RoleSource, cache RoleCache, superAdminUID string, l *logger.Logger) *RoleChecker {
	return &RoleChecker{source: source, cache: cache, superAdminUID: superAdminUID, logger: l}
}

func (c *RoleChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID != "" && userID == c.superAdminUID {
		return true, nil
	}
	return c.HasRole(ctx, userID, models.RoleAdmin)
}

func (c *RoleChecker) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	roles, err := c.roles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func (c *RoleChecker) roles(ctx context.Context, userID string) ([]string, error) {
	if c.cache != nil {
		roles, ok, err := c.cache.Get(ctx, userID)
		if err != nil {
			c.logger.Warn("AUTH", fmt.Sprintf("Role cache read failed for %s: %v", userID, err))
		} else if ok {
			return roles, nil
		}
	}

	roles, err := c.source.UserRoles(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		roles = []string{}
	} else if err != nil {
		return nil, fmt.Errorf("load roles for %s: %w", userID, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, userID, roles); err != nil {
			c.logger.Warn("AUTH", fmt.Sprintf("Role cache write failed for %s: %v", userID, err))
		}
	}
	return roles, nil
}

// BunRoleSource reads roles from the users table.
type BunRoleSource struct {
	DB bun.IDB
}

func (s *BunRoleSource) UserRoles(ctx context.Context, userID string) ([]string, error) {
	var user models.User
	err := s.DB.NewSelect().Model(&user).Column("id", "roles").Where("id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return user.Roles, nil
}
