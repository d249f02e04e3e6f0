package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civreg/personnel-api/internal/models"
	"github.com/civreg/personnel-api/internal/repository"
	appErrors "github.com/civreg/personnel-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// UpdateUserRequest is the admin payload for editing an account.
type UpdateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	IsAdmin   *bool  `json:"is_admin"`
}

// UserService handles admin account management workflows.
type UserService struct {
	repo      userRepository
	audit     auditSink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditSink, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Update modifies an account's attributes, writing a before/after audit entry
// once the mutation succeeded.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string, meta RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(validationMessages(err))
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	before, _ := json.Marshal(map[string]interface{}{"username": user.Username, "email": user.Email, "is_admin": user.IsAdmin})

	user.Username = req.Username
	user.Email = strings.ToLower(req.Email)
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username or email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	after, _ := json.Marshal(map[string]interface{}{"username": user.Username, "email": user.Email, "is_admin": user.IsAdmin})
	details, _ := json.Marshal(map[string]json.RawMessage{"before": before, "after": after})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:       &actorID,
		TargetUserID: &user.ID,
		Action:       models.AuditActionUserUpdate,
		Details:      details,
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
	})

	return user, nil
}

// Delete removes an account permanently. Self-deletion is forbidden.
func (s *UserService) Delete(ctx context.Context, id string, actorID string, meta RequestMeta) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrValidation, "Cannot delete your own account")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	details, _ := json.Marshal(map[string]interface{}{"username": user.Username, "email": user.Email})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:       &actorID,
		TargetUserID: &user.ID,
		Action:       models.AuditActionUserDelete,
		Details:      details,
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
	})

	return nil
}

func (s *UserService) emitAudit(ctx context.Context, entry *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
