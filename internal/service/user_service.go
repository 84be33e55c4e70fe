package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"cityfix-service/internal/auth"
	"cityfix-service/internal/model"
)

type UserService struct {
	users          UserRepository
	municipalities MunicipalityRepository
	hasher         *auth.PasswordHasher
	issuer         *auth.Issuer
	log            zerolog.Logger
}

func NewUserService(users UserRepository, municipalities MunicipalityRepository, hasher *auth.PasswordHasher, issuer *auth.Issuer, log zerolog.Logger) *UserService {
	return &UserService{
		users:          users,
		municipalities: municipalities,
		hasher:         hasher,
		issuer:         issuer,
		log:            log,
	}
}

type RegisterInput struct {
	Email          string     `json:"email" validate:"required,email,max=255"`
	Password       string     `json:"password" validate:"required,min=8,max=72"`
	FullName       string     `json:"full_name" validate:"max=255"`
	MunicipalityID *uuid.UUID `json:"municipality_id"`
}

// Register creates a citizen account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	return s.createUser(ctx, input.Email, input.Password, input.FullName, model.RoleCitizen, input.MunicipalityID)
}

type CreateStaffInput struct {
	Email          string     `json:"email" validate:"required,email,max=255"`
	Password       string     `json:"password" validate:"required,min=8,max=72"`
	FullName       string     `json:"full_name" validate:"max=255"`
	Role           string     `json:"role" validate:"required,oneof=operator manager admin"`
	MunicipalityID *uuid.UUID `json:"municipality_id"`
}

// CreateStaff lets a manager add operators to their own municipality and an
// admin add any staff role anywhere.
func (s *UserService) CreateStaff(ctx context.Context, principal model.Principal, input CreateStaffInput) (*model.User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	role := model.Role(input.Role)

	switch {
	case principal.IsAdmin():
	case principal.IsManager():
		if role != model.RoleOperator {
			return nil, fmt.Errorf("%w: managers can only create operators", ErrPermissionDenied)
		}
		if input.MunicipalityID == nil {
			input.MunicipalityID = principal.MunicipalityID
		}
		if input.MunicipalityID == nil || !principal.InMunicipality(*input.MunicipalityID) {
			return nil, fmt.Errorf("%w: operators must belong to the manager's municipality", ErrScopeMismatch)
		}
	default:
		return nil, ErrPermissionDenied
	}

	if role != model.RoleAdmin && input.MunicipalityID == nil {
		return nil, fmt.Errorf("%w: municipality_id is required for %s", ErrValidation, role)
	}

	user, err := s.createUser(ctx, input.Email, input.Password, input.FullName, role, input.MunicipalityID)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("role", string(role)).
		Str("created_by", principal.UserID.String()).
		Msg("staff account created")
	return user, nil
}

func (s *UserService) createUser(ctx context.Context, email, password, fullName string, role model.Role, municipalityID *uuid.UUID) (*model.User, error) {
	if municipalityID != nil {
		if _, err := s.municipalities.GetByID(ctx, *municipalityID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: municipality %s", ErrNotFound, *municipalityID)
			}
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:          strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:   hash,
		FullName:       strings.TrimSpace(fullName),
		Role:           role,
		MunicipalityID: municipalityID,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        *model.User `json:"user"`
}

// Login reports ErrUnauthorized for unknown emails, wrong passwords and inactive accounts alike.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive || !s.hasher.Check(user.PasswordHash, input.Password) {
		return nil, ErrUnauthorized
	}

	token, expiresAt, err := s.issuer.Issue(user.ID, user.Email, string(user.Role), user.MunicipalityID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

func (s *UserService) Me(ctx context.Context, principal model.Principal) (*model.User, error) {
	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListOperators lists the active operators of a municipality. Managers are
// limited to their own; admins may list any or all.
func (s *UserService) ListOperators(ctx context.Context, principal model.Principal, municipalityID *uuid.UUID) ([]model.User, error) {
	switch {
	case principal.IsAdmin():
	case principal.IsManager(), principal.IsOperator():
		if municipalityID != nil && !principal.InMunicipality(*municipalityID) {
			return nil, ErrPermissionDenied
		}
		municipalityID = principal.MunicipalityID
		if municipalityID == nil {
			return nil, ErrPermissionDenied
		}
	default:
		return nil, ErrPermissionDenied
	}
	return s.users.ListByRole(ctx, model.RoleOperator, municipalityID)
}
