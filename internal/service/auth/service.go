package auth

import (
	"context"
	"strings"

	apperrors "github.com/doarbem/doar-api/pkg/errors"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
	"github.com/doarbem/doar-api/pkg/auth"
	"github.com/doarbem/doar-api/pkg/security"
)

type Service struct {
	userRepo repository.UserRepository
	hasher   security.PasswordHasher
	tokens   *auth.TokenManager
}

func NewService(userRepo repository.UserRepository, hasher security.PasswordHasher, tokens *auth.TokenManager) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.Validation("email already registered", nil)
	}

	if req.Type == model.UserTypeInstitution && req.InstitutionID == nil {
		return nil, apperrors.Validation("instituicao_id is required for institution accounts", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation("password does not meet requirements", err)
	}

	user := &model.User{
		Email:         email,
		Name:          req.Name,
		PasswordHash:  hash,
		Type:          req.Type,
		InstitutionID: req.InstitutionID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.RemoteIO(err)
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.Expiry().Seconds()),
	}, nil
}
