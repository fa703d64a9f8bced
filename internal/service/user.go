package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BuzzLyutic/get-it-done-api/internal/model"
	"github.com/BuzzLyutic/get-it-done-api/internal/repo"
)

var ErrUserExists = errors.New("user already exists")

// TokenIssuer выпускает bearer-токен для email
type TokenIssuer interface {
	Issue(email string) (string, error)
}

type UserService struct {
	repo     repo.UserRepository
	tokens   TokenIssuer
	validate *validator.Validate
	now      func() time.Time
}

func NewUserService(repo repo.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{
		repo:     repo,
		tokens:   tokens,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Register stores u unless its email is already taken.
func (s *UserService) Register(ctx context.Context, u model.User) (model.User, error) {
	if err := s.checkEmail(u.Email); err != nil {
		return u, err
	}

	// Сначала ищем существующего пользователя, гонку ловит уникальный ключ
	if _, err := s.repo.Get(ctx, u.Email); err == nil {
		return u, ErrUserExists
	} else if !errors.Is(err, repo.ErrorNotFound) {
		return u, err
	}

	u.CreatedAt = s.now().UTC()
	created, err := s.repo.Create(ctx, u)
	if errors.Is(err, repo.ErrorConflict) {
		return u, ErrUserExists
	}
	return created, err
}

// IssueToken signs a token for email. Registration is not required.
func (s *UserService) IssueToken(email string) (string, error) {
	if err := s.checkEmail(email); err != nil {
		return "", err
	}
	return s.tokens.Issue(email)
}

func (s *UserService) checkEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	return nil
}
