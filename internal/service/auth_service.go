package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
	"github.com/getSweetSpotcl/flexhub/internal/repository"
	"github.com/getSweetSpotcl/flexhub/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type GuestAuthService interface {
	Register(ctx context.Context, email, name, phone, rut, password string) (*db.Guest, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type guestAuthService struct {
	repo repository.GuestRepository
}

func NewGuestAuthService(repo repository.GuestRepository) GuestAuthService {
	return &guestAuthService{repo: repo}
}

func (s *guestAuthService) Register(ctx context.Context, email, name, phone, rut, password string) (*db.Guest, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password cannot be empty")
	}
	if !utils.ValidateRUT(rut) {
		return nil, apperrors.ErrInvalidRUT
	}

	guest := &db.Guest{
		Email: email,
		Name:  name,
		Phone: phone,
		RUT:   utils.FormatRUT(rut),
	}
	if err := s.repo.Create(ctx, guest, password); err != nil {
		return nil, err
	}
	return guest, nil
}

func (s *guestAuthService) Login(ctx context.Context, email, password string) (string, error) {
	guest, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrGuestNotFound) {
			return "", errors.New("invalid credentials")
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(guest.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", errors.New("JWT_SECRET not set")
	}

	claims := jwt.MapClaims{
		"guest_id": guest.ID,
		"email":    guest.Email,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
