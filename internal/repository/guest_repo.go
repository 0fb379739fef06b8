package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type GuestRepository interface {
	GetByEmail(ctx context.Context, email string) (*db.Guest, error)
	GetByID(ctx context.Context, id int64) (*db.Guest, error)
	Create(ctx context.Context, guest *db.Guest, password string) error
}

type guestRepository struct {
	DB *sql.DB
}

func NewGuestRepository(database *sql.DB) GuestRepository {
	return &guestRepository{DB: database}
}

func (r *guestRepository) GetByEmail(ctx context.Context, email string) (*db.Guest, error) {
	var g db.Guest
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, name, phone, rut, password_hash, created_at FROM guests WHERE email = $1`,
		email,
	).Scan(&g.ID, &g.Email, &g.Name, &g.Phone, &g.RUT, &g.PasswordHash, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrGuestNotFound
		}
		return nil, fmt.Errorf("error querying guest by email: %w", err)
	}
	return &g, nil
}

func (r *guestRepository) GetByID(ctx context.Context, id int64) (*db.Guest, error) {
	var g db.Guest
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, name, phone, rut, password_hash, created_at FROM guests WHERE id = $1`,
		id,
	).Scan(&g.ID, &g.Email, &g.Name, &g.Phone, &g.RUT, &g.PasswordHash, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrGuestNotFound
		}
		return nil, fmt.Errorf("error querying guest %d: %w", id, err)
	}
	return &g, nil
}

func (r *guestRepository) Create(ctx context.Context, guest *db.Guest, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO guests (email, name, phone, rut, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		guest.Email, guest.Name, guest.Phone, guest.RUT, hashed,
	).Scan(&guest.ID, &guest.CreatedAt)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrEmailTaken
		}
		return fmt.Errorf("error creating guest: %w", err)
	}
	guest.PasswordHash = string(hashed)
	return nil
}
