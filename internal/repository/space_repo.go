package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
)

type SpaceRepository interface {
	GetByID(ctx context.Context, id int64) (*db.Space, error)
	ListActive(ctx context.Context) ([]db.Space, error)
}

type spaceRepository struct {
	DB *sql.DB
}

func NewSpaceRepository(database *sql.DB) SpaceRepository {
	return &spaceRepository{DB: database}
}

func (r *spaceRepository) GetByID(ctx context.Context, id int64) (*db.Space, error) {
	var s db.Space
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, host_id, name, active FROM spaces WHERE id = $1`, id,
	).Scan(&s.ID, &s.HostID, &s.Name, &s.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrSpaceNotFound
		}
		return nil, fmt.Errorf("error querying space %d: %w", id, err)
	}
	return &s, nil
}

func (r *spaceRepository) ListActive(ctx context.Context) ([]db.Space, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, host_id, name, active FROM spaces WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error listing spaces: %w", err)
	}
	defer rows.Close()

	var spaces []db.Space
	for rows.Next() {
		var s db.Space
		if err := rows.Scan(&s.ID, &s.HostID, &s.Name, &s.Active); err != nil {
			return nil, fmt.Errorf("error scanning space: %w", err)
		}
		spaces = append(spaces, s)
	}
	return spaces, rows.Err()
}
