package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sectland-backend/internal/domain"
	"sectland-backend/internal/repository"
)

type sectRepository struct {
	db *sql.DB
}

func NewSectRepository(db *sql.DB) repository.SectRepository {
	return &sectRepository{db: db}
}

const sectColumns = `id, name, level, leader_id, admin_email, funds, member_count,
	          territory_id, land_center_x, land_center_y, land_center_z,
	          last_maintenance_at, building_slots`

func (r *sectRepository) GetByID(ctx context.Context, id int32) (*domain.Sect, error) {
	query := `SELECT ` + sectColumns + ` FROM sects WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	s, err := scanSect(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sect %d: %w", id, domain.ErrNotFound)
	}
	return s, err
}

func (r *sectRepository) ListWithTerritory(ctx context.Context) ([]domain.Sect, error) {
	query := `SELECT ` + sectColumns + ` FROM sects WHERE territory_id IS NOT NULL ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sects []domain.Sect
	for rows.Next() {
		s, err := scanSect(rows)
		if err != nil {
			return nil, err
		}
		sects = append(sects, *s)
	}
	return sects, rows.Err()
}

func (r *sectRepository) Save(ctx context.Context, sect *domain.Sect) error {
	slots, err := json.Marshal(sect.BuildingSlots)
	if err != nil {
		return fmt.Errorf("failed to encode building slots: %w", err)
	}

	var territoryID sql.NullString
	if sect.TerritoryID != nil {
		territoryID = sql.NullString{String: *sect.TerritoryID, Valid: true}
	}
	var cx, cy, cz sql.NullInt32
	if sect.LandCenter != nil {
		cx = sql.NullInt32{Int32: sect.LandCenter.X, Valid: true}
		cy = sql.NullInt32{Int32: sect.LandCenter.Y, Valid: true}
		cz = sql.NullInt32{Int32: sect.LandCenter.Z, Valid: true}
	}

	query := `UPDATE sects SET funds = $1, territory_id = $2,
	          land_center_x = $3, land_center_y = $4, land_center_z = $5,
	          last_maintenance_at = $6, building_slots = $7
	          WHERE id = $8`
	_, err = r.db.ExecContext(ctx, query, sect.Funds, territoryID,
		cx, cy, cz, sect.LastMaintenanceAt, slots, sect.ID)
	return err
}

func (r *sectRepository) ListMembers(ctx context.Context, sectID int32) ([]domain.Member, error) {
	query := `SELECT user_id, sect_id, name, rank FROM sect_members WHERE sect_id = $1 ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, sectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.SectID, &m.Name, &m.Rank); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *sectRepository) GetMember(ctx context.Context, sectID, userID int32) (*domain.Member, error) {
	m := &domain.Member{}
	query := `SELECT user_id, sect_id, name, rank FROM sect_members WHERE sect_id = $1 AND user_id = $2`
	err := r.db.QueryRowContext(ctx, query, sectID, userID).Scan(&m.UserID, &m.SectID, &m.Name, &m.Rank)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("member %d of sect %d: %w", userID, sectID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSect(row rowScanner) (*domain.Sect, error) {
	s := &domain.Sect{}
	var territoryID sql.NullString
	var cx, cy, cz sql.NullInt32
	var slots []byte

	err := row.Scan(&s.ID, &s.Name, &s.Level, &s.LeaderID, &s.AdminEmail,
		&s.Funds, &s.MemberCount, &territoryID, &cx, &cy, &cz,
		&s.LastMaintenanceAt, &slots)
	if err != nil {
		return nil, err
	}

	if territoryID.Valid {
		s.TerritoryID = &territoryID.String
	}
	if cx.Valid && cy.Valid && cz.Valid {
		s.LandCenter = &domain.Point{X: cx.Int32, Y: cy.Int32, Z: cz.Int32}
	}
	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &s.BuildingSlots); err != nil {
			return nil, fmt.Errorf("failed to decode building slots: %w", err)
		}
	}
	return s, nil
}
