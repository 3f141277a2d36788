package backendsvc

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hostelcare/internal/model"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the profiles table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			subject_id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			registration_number TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			hostel_type TEXT NOT NULL DEFAULT '',
			block TEXT NOT NULL DEFAULT '',
			room_number TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func (s *Store) GetProfile(ctx context.Context, subjectID string) (model.ProfileRecord, error) {
	var record model.ProfileRecord
	var role string
	row := s.pool.QueryRow(ctx, `
		SELECT subject_id, role, email, name, avatar_url, registration_number, phone_number, hostel_type, block, room_number
		FROM profiles
		WHERE subject_id = $1
	`, subjectID)
	err := row.Scan(
		&record.SubjectID,
		&role,
		&record.Email,
		&record.Name,
		&record.AvatarURL,
		&record.RegistrationNumber,
		&record.PhoneNumber,
		&record.HostelType,
		&record.Block,
		&record.RoomNumber,
	)
	record.Role = model.Role(role)
	return record, err
}

func (s *Store) UpsertProfile(ctx context.Context, record model.ProfileRecord) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (subject_id, role, email, name, avatar_url, registration_number, phone_number, hostel_type, block, room_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (subject_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			registration_number = excluded.registration_number,
			phone_number = excluded.phone_number,
			hostel_type = excluded.hostel_type,
			block = excluded.block,
			room_number = excluded.room_number,
			updated_at = excluded.updated_at
	`, record.SubjectID, string(record.Role), record.Email, record.Name, record.AvatarURL,
		record.RegistrationNumber, record.PhoneNumber, record.HostelType, record.Block,
		record.RoomNumber, now)
	return err
}

func (s *Store) UpdateAvatar(ctx context.Context, subjectID, avatarURL string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE profiles SET avatar_url = $1, updated_at = $2 WHERE subject_id = $3
	`, avatarURL, time.Now().UTC(), subjectID)
	return err
}

// ListAdminsByBlock returns admin profiles scoped to a hostel block, the key
// later ticket queries are partitioned on.
func (s *Store) ListAdminsByBlock(ctx context.Context, block string, limit int) ([]model.ProfileRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT subject_id, role, email, name, avatar_url, registration_number, phone_number, hostel_type, block, room_number
		FROM profiles
		WHERE role = 'admin' AND block = $1
		ORDER BY name
		LIMIT $2
	`, block, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []model.ProfileRecord
	for rows.Next() {
		var record model.ProfileRecord
		var role string
		if err := rows.Scan(
			&record.SubjectID,
			&role,
			&record.Email,
			&record.Name,
			&record.AvatarURL,
			&record.RegistrationNumber,
			&record.PhoneNumber,
			&record.HostelType,
			&record.Block,
			&record.RoomNumber,
		); err != nil {
			return nil, err
		}
		record.Role = model.Role(role)
		admins = append(admins, record)
	}
	return admins, rows.Err()
}
