package staff

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// memberColumns is the select list shared by every member query. The
// email column is nullable in dvdrental.
const memberColumns = `staff_id, first_name, last_name, COALESCE(email, ''), username,
	address_id, store_id, active, last_update`

// Store manages staff rows over a single connection. Callers own the
// lifecycle: Connect, run operations, Close.
type Store struct {
	conn *pgx.Conn
}

func Connect(ctx context.Context, dsn string) (*Store, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// Register inserts a new staff member. Username and email uniqueness is
// checked inside the same transaction that allocates the next staff_id,
// since the dvdrental staff table carries no sequence.
func (s *Store) Register(ctx context.Context, p RegisterParams) (*Member, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM staff WHERE username = $1", p.Username).Scan(&count); err != nil {
		return nil, fmt.Errorf("username check failed: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM staff WHERE email = $1", p.Email).Scan(&count); err != nil {
		return nil, fmt.Errorf("email check failed: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	var id int32
	if err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(staff_id), 0) + 1 FROM staff").Scan(&id); err != nil {
		return nil, fmt.Errorf("id allocation failed: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO staff (
			staff_id, first_name, last_name, email, username,
			password, address_id, store_id, active, last_update
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, now())
		RETURNING %s`, memberColumns)

	var m Member
	err = tx.QueryRow(ctx, query,
		id, p.FirstName, p.LastName, p.Email, p.Username,
		hashPassword(p.Password), p.AddressID, p.StoreID,
	).Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Username,
		&m.AddressID, &m.StoreID, &m.Active, &m.LastUpdate)
	if err != nil {
		return nil, fmt.Errorf("insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &m, nil
}

// Authenticate checks credentials and bumps last_update on success.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*Member, error) {
	query := fmt.Sprintf("SELECT %s FROM staff WHERE username = $1 AND password = $2", memberColumns)

	var m Member
	err := s.conn.QueryRow(ctx, query, username, hashPassword(password)).Scan(
		&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Username,
		&m.AddressID, &m.StoreID, &m.Active, &m.LastUpdate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("credential check failed: %w", err)
	}

	if _, err := s.conn.Exec(ctx, "UPDATE staff SET last_update = now() WHERE staff_id = $1", m.ID); err != nil {
		return nil, fmt.Errorf("failed to update login time: %w", err)
	}
	return &m, nil
}

func (s *Store) Get(ctx context.Context, id int32) (*Member, error) {
	query := fmt.Sprintf("SELECT %s FROM staff WHERE staff_id = $1", memberColumns)
	return s.queryMember(ctx, query, id)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*Member, error) {
	query := fmt.Sprintf("SELECT %s FROM staff WHERE username = $1", memberColumns)
	return s.queryMember(ctx, query, username)
}

func (s *Store) queryMember(ctx context.Context, query string, arg interface{}) (*Member, error) {
	var m Member
	err := s.conn.QueryRow(ctx, query, arg).Scan(
		&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Username,
		&m.AddressID, &m.StoreID, &m.Active, &m.LastUpdate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("member lookup failed: %w", err)
	}
	return &m, nil
}

// Update applies the non-nil fields of p and returns the updated row.
func (s *Store) Update(ctx context.Context, id int32, p UpdateParams) (*Member, error) {
	sets, args := buildUpdate(p)
	if len(args) == 0 {
		return s.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE staff SET %s WHERE staff_id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), memberColumns)

	var m Member
	err := s.conn.QueryRow(ctx, query, args...).Scan(
		&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Username,
		&m.AddressID, &m.StoreID, &m.Active, &m.LastUpdate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update failed: %w", err)
	}
	return &m, nil
}

// buildUpdate turns the non-nil fields into SET clauses. Any change
// also bumps last_update.
func buildUpdate(p UpdateParams) ([]string, []interface{}) {
	var sets []string
	var args []interface{}

	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Username != nil {
		add("username", *p.Username)
	}
	if p.AddressID != nil {
		add("address_id", *p.AddressID)
	}
	if p.StoreID != nil {
		add("store_id", *p.StoreID)
	}
	if p.Active != nil {
		add("active", *p.Active)
	}

	if len(sets) > 0 {
		sets = append(sets, "last_update = now()")
	}
	return sets, args
}

// ChangePassword verifies the old password before setting the new one.
func (s *Store) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	var id int32
	err := s.conn.QueryRow(ctx,
		"SELECT staff_id FROM staff WHERE username = $1 AND password = $2",
		username, hashPassword(oldPassword)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBadCredentials
	}
	if err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}

	_, err = s.conn.Exec(ctx,
		"UPDATE staff SET password = $1, last_update = now() WHERE staff_id = $2",
		hashPassword(newPassword), id)
	if err != nil {
		return fmt.Errorf("password update failed: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, username string) error {
	tag, err := s.conn.Exec(ctx, "DELETE FROM staff WHERE username = $1", username)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// hashPassword matches the MD5 digests the dvdrental sample data ships
// in staff.password.
func hashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}
