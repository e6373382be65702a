package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const userCols = `id, email, password_hash, name, phone, address, city, purchase_volume, role, is_active, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Address,
		&u.City, &u.PurchaseVolume, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ByID returns nil when no such user exists.
func (r *Repo) ByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// ByEmail returns nil when no such user exists.
func (r *Repo) ByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *Repo) List(ctx context.Context, f Filter) ([]User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE 1=1`
	var args []any
	if f.Role != "" {
		args = append(args, f.Role)
		q += fmt.Sprintf(` AND role = $%d`, len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		q += fmt.Sprintf(` AND (name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)`, len(args), len(args), len(args))
	}
	q += ` ORDER BY name`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO users(email, password_hash, name, phone, address, city, purchase_volume, role)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, is_active, created_at`,
		u.Email, u.PasswordHash, u.Name, u.Phone, u.Address, u.City, u.PurchaseVolume, u.Role).
		Scan(&u.ID, &u.IsActive, &u.CreatedAt)
}

func (r *Repo) Update(ctx context.Context, id int64, p Patch) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.City != nil {
		add("city", *p.City)
	}
	if p.PurchaseVolume != nil {
		add("purchase_volume", *p.PurchaseVolume)
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}
	if p.Role != nil {
		add("role", *p.Role)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	ct, err := r.DB.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repo) SetPassword(ctx context.Context, id int64, hash string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE users SET password_hash=$2 WHERE id=$1`, id, hash)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repo) Deactivate(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `UPDATE users SET is_active = false WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
