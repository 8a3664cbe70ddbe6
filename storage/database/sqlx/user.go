package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/stg-academy/haksa/core/user"
)

type dbUser struct {
	ID           int            `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	Information  string         `db:"information"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	GoogleID     string         `db:"google_id"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func (du dbUser) toUser() user.User {
	usr := user.User{
		ID:           du.ID,
		Name:         du.Name,
		Username:     du.Username,
		Email:        du.Email,
		Information:  du.Information,
		IsActive:     du.IsActive,
		Roles:        du.Roles,
		GoogleID:     du.GoogleID,
		PasswordHash: du.PasswordHash,
		CreatedAt:    du.CreatedAt,
		UpdatedAt:    du.UpdatedAt,
	}
	if du.LastLogin.Valid {
		usr.LastLogin = du.LastLogin.Time
	}
	return usr
}

const userColumns = `id, name, username, email, information, is_active, roles, google_id, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	query := `SELECT username, email FROM "user" WHERE (LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($2))`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]int, len(excludedUsers))
		for i, usr := range excludedUsers {
			ids[i] = usr.ID
		}
		query += ` AND id <> ALL($3)`
		args = append(args, pq.Array(ids))
	}

	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return dbErr(err)
	}
	for _, row := range rows {
		if username != "" && strings.EqualFold(row.Username, username) {
			return user.ErrUsernameExists
		}
		if email != "" && strings.EqualFold(row.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
INSERT INTO "user" (name, username, email, information, is_active, roles, google_id, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		usr.Name, usr.Username, usr.Email, usr.Information, usr.IsActive,
		pq.Array(usr.Roles), usr.GoogleID, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, dbErr(err)
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context, skip, limit int) ([]user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM "user" ORDER BY id OFFSET $1 LIMIT $2`, userColumns)
	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, query, skip, limit); err != nil {
		return nil, dbErr(err)
	}
	return toUsers(rows), nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM "user" WHERE %s`, userColumns, where)
	var row dbUser
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, dbErr(err)
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, `id = $1`, id)
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, `LOWER(username) = LOWER($1)`, username)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, `LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)`, username)
}

func (repo *userRepository) GetUserByGoogleID(ctx context.Context, googleID string) (user.User, error) {
	return repo.getUser(ctx, `google_id = $1 AND google_id <> ''`, googleID)
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	filter.Clean()

	where := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}
	if filter.Roles != nil {
		// prefix match so a role group like "admin:" selects all its members
		exprs := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			exprs[i] = fmt.Sprintf(`EXISTS (SELECT 1 FROM unnest(roles) r WHERE r LIKE %s)`, arg(role+"%"))
		}
		where = append(where, "("+strings.Join(exprs, " OR ")+")")
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = "+arg(*filter.IsActive))
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, "created_at >= "+arg(filter.CreatedFrom))
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, "created_at <= "+arg(filter.CreatedTo))
	}

	query := fmt.Sprintf(`SELECT %s FROM "user"`, userColumns)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbErr(err)
	}
	return toUsers(rows), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	// only the provided fields are updated
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Username != "" {
		set("username", usr.Username)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.Information != "" {
		set("information", usr.Information)
	}
	if usr.Roles != nil {
		set("roles", pq.Array(usr.Roles))
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if usr.GoogleID != "" {
		set("google_id", usr.GoogleID)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	if !usr.UpdatedAt.IsZero() {
		set("updated_at", usr.UpdatedAt)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin)
	}
	if len(sets) == 0 {
		return repo.GetUserByID(ctx, usr.ID)
	}

	args = append(args, usr.ID)
	query := fmt.Sprintf(
		`UPDATE "user" SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns,
	)
	var row dbUser
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, dbErr(err)
	}
	return row.toUser(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...int) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids))
	return dbErr(err)
}

func toUsers(rows []dbUser) []user.User {
	users := make([]user.User, len(rows))
	for i, row := range rows {
		users[i] = row.toUser()
	}
	return users
}
