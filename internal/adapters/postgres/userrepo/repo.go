package userrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/searchable"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
//
// Search reproduces the in-memory ordering: names compare bytewise (COLLATE "C")
// and ties fall back to insertion order (seq).
type Repo struct {
	pool *pgxpool.Pool
}

var _ userrepo.Repository = (*Repo)(nil)

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// orderColumns maps sortable fields to their ORDER BY expressions.
var orderColumns = map[string]string{
	"name":      `name COLLATE "C"`,
	"createdAt": "created_at",
}

const selectUser = `SELECT id, name, email, password, created_at FROM users`

func (r *Repo) Insert(ctx context.Context, u domain.User) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	id, err := uuid.Parse(u.ID())
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		id,
		u.Name(),
		u.Email(),
		u.Password(),
		u.CreatedAt().UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "users_email_unique":
				return userrepo.EmailAlreadyUsed()
			case "users_pkey":
				return domain.Conflict("UserModel already exists using ID %s", u.ID())
			}
		}
		return err
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, postgres.ErrNilPool
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.User{}, userrepo.NotFoundByID(id)
	}
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, userrepo.NotFoundByID(id)
	}
	return u, err
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, postgres.ErrNilPool
	}
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, userrepo.NotFoundByEmail(email)
	}
	return u, err
}

func (r *Repo) EmailExists(ctx context.Context, email string) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return userrepo.EmailAlreadyUsed()
	}
	return nil
}

func (r *Repo) FindAll(ctx context.Context) ([]domain.User, error) {
	if r.pool == nil {
		return nil, postgres.ErrNilPool
	}
	rows, err := r.pool.Query(ctx, selectUser+` ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *Repo) Update(ctx context.Context, u domain.User) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	id, err := uuid.Parse(u.ID())
	if err != nil {
		return userrepo.NotFoundByID(u.ID())
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $2,
		    email = $3,
		    password = $4,
		    created_at = $5
		WHERE id = $1
	`,
		id,
		u.Name(),
		u.Email(),
		u.Password(),
		u.CreatedAt().UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return userrepo.EmailAlreadyUsed()
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return userrepo.NotFoundByID(u.ID())
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return userrepo.NotFoundByID(id)
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return userrepo.NotFoundByID(id)
	}
	return nil
}

func (r *Repo) SortableFields() []string {
	return append([]string(nil), userrepo.SortableFields...)
}

// Search runs the count and the page query in one read-only snapshot.
func (r *Repo) Search(ctx context.Context, p searchable.Params) (searchable.Result[domain.User], error) {
	if r.pool == nil {
		return searchable.Result[domain.User]{}, postgres.ErrNilPool
	}

	where, args := filterClause(p)
	query := selectUser + where + ` ORDER BY ` + orderClause(p) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	var (
		total int
		items []domain.User
	)
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, query, append(args, p.PerPage(), p.Offset())...)
		if err != nil {
			return err
		}
		items, err = collectUsers(rows)
		return err
	})
	if err != nil {
		return searchable.Result[domain.User]{}, err
	}
	return searchable.NewResult(items, total, p), nil
}

func filterClause(p searchable.Params) (string, []any) {
	if !p.HasFilter() {
		return "", nil
	}
	return ` WHERE strpos(lower(name), lower($1)) > 0`, []any{p.Filter()}
}

func orderClause(p searchable.Params) string {
	col, ok := orderColumns[p.Sort()]
	dir := p.SortDir()
	if !ok {
		col, dir = orderColumns["createdAt"], searchable.SortDesc
	}
	if dir == searchable.SortAsc {
		return col + " ASC, seq ASC"
	}
	return col + " DESC, seq ASC"
}

func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	defer rows.Close()
	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// userRow mirrors a users row. Pointers make NULL columns detectable.
type userRow struct {
	ID        uuid.UUID
	Name      *string
	Email     *string
	Password  *string
	CreatedAt *time.Time
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (domain.User, error) {
	var ur userRow
	if err := row.Scan(&ur.ID, &ur.Name, &ur.Email, &ur.Password, &ur.CreatedAt); err != nil {
		return domain.User{}, err
	}
	return ur.toEntity()
}

func (ur userRow) toEntity() (domain.User, error) {
	missing := map[string]any{}
	if ur.Name == nil {
		missing["name"] = "is null"
	}
	if ur.Email == nil {
		missing["email"] = "is null"
	}
	if ur.Password == nil {
		missing["password"] = "is null"
	}
	if ur.CreatedAt == nil {
		missing["createdAt"] = "is null"
	}
	if len(missing) > 0 {
		return domain.User{}, userrepo.InvalidRecord(missing)
	}

	u, err := domain.NewUser(domain.UserProps{
		Name:      *ur.Name,
		Email:     *ur.Email,
		Password:  *ur.Password,
		CreatedAt: ur.CreatedAt.UTC(),
	}, ur.ID.String())
	if err != nil {
		return domain.User{}, userrepo.InvalidRecord(domain.DetailsOf(err))
	}
	return u, nil
}
