package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var _ CredentialStore = &BunStore{}

// credentialRow is the single-row table backing the SQLite store.
type credentialRow struct {
	bun.BaseModel `bun:"table:client_credentials,alias:cred"`
	ID            int64     `bun:"id,pk"`
	AccessToken   string    `bun:"access_token,notnull"`
	RefreshToken  string    `bun:"refresh_token"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

const credentialRowID = 1

// BunStore persists the credential record in a SQLite table via bun. Useful
// for clients that already ship a local database.
type BunStore struct {
	db  *bun.DB
	now func() time.Time
}

// BunStoreOption customizes BunStore construction.
type BunStoreOption func(*BunStore)

// WithBunStoreClock injects a custom clock (useful for tests).
func WithBunStoreClock(clock func() time.Time) BunStoreOption {
	return func(s *BunStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewBunStore wraps an existing bun database handle.
func NewBunStore(db *bun.DB, opts ...BunStoreOption) *BunStore {
	s := &BunStore{
		db:  db,
		now: time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// OpenSQLite opens (or creates) a SQLite database at dsn and returns a bun
// handle suitable for NewBunStore.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "store: failed to open sqlite database")
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Init creates the backing table when it does not exist.
func (s *BunStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*credentialRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "store: failed to create credentials table")
	}
	return nil
}

func (s *BunStore) Read(ctx context.Context) (*Record, error) {
	row := &credentialRow{}
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", credentialRowID).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "store: failed to read credential row")
	}

	return &Record{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
	}, nil
}

func (s *BunStore) Write(ctx context.Context, rec *Record) error {
	if rec == nil {
		return s.Erase(ctx)
	}

	row := &credentialRow{
		ID:           credentialRowID,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		UpdatedAt:    s.now(),
	}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "store: failed to write credential row")
	}
	return nil
}

func (s *BunStore) Erase(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*credentialRow)(nil)).
		Where("id = ?", credentialRowID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "store: failed to erase credential row")
	}
	return nil
}
