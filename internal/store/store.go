package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Family is the storage client for the family-reachable domain: subjects,
// guardians, and the activity timeline. It cannot reach sealed tables; its
// credentials have no grants there and its method set exposes nothing
// sealed-shaped.
type Family struct {
	db *sql.DB
}

// Sealed is the storage client for the sealed domain: blackouts, audit
// entries, subject salts, and synthetic-fill companions. Only compliance
// and partner code paths construct repositories over it.
type Sealed struct {
	db *sql.DB
}

// OpenFamily opens the family-reachable database.
func OpenFamily(ctx context.Context, dsn string) (*Family, error) {
	db, err := open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open family store: %w", err)
	}
	return &Family{db: db}, nil
}

// OpenSealed opens the sealed database.
func OpenSealed(ctx context.Context, dsn string) (*Sealed, error) {
	db, err := open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sealed store: %w", err)
	}
	return &Sealed{db: db}, nil
}

// FamilyDB exposes the underlying handle to family repositories.
func (f *Family) FamilyDB() *sql.DB { return f.db }

// Close closes the family store.
func (f *Family) Close() error { return f.db.Close() }

// SealedDB exposes the underlying handle to sealed repositories.
func (s *Sealed) SealedDB() *sql.DB { return s.db }

// Close closes the sealed store.
func (s *Sealed) Close() error { return s.db.Close() }

// WrapFamily builds a Family over an existing handle. Test seam.
func WrapFamily(db *sql.DB) *Family { return &Family{db: db} }

// WrapSealed builds a Sealed over an existing handle. Test seam.
func WrapSealed(db *sql.DB) *Sealed { return &Sealed{db: db} }

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
