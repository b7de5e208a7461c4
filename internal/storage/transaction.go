package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ramonehamilton/mtg-collection/internal/storage/repository"
)

// TxFunc is a function that runs within a transaction.
type TxFunc func(*sql.Tx) error

// WithTransaction executes the given function within a database transaction.
// It automatically commits on success or rolls back on error.
// If the function panics, the transaction is rolled back and the panic is re-raised.
func (db *DB) WithTransaction(ctx context.Context, fn TxFunc) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
			}
		} else {
			err = tx.Commit()
			if err != nil {
				err = fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
	}()

	err = fn(tx)
	return err
}

// Repositories bundles the repositories bound to one querier, either the
// database itself or an open transaction.
type Repositories struct {
	Cards      repository.CardRepository
	Sets       repository.SetRepository
	Images     repository.ImageRepository
	Locations  repository.LocationRepository
	Collection repository.CollectionRepository
}

// NewRepositories binds every repository to q.
func NewRepositories(q repository.Querier) *Repositories {
	return &Repositories{
		Cards:      repository.NewCardRepository(q),
		Sets:       repository.NewSetRepository(q),
		Images:     repository.NewImageRepository(q),
		Locations:  repository.NewLocationRepository(q),
		Collection: repository.NewCollectionRepository(q),
	}
}

// Repos returns repositories that run directly against the database.
func (db *DB) Repos() *Repositories {
	return NewRepositories(db.conn)
}

// InTx runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(*Repositories) error) error {
	return db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(NewRepositories(tx))
	})
}
