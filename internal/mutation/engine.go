// Package mutation changes the collection and the location registry. Every
// change is recorded on an injected undo stack and can be reverted, one step
// at a time, after confirmation.
package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ramonehamilton/mtg-collection/internal/storage"
	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// DefaultCopyLimit is the owned-copy count above which adding asks first.
const DefaultCopyLimit = 4

// Store gives access to repositories, standalone or inside one transaction.
// *storage.DB implements it.
type Store interface {
	Repos() *storage.Repositories
	InTx(ctx context.Context, fn func(*storage.Repositories) error) error
}

// Config configures an Engine.
type Config struct {
	Store     Store
	Stack     *UndoStack
	Confirmer Confirmer
	// CopyLimit defaults to DefaultCopyLimit.
	CopyLimit int
	Logger    *slog.Logger
}

// Engine performs confirmed, undoable mutations.
type Engine struct {
	store     Store
	stack     *UndoStack
	confirmer Confirmer
	copyLimit int
	logger    *slog.Logger
}

// NewEngine creates a new mutation engine.
func NewEngine(config Config) (*Engine, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if config.Stack == nil {
		return nil, fmt.Errorf("undo stack is required")
	}
	if config.Confirmer == nil {
		return nil, fmt.Errorf("confirmer is required")
	}
	if config.CopyLimit <= 0 {
		config.CopyLimit = DefaultCopyLimit
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Engine{
		store:     config.Store,
		stack:     config.Stack,
		confirmer: config.Confirmer,
		copyLimit: config.CopyLimit,
		logger:    config.Logger,
	}, nil
}

// Stack returns the undo stack the engine records to.
func (e *Engine) Stack() *UndoStack {
	return e.stack
}

// ResolveLocation returns the location with the given key. A missing
// location is created after confirmation and recorded as CreateLocationTx.
// Declining returns ErrDeclined and creates nothing.
func (e *Engine) ResolveLocation(ctx context.Context, key models.LocationKey) (*models.Location, error) {
	loc, err := e.store.Repos().Locations.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if loc != nil {
		return loc, nil
	}

	if err := ask(ctx, e.confirmer, fmt.Sprintf("Location %s does not exist. Create it?", key)); err != nil {
		return nil, err
	}

	var created bool
	err = e.store.InTx(ctx, func(repos *storage.Repositories) error {
		loc, created, err = repos.Locations.GetOrCreate(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		e.stack.Push(CreateLocationTx{LocationID: loc.ID, Key: key})
		e.logger.Info("Created location", "location", key.String(), "id", loc.ID)
	}
	return loc, nil
}

// LookupLocation returns an existing location or a LocationNotFoundError.
func (e *Engine) LookupLocation(ctx context.Context, key models.LocationKey) (*models.Location, error) {
	loc, err := e.store.Repos().Locations.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, &LocationNotFoundError{Key: key}
	}
	return loc, nil
}

// AddCopies inserts n copies of a card at a location, one row per copy, and
// records them as one AddTx. When the owned total would exceed the copy
// limit the user is asked first; declining inserts nothing.
func (e *Engine) AddCopies(ctx context.Context, cardID, language string, locationID int64, n int) (*AddTx, error) {
	card, err := e.checkAdd(ctx, cardID, n)
	if err != nil {
		return nil, err
	}
	if err := e.confirmCopyLimit(ctx, card, n); err != nil {
		return nil, err
	}
	return e.insert(ctx, card, language, locationID, n)
}

// AddToLocation is AddCopies for a location key. The copy-limit question is
// asked before a missing location is offered for creation, so declining it
// never leaves an unused location behind.
func (e *Engine) AddToLocation(ctx context.Context, cardID, language string, key models.LocationKey, n int) (*AddTx, error) {
	card, err := e.checkAdd(ctx, cardID, n)
	if err != nil {
		return nil, err
	}
	if err := e.confirmCopyLimit(ctx, card, n); err != nil {
		return nil, err
	}

	loc, err := e.ResolveLocation(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.insert(ctx, card, language, loc.ID, n)
}

func (e *Engine) checkAdd(ctx context.Context, cardID string, n int) (*models.Card, error) {
	if n <= 0 {
		return nil, ErrInvalidQuantity
	}
	card, err := e.store.Repos().Cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, &CardNotFoundError{Ref: cardID}
	}
	return card, nil
}

func (e *Engine) confirmCopyLimit(ctx context.Context, card *models.Card, n int) error {
	owned, err := e.store.Repos().Collection.CountByCard(ctx, card.ID)
	if err != nil {
		return err
	}
	total := owned + n
	if total <= e.copyLimit {
		return nil
	}
	return ask(ctx, e.confirmer, fmt.Sprintf(
		"You would own %d copies of %s (%s %s), more than %d. Add anyway?",
		total, card.Name, strings.ToUpper(card.SetCode), card.CollectorNumber, e.copyLimit))
}

func (e *Engine) insert(ctx context.Context, card *models.Card, language string, locationID int64, n int) (*AddTx, error) {
	tx := &AddTx{EntryIDs: make([]int64, 0, n)}
	err := e.store.InTx(ctx, func(repos *storage.Repositories) error {
		for i := 0; i < n; i++ {
			id, err := repos.Collection.Insert(ctx, card.ID, language, locationID)
			if err != nil {
				return err
			}
			tx.EntryIDs = append(tx.EntryIDs, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.stack.Push(*tx)
	e.logger.Info("Added copies", "card", card.Name, "count", n, "location", locationID)
	return tx, nil
}

// Move relocates count copies of a card from one location to another and
// records a MoveTx. The lowest entry ids at the source are moved.
func (e *Engine) Move(ctx context.Context, cardID string, from, to int64, count int) (*MoveTx, error) {
	if from == to {
		return nil, ErrNullMove
	}
	if count <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx := &MoveTx{From: from, To: to}
	err := e.store.InTx(ctx, func(repos *storage.Repositories) error {
		ids, err := repos.Collection.EntriesAt(ctx, from, cardID, 0)
		if err != nil {
			return err
		}
		if len(ids) < count {
			return &InsufficientCopiesError{CardID: cardID, From: from, Requested: count, Available: len(ids)}
		}
		ids = ids[:count]
		if _, err := repos.Collection.Relocate(ctx, ids, to); err != nil {
			return err
		}
		tx.EntryIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.stack.Push(*tx)
	e.logger.Info("Moved copies", "card", cardID, "count", count, "from", from, "to", to)
	return tx, nil
}

// MoveBetween is Move for location keys. The source must exist; the
// destination is resolved or created only after the source is known to hold
// enough copies.
func (e *Engine) MoveBetween(ctx context.Context, cardID string, from, to models.LocationKey, count int) (*MoveTx, error) {
	if from == to {
		return nil, ErrNullMove
	}
	if count <= 0 {
		return nil, ErrInvalidQuantity
	}

	src, err := e.LookupLocation(ctx, from)
	if err != nil {
		return nil, err
	}
	available, err := e.store.Repos().Collection.EntriesAt(ctx, src.ID, cardID, 0)
	if err != nil {
		return nil, err
	}
	if len(available) < count {
		return nil, &InsufficientCopiesError{CardID: cardID, From: src.ID, Requested: count, Available: len(available)}
	}

	dst, err := e.ResolveLocation(ctx, to)
	if err != nil {
		return nil, err
	}
	return e.Move(ctx, cardID, src.ID, dst.ID, count)
}

// MoveEntries relocates specific entries, such as the pulls of an
// allocation plan, to a location. One MoveTx is recorded per source
// location; entries already there are skipped.
func (e *Engine) MoveEntries(ctx context.Context, entryIDs []int64, to int64) ([]MoveTx, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}

	var moves []MoveTx
	err := e.store.InTx(ctx, func(repos *storage.Repositories) error {
		details, err := repos.Collection.Describe(ctx, entryIDs)
		if err != nil {
			return err
		}
		if want := len(uniqueIDs(entryIDs)); len(details) != want {
			return fmt.Errorf("%d of %d entries no longer exist", want-len(details), want)
		}

		bySource := make(map[int64][]int64)
		var order []int64
		for _, d := range details {
			if d.LocationID == to {
				continue
			}
			if _, ok := bySource[d.LocationID]; !ok {
				order = append(order, d.LocationID)
			}
			bySource[d.LocationID] = append(bySource[d.LocationID], d.EntryID)
		}

		for _, from := range order {
			ids := bySource[from]
			if _, err := repos.Collection.Relocate(ctx, ids, to); err != nil {
				return err
			}
			moves = append(moves, MoveTx{EntryIDs: ids, From: from, To: to})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range moves {
		e.stack.Push(m)
	}
	e.logger.Info("Moved entries", "entries", len(entryIDs), "sources", len(moves), "to", to)
	return moves, nil
}

// Undo reverts the top transaction after confirmation and pops it. An empty
// stack is a no-op returning nil. Declining returns ErrDeclined and leaves
// both the stack and the store untouched.
//
// Undoing a location creation is refused with a *LocationInUseError while
// copies are still stored there; the transaction stays on the stack.
func (e *Engine) Undo(ctx context.Context) (Transaction, error) {
	top := e.stack.Peek()
	if top == nil {
		return nil, nil
	}

	prompt, err := e.undoPrompt(ctx, top)
	if err != nil {
		return nil, err
	}
	if err := ask(ctx, e.confirmer, prompt); err != nil {
		return nil, err
	}

	err = e.store.InTx(ctx, func(repos *storage.Repositories) error {
		switch tx := top.(type) {
		case AddTx:
			_, err := repos.Collection.Delete(ctx, tx.EntryIDs)
			return err
		case CreateLocationTx:
			n, err := repos.Collection.CountByLocation(ctx, tx.LocationID)
			if err != nil {
				return err
			}
			if n > 0 {
				return &LocationInUseError{LocationID: tx.LocationID, Entries: n}
			}
			return repos.Locations.Delete(ctx, tx.LocationID)
		case MoveTx:
			_, err := repos.Collection.Relocate(ctx, tx.EntryIDs, tx.From)
			return err
		default:
			return fmt.Errorf("unknown transaction type %T", top)
		}
	})
	if err != nil {
		return nil, err
	}

	e.stack.Pop()
	e.logger.Info("Undid transaction", "transaction", top.String())
	return top, nil
}

func (e *Engine) undoPrompt(ctx context.Context, top Transaction) (string, error) {
	var (
		header string
		ids    []int64
	)
	switch tx := top.(type) {
	case AddTx:
		header = "Remove these copies from the collection?"
		ids = tx.EntryIDs
	case CreateLocationTx:
		return fmt.Sprintf("Delete location %s?", tx.Key), nil
	case MoveTx:
		from, err := e.store.Repos().Locations.GetByID(ctx, tx.From)
		if err != nil {
			return "", err
		}
		dest := fmt.Sprintf("location %d", tx.From)
		if from != nil {
			dest = from.String()
		}
		header = fmt.Sprintf("Move these copies back to %s?", dest)
		ids = tx.EntryIDs
	default:
		return "", fmt.Errorf("unknown transaction type %T", top)
	}

	details, err := e.store.Repos().Collection.Describe(ctx, ids)
	if err != nil {
		return "", err
	}
	lines := []string{header}
	for _, d := range details {
		lines = append(lines, "  "+d.String())
	}
	return strings.Join(lines, "\n"), nil
}

func uniqueIDs(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
