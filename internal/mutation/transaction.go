package mutation

import (
	"fmt"
	"sync"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// Transaction is one undoable mutation. The concrete types are AddTx,
// CreateLocationTx and MoveTx.
type Transaction interface {
	fmt.Stringer
	transaction()
}

// AddTx records copies inserted by one add, in insertion order.
type AddTx struct {
	EntryIDs []int64
}

// CreateLocationTx records a location created on demand.
type CreateLocationTx struct {
	LocationID int64
	Key        models.LocationKey
}

// MoveTx records entries moved from one location to another.
type MoveTx struct {
	EntryIDs []int64
	From     int64
	To       int64
}

func (AddTx) transaction()            {}
func (CreateLocationTx) transaction() {}
func (MoveTx) transaction()           {}

func (t AddTx) String() string {
	return fmt.Sprintf("add %d copies", len(t.EntryIDs))
}

func (t CreateLocationTx) String() string {
	return fmt.Sprintf("create location %s", t.Key)
}

func (t MoveTx) String() string {
	return fmt.Sprintf("move %d copies from location %d to %d", len(t.EntryIDs), t.From, t.To)
}

// UndoStack is the per-session stack of undoable transactions. Only the top
// is ever inspected or removed. It is safe for concurrent use.
type UndoStack struct {
	mu    sync.Mutex
	items []Transaction
}

// NewUndoStack creates an empty stack.
func NewUndoStack() *UndoStack {
	return &UndoStack{}
}

// Push adds a transaction on top.
func (s *UndoStack) Push(tx Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
}

// Peek returns the top transaction, or nil if the stack is empty.
func (s *UndoStack) Peek() Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

// Pop removes and returns the top transaction, or nil if the stack is empty.
func (s *UndoStack) Pop() Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil
	}
	top := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return top
}

// Len returns the number of recorded transactions.
func (s *UndoStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
