package billing

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/billing"
	"github.com/restopos/backend/internal/domain/shared"
)

// SnapshotListener is notified with the committed invoice snapshot after
// every successful commit, and with the removed id after an eviction.
type SnapshotListener interface {
	OnInvoiceCommitted(inv *billing.Invoice)
	OnInvoiceEvicted(id uuid.UUID)
}

// Coordinator keeps the canonical in-memory view of tracked invoices, keyed
// by id. All mutations flow through Commit, which serializes work per invoice
// and always applies the mutation to the latest committed snapshot, so two
// racing edits of the same invoice cannot overwrite each other. Persistence
// happens before the canonical map is updated: a failed write leaves the
// previous snapshot in place.
type Coordinator struct {
	repo billing.InvoiceRepository

	mu        sync.RWMutex
	snapshots map[uuid.UUID]*billing.Invoice
	locks     map[uuid.UUID]*sync.Mutex

	listenerMu sync.RWMutex
	listeners  []SnapshotListener
}

// NewCoordinator creates a coordinator backed by the given repository
func NewCoordinator(repo billing.InvoiceRepository) *Coordinator {
	return &Coordinator{
		repo:      repo,
		snapshots: make(map[uuid.UUID]*billing.Invoice),
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// Subscribe registers a listener for snapshot commits and evictions
func (c *Coordinator) Subscribe(l SnapshotListener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Track seeds the canonical map with an already-persisted invoice, typically
// after a create or an initial list load.
func (c *Coordinator) Track(inv *billing.Invoice) {
	c.mu.Lock()
	c.snapshots[inv.ID] = inv.Clone()
	c.mu.Unlock()
	c.notifyCommitted(inv)
}

// Latest returns a copy of the canonical snapshot for the given id, falling
// back to the repository when the invoice is not tracked yet.
func (c *Coordinator) Latest(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	c.mu.RLock()
	inv, ok := c.snapshots[id]
	c.mu.RUnlock()
	if ok {
		return inv.Clone(), nil
	}

	loaded, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snapshots[id] = loaded.Clone()
	c.mu.Unlock()
	return loaded, nil
}

// Commit applies mutate to the latest snapshot of the invoice, persists the
// result, and only then replaces the canonical snapshot. Commits to the same
// id are serialized; commits to different ids run concurrently. A commit
// against an invoice that no longer exists returns ErrStaleReference and
// leaves no trace.
func (c *Coordinator) Commit(ctx context.Context, id uuid.UUID, mutate func(inv *billing.Invoice) error) (*billing.Invoice, error) {
	lock := c.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	base, err := c.latestForCommit(ctx, id)
	if err != nil {
		return nil, err
	}

	working := base.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}

	if err := c.repo.Update(ctx, working); err != nil {
		if shared.IsDomainError(err, "NOT_FOUND") {
			// Deleted underneath us: evict and report the commit as stale.
			c.evict(id)
			return nil, billing.ErrStaleReference
		}
		return nil, err
	}

	c.mu.Lock()
	c.snapshots[id] = working.Clone()
	c.mu.Unlock()
	c.notifyCommitted(working)

	return working, nil
}

// Remove evicts an invoice from the canonical map after deletion. Removing an
// untracked id is a no-op.
func (c *Coordinator) Remove(id uuid.UUID) {
	c.evict(id)
}

func (c *Coordinator) latestForCommit(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	c.mu.RLock()
	inv, ok := c.snapshots[id]
	c.mu.RUnlock()
	if ok {
		return inv, nil
	}

	loaded, err := c.repo.FindByID(ctx, id)
	if err != nil {
		if shared.IsDomainError(err, "NOT_FOUND") {
			return nil, billing.ErrStaleReference
		}
		return nil, err
	}
	return loaded, nil
}

func (c *Coordinator) lockFor(id uuid.UUID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[id] = lock
	}
	return lock
}

func (c *Coordinator) evict(id uuid.UUID) {
	c.mu.Lock()
	_, tracked := c.snapshots[id]
	delete(c.snapshots, id)
	c.mu.Unlock()
	if tracked {
		c.notifyEvicted(id)
	}
}

func (c *Coordinator) notifyCommitted(inv *billing.Invoice) {
	c.listenerMu.RLock()
	defer c.listenerMu.RUnlock()
	for _, l := range c.listeners {
		l.OnInvoiceCommitted(inv.Clone())
	}
}

func (c *Coordinator) notifyEvicted(id uuid.UUID) {
	c.listenerMu.RLock()
	defer c.listenerMu.RUnlock()
	for _, l := range c.listeners {
		l.OnInvoiceEvicted(id)
	}
}
