// Package state holds the last fetched product collection and its load status.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/seif-emam/deveolp-network/internal/catalog"
	catalogerrors "github.com/seif-emam/deveolp-network/internal/errors"
	"golang.org/x/sync/singleflight"
)

// LoadErrorMessage is the user-facing message set when a load fails.
const LoadErrorMessage = "Failed to load products"

// Lister fetches the full product collection.
type Lister interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

// Snapshot is an immutable view of the holder.
// Products must not be modified by the receiver.
// Seq grows with every state change, so observers can drop snapshots delivered late.
type Snapshot struct {
	Products   []catalog.Product
	Loading    bool
	Err        string
	LoadedAt   time.Time
	Generation uint64
	Seq        uint64
}

// Loaded reports whether at least one load succeeded.
func (s Snapshot) Loaded() bool {
	return !s.LoadedAt.IsZero()
}

// Holder owns the product snapshot. Loads are coalesced per generation;
// a load started before Invalidate never commits its result.
type Holder struct {
	lister Lister
	logger *slog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	products   []catalog.Product
	loading    bool
	errMsg     string
	loadedAt   time.Time
	generation uint64
	seq        uint64

	group singleflight.Group

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewHolder creates an empty holder backed by lister.
func NewHolder(lister Lister, logger *slog.Logger) *Holder {
	return &Holder{
		lister: lister,
		logger: logger.With("component", "catalog-state"),
		now:    time.Now,
		subs:   make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current state.
func (h *Holder) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

func (h *Holder) snapshotLocked() Snapshot {
	return Snapshot{
		Products:   h.products[:len(h.products):len(h.products)],
		Loading:    h.loading,
		Err:        h.errMsg,
		LoadedAt:   h.loadedAt,
		Generation: h.generation,
		Seq:        h.seq,
	}
}

// commitLocked records a state change and returns the resulting snapshot.
func (h *Holder) commitLocked() Snapshot {
	h.seq++
	return h.snapshotLocked()
}

// Load fetches the collection and replaces the snapshot wholesale.
// Concurrent calls within one generation share a single request. The request
// is not cancelled when ctx ends; the caller just stops waiting.
// ErrLoadSuperseded is returned when Invalidate ran while the request was in flight.
func (h *Holder) Load(ctx context.Context) error {
	_, err := h.LoadSnapshot(ctx)
	return err
}

// LoadSnapshot is Load returning the snapshot committed by the request it waited on,
// which later loads of other callers cannot flip back to loading.
// When ctx ends first, the current snapshot is returned with ctx's error.
func (h *Holder) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	h.mu.Lock()
	gen := h.generation
	h.loading = true
	h.errMsg = ""
	mark := h.commitLocked()
	h.mu.Unlock()
	h.notify(mark)

	fetchCtx := context.WithoutCancel(ctx)
	ch := h.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return h.fetch(fetchCtx, gen)
	})
	select {
	case res := <-ch:
		committed, ok := res.Val.(Snapshot)
		if !ok {
			return h.Snapshot(), res.Err
		}
		return h.settle(mark, committed), res.Err
	case <-ctx.Done():
		return h.Snapshot(), ctx.Err()
	}
}

// settle clears a loading mark set after the shared request had already committed.
// Without it the joiner would leave the holder loading until the next load.
func (h *Holder) settle(mark, committed Snapshot) Snapshot {
	h.mu.Lock()
	if h.seq != mark.Seq {
		h.mu.Unlock()
		return committed
	}
	h.loading = false
	h.errMsg = committed.Err
	snap := h.commitLocked()
	h.mu.Unlock()
	h.notify(snap)
	return snap
}

// fetch commits the result of one request unless its generation was invalidated.
func (h *Holder) fetch(ctx context.Context, gen uint64) (any, error) {
	products, err := h.lister.ListProducts(ctx)

	h.mu.Lock()
	if h.generation != gen {
		h.mu.Unlock()
		h.logger.DebugContext(ctx, "Discarding superseded catalog load", "generation", gen)
		return nil, catalogerrors.ErrLoadSuperseded
	}
	h.loading = false
	if err != nil {
		h.errMsg = LoadErrorMessage
		snap := h.commitLocked()
		h.mu.Unlock()
		h.logger.ErrorContext(ctx, "Error loading products", "error", err)
		h.notify(snap)
		return snap, fmt.Errorf("failed to load products: %w", err)
	}
	h.products = products
	h.loadedAt = h.now()
	snap := h.commitLocked()
	h.mu.Unlock()
	h.logger.DebugContext(ctx, "Catalog loaded", "count", len(products), "generation", gen)
	h.notify(snap)
	return snap, nil
}

// Invalidate marks the current snapshot stale after a mutation.
// Loads still in flight are discarded when they complete.
func (h *Holder) Invalidate() {
	h.mu.Lock()
	h.generation++
	h.loading = false
	snap := h.commitLocked()
	h.mu.Unlock()
	h.notify(snap)
}

// Subscribe registers fn to be called with every new snapshot.
// Calls are not serialized; fn should ignore snapshots older than the last Seq it saw.
// The returned function removes the subscription.
func (h *Holder) Subscribe(fn func(Snapshot)) (cancel func()) {
	h.subsMu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.subsMu.Unlock()
	return func() {
		h.subsMu.Lock()
		delete(h.subs, id)
		h.subsMu.Unlock()
	}
}

func (h *Holder) notify(snap Snapshot) {
	h.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.subsMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
