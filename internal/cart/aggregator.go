package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pawmart/storefront/internal/catalog"
)

// ErrSuperseded means a newer aggregation pass for the same cart started
// while this one was in flight; the stale result is discarded instead of
// racing the fresh one.
var ErrSuperseded = errors.New("cart view superseded")

// Aggregator produces the view the cart page renders: the cart's lines, each
// joined with independently fetched item details. One bad line never blocks
// the rest.
type Aggregator struct {
	carts *Client
	items *catalog.Client
	log   *slog.Logger
	limit int

	// One generation counter per user: passes only supersede passes over
	// the same cart, never another user's.
	gens sync.Map // userID -> *atomic.Uint64
}

func NewAggregator(carts *Client, items *catalog.Client, log *slog.Logger, maxConcurrent int) *Aggregator {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{carts: carts, items: items, log: log, limit: maxConcurrent}
}

func (a *Aggregator) genFor(userID string) *atomic.Uint64 {
	v, _ := a.gens.LoadOrStore(userID, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

// Load fetches the user's cart, creating an empty one on 404, and fans out a
// detail fetch per line. A failed detail fetch leaves that line's Details nil
// and is logged; the pass still succeeds. If another pass for the same user
// starts before this one finishes, this one returns ErrSuperseded.
func (a *Aggregator) Load(ctx context.Context, userID string) (*View, error) {
	g := a.genFor(userID)
	gen := g.Add(1)

	ct, err := a.carts.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		ct, err = a.carts.Create(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	lines := make([]Line, len(ct.Items))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.limit)
	for idx := range ct.Items {
		idx := idx
		lines[idx].Item = ct.Items[idx]
		eg.Go(func() error {
			details, err := a.items.Item(gctx, ct.Items[idx].ItemInventoryID)
			if err != nil {
				a.log.Warn("item detail fetch failed",
					"userId", userID,
					"itemInventoryId", ct.Items[idx].ItemInventoryID,
					"error", err)
				return nil
			}
			lines[idx].Details = details
			return nil
		})
	}
	_ = eg.Wait()

	if g.Load() != gen {
		return nil, ErrSuperseded
	}
	return &View{Cart: *ct, Lines: lines}, nil
}

// Remove deletes the line remotely and re-runs the full aggregation. The
// refreshed view comes from the service, never from patching local state.
func (a *Aggregator) Remove(ctx context.Context, userID string, cartItemID int64) (*View, error) {
	if err := a.carts.RemoveItem(ctx, userID, cartItemID); err != nil {
		return nil, err
	}
	return a.Load(ctx, userID)
}
