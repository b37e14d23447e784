package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawmart/storefront/internal/auth"
	"github.com/pawmart/storefront/internal/cart"
	"github.com/pawmart/storefront/internal/payment"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrFlowFinished    = errors.New("checkout already finished")
	ErrNoActiveFlow    = errors.New("no active checkout")
	ErrUnknownPayment  = errors.New("callback does not match a pending checkout")
	ErrAddressRequired = errors.New("address stage not complete")
)

// PaymentGateway is the provider-side half of the three-phase flow.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error)
	VerifyPayment(ctx context.Context, cb payment.Callback) error
}

// Notifier sends the best-effort order confirmation. Implementations must
// never fail the placement.
type Notifier interface {
	OrderConfirmation(ctx context.Context, to, orderRef string, total decimal.Decimal)
}

// Service owns the active checkout flows and the reconciliation sweep for
// payments that were captured but never finalized into a domain order.
type Service struct {
	agg       *cart.Aggregator
	orders    *OrdersClient
	addresses *AddressClient
	payments  PaymentGateway
	journal   Journal
	notify    Notifier
	log       *slog.Logger
	currency  string

	mu      sync.Mutex
	byUser  map[string]*Flow
	byOrder map[string]*Flow
}

func NewService(agg *cart.Aggregator, orders *OrdersClient, addresses *AddressClient,
	payments PaymentGateway, journal Journal, notify Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		agg:       agg,
		orders:    orders,
		addresses: addresses,
		payments:  payments,
		journal:   journal,
		notify:    notify,
		log:       log,
		currency:  "INR",
		byUser:    make(map[string]*Flow),
		byOrder:   make(map[string]*Flow),
	}
}

// Begin starts (or restarts) a checkout for the identity: the cart is
// re-aggregated and any saved address prefilled. An empty cart cannot enter
// the wizard.
func (s *Service) Begin(ctx context.Context, id auth.Identity) (*Flow, error) {
	view, err := s.agg.Load(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if len(view.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	f := &Flow{
		svc:      s,
		identity: id,
		stage:    StageAddress,
		view:     view,
	}
	if s.addresses != nil {
		if a, err := s.addresses.Get(ctx, id.UserID); err == nil {
			f.address = a
		} else if !errors.Is(err, ErrNoAddress) {
			s.log.Warn("address prefill failed", "userId", id.UserID, "error", err)
		}
	}

	s.mu.Lock()
	s.byUser[id.UserID] = f
	s.mu.Unlock()
	return f, nil
}

func (s *Service) FlowFor(userID string) (*Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byUser[userID]
	return f, ok
}

// Complete routes a hosted-checkout success callback to its pending flow.
func (s *Service) Complete(ctx context.Context, cb payment.Callback) error {
	s.mu.Lock()
	f, ok := s.byOrder[cb.OrderID]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownPayment
	}
	return f.Complete(ctx, cb)
}

// Reconcile retries domain-order finalization for every journal entry whose
// payment verified but whose order never got recorded. The journal's
// verified->finalized transition keys on the provider order handle, so a
// retry that loses the race is a no-op.
func (s *Service) Reconcile(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}
	entries, err := s.journal.Verified(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		raw, err := s.orders.Place(ctx, e.UserID)
		if err != nil {
			s.log.Warn("order finalization retry failed",
				"providerOrderId", e.ProviderOrderID, "userId", e.UserID, "error", err)
			continue
		}
		if err := s.journal.MarkFinalized(ctx, e.ProviderOrderID, string(raw)); err != nil {
			if !errors.Is(err, ErrEntryNotFound) {
				s.log.Warn("journal finalize failed", "providerOrderId", e.ProviderOrderID, "error", err)
			}
			continue
		}
		s.log.Info("reconciled captured payment", "providerOrderId", e.ProviderOrderID)
		if s.notify != nil && e.Email != "" {
			if amt, err := decimal.NewFromString(e.Amount); err == nil {
				s.notify.OrderConfirmation(ctx, e.Email, e.ProviderOrderID, amt)
			}
		}
	}
	return nil
}

// RunReconciler sweeps on an interval until the context ends.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Reconcile(ctx); err != nil {
				s.log.Warn("reconcile sweep failed", "error", err)
			}
		}
	}
}

// Flow is one user's trip through the wizard:
//
//	Address --next--> Summary --next--> Payment --next--> Submitting
//	Submitting --callback--> Placed | Failed
type Flow struct {
	mu       sync.Mutex
	svc      *Service
	identity auth.Identity
	stage    Stage
	view     *cart.View
	address  *UserAddress

	providerOrderID string
	orderRef        string
	failure         error
}

func (f *Flow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

func (f *Flow) View() *cart.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Total recomputes from the freshly fetched details, never from the stored
// line snapshots.
func (f *Flow) Total() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Total(f.view.Lines)
}

// ProviderOrderID is the handle the hosted checkout widget must be opened
// with; empty until the flow reaches Submitting.
func (f *Flow) ProviderOrderID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.providerOrderID
}

// OrderRef is the finalized domain order, opaque JSON from the commerce API.
func (f *Flow) OrderRef() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderRef
}

// SetAddress stores and persists the shipping address. Only valid while the
// wizard is on the address stage.
func (f *Flow) SetAddress(ctx context.Context, a UserAddress) error {
	f.mu.Lock()
	if f.stage != StageAddress {
		f.mu.Unlock()
		return fmt.Errorf("set address at stage %s: %w", f.stage, ErrFlowFinished)
	}
	a.UserID = f.identity.UserID
	f.address = &a
	f.mu.Unlock()

	if f.svc.addresses != nil {
		if _, err := f.svc.addresses.Save(ctx, a); err != nil {
			f.svc.log.Warn("address save failed", "userId", f.identity.UserID, "error", err)
		}
	}
	return nil
}

// Next advances the wizard one stage. The third Next from the address stage
// is the submit: it creates the provider-side payment order exactly once and
// parks the flow in Submitting until the checkout callback arrives.
func (f *Flow) Next(ctx context.Context) (Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.stage {
	case StageAddress:
		f.stage = StageSummary
	case StageSummary:
		f.stage = StagePayment
	case StagePayment:
		if err := f.submitLocked(ctx); err != nil {
			return f.stage, err
		}
	default:
		return f.stage, ErrFlowFinished
	}
	return f.stage, nil
}

func (f *Flow) submitLocked(ctx context.Context) error {
	total := Total(f.view.Lines)
	minor := total.Mul(decimal.NewFromInt(100)).IntPart()

	po, err := f.svc.payments.CreateOrder(ctx, payment.OrderRequest{
		Amount:      minor,
		Currency:    f.svc.currency,
		Description: fmt.Sprintf("cart %d", f.view.Cart.CartID),
		CustomerID:  f.identity.UserID,
		Receipt:     uuid.NewString(),
	})
	if err != nil {
		return err
	}

	if f.svc.journal != nil {
		entry := &Entry{
			ProviderOrderID: po.ID,
			UserID:          f.identity.UserID,
			Email:           f.identity.Email,
			Amount:          total.StringFixed(2),
			Currency:        f.svc.currency,
		}
		if err := f.svc.journal.Create(ctx, entry); err != nil {
			f.svc.log.Warn("journal create failed", "providerOrderId", po.ID, "error", err)
		}
	}

	f.providerOrderID = po.ID
	f.stage = StageSubmitting

	f.svc.mu.Lock()
	f.svc.byOrder[po.ID] = f
	f.svc.mu.Unlock()
	return nil
}

// Complete runs phases two and three: verify the captured payment, then
// finalize the domain order. A verified payment whose finalization fails
// stays in the journal for the reconciler; the flow itself reports Failed.
func (f *Flow) Complete(ctx context.Context, cb payment.Callback) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stage != StageSubmitting || cb.OrderID != f.providerOrderID {
		return ErrUnknownPayment
	}

	if err := f.svc.payments.VerifyPayment(ctx, cb); err != nil {
		f.failLocked(fmt.Errorf("verify: %w", err))
		if f.svc.journal != nil {
			if jerr := f.svc.journal.MarkFailed(ctx, cb.OrderID, err.Error()); jerr != nil {
				f.svc.log.Warn("journal fail-mark failed", "providerOrderId", cb.OrderID, "error", jerr)
			}
		}
		return f.failure
	}
	if f.svc.journal != nil {
		if err := f.svc.journal.MarkVerified(ctx, cb.OrderID, cb.PaymentID); err != nil {
			f.svc.log.Warn("journal verify-mark failed", "providerOrderId", cb.OrderID, "error", err)
		}
	}

	raw, err := f.svc.orders.Place(ctx, f.identity.UserID)
	if err != nil {
		// Payment is captured and verified; the reconciler picks this up.
		f.failLocked(fmt.Errorf("finalize: %w", err))
		return f.failure
	}

	if f.svc.journal != nil {
		if err := f.svc.journal.MarkFinalized(ctx, cb.OrderID, string(raw)); err != nil && !errors.Is(err, ErrEntryNotFound) {
			f.svc.log.Warn("journal finalize failed", "providerOrderId", cb.OrderID, "error", err)
		}
	}

	f.orderRef = string(raw)
	f.stage = StagePlaced
	f.svc.log.Info("order placed", "userId", f.identity.UserID, "providerOrderId", cb.OrderID)

	if f.svc.notify != nil && f.identity.Email != "" {
		f.svc.notify.OrderConfirmation(ctx, f.identity.Email, cb.OrderID, Total(f.view.Lines))
	}

	f.svc.mu.Lock()
	delete(f.svc.byUser, f.identity.UserID)
	delete(f.svc.byOrder, cb.OrderID)
	f.svc.mu.Unlock()
	return nil
}

// failLocked parks the flow in its terminal failed stage and drops the
// provider-order routing entry; no further callbacks can reach this flow.
func (f *Flow) failLocked(err error) {
	f.failure = err
	f.stage = StageFailed
	f.svc.log.Error("checkout failed", "userId", f.identity.UserID, "error", err)
	if f.providerOrderID != "" {
		f.svc.mu.Lock()
		delete(f.svc.byOrder, f.providerOrderID)
		f.svc.mu.Unlock()
	}
}

// Err reports why the flow failed, nil otherwise.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure
}
