package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/plantshop-checkout/internal/cart"
	"github.com/example/plantshop-checkout/internal/coupon"
	"github.com/example/plantshop-checkout/internal/events"
	"github.com/example/plantshop-checkout/internal/pricing"
	"github.com/example/plantshop-checkout/internal/session"
)

var (
	ErrCannotProceed   = errors.New("cannot proceed")
	ErrSessionComplete = errors.New("checkout session already confirmed")
)

// Remote is the slice of the commerce API the orchestrator persists
// step data through.
type Remote interface {
	SaveShippingInfo(ctx context.Context, user session.Context, info ShippingInfo) error
	SavePayment(ctx context.Context, user session.Context, rec PaymentRecord) error
	PlaceOrder(ctx context.Context, user session.Context, info ShippingInfo) error
}

// Orchestrator drives checkout sessions through the linear step
// machine. Each successful transition persists the session, and steps
// with remote side effects persist upstream before transitioning, so a
// failed remote call leaves the session exactly where it was.
type Orchestrator struct {
	remote    Remote
	store     Store
	publisher events.Publisher
	now       func() time.Time
}

func NewOrchestrator(remote Remote, store Store, publisher events.Publisher) *Orchestrator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Orchestrator{
		remote:    remote,
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Begin creates a session at the order step with a snapshot of the
// user's cart.
func (o *Orchestrator) Begin(ctx context.Context, user session.Context, items []cart.LineItem) (*Session, error) {
	if !user.Valid() {
		return nil, cart.ErrAuthRequired
	}

	now := o.now()
	sess := &Session{
		ID:        uuid.NewString(),
		User:      user,
		Step:      StepOrder,
		Items:     append([]cart.LineItem(nil), items...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return sess, nil
}

// Get loads a session by id.
func (o *Orchestrator) Get(ctx context.Context, id string) (*Session, error) {
	return o.store.Get(ctx, id)
}

// ConfirmOrder advances Order -> Shipping. The guard re-reads the live
// cart rather than the snapshot so a cart emptied mid-step cannot slip
// through; on success the snapshot is refreshed from it.
func (o *Orchestrator) ConfirmOrder(ctx context.Context, sess *Session, liveItems []cart.LineItem) error {
	if err := o.requireStep(sess, StepOrder); err != nil {
		return err
	}
	if !sess.User.Valid() {
		return fmt.Errorf("%w: login required", ErrCannotProceed)
	}
	if len(liveItems) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrCannotProceed)
	}

	sess.Items = append([]cart.LineItem(nil), liveItems...)
	return o.advance(ctx, sess, StepShipping)
}

// SetCoupon records the applied coupon on the session. At most one
// coupon is in effect per session.
func (o *Orchestrator) SetCoupon(ctx context.Context, sess *Session, applied coupon.Applied) error {
	if sess.Step.IsTerminal() {
		return ErrSessionComplete
	}
	sess.Coupon = &applied
	return o.save(ctx, sess)
}

// ClearCoupon removes any applied coupon. Idempotent.
func (o *Orchestrator) ClearCoupon(ctx context.Context, sess *Session) error {
	if sess.Step.IsTerminal() {
		return ErrSessionComplete
	}
	sess.Coupon = nil
	return o.save(ctx, sess)
}

// SubmitShipping validates and persists the shipping form upstream,
// then advances Shipping -> Payment. On remote failure the session
// stays at Shipping and the server error is surfaced verbatim.
func (o *Orchestrator) SubmitShipping(ctx context.Context, sess *Session, info ShippingInfo) error {
	if err := o.requireStep(sess, StepShipping); err != nil {
		return err
	}
	if err := info.Validate(); err != nil {
		return err
	}

	if err := o.remote.SaveShippingInfo(ctx, sess.User, info); err != nil {
		return err
	}

	sess.Shipping = &info
	return o.advance(ctx, sess, StepPayment)
}

// SubmitPayment validates the payment record, persists it upstream as
// an audit entry, then advances Payment -> Review.
func (o *Orchestrator) SubmitPayment(ctx context.Context, sess *Session, rec PaymentRecord) error {
	if err := o.requireStep(sess, StepPayment); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	if err := o.remote.SavePayment(ctx, sess.User, rec); err != nil {
		return err
	}

	sess.Payment = &rec
	return o.advance(ctx, sess, StepReview)
}

// PlaceOrder submits the order and advances Review -> Confirmed. The
// backend clears the cart; the gateway does not clear it independently.
func (o *Orchestrator) PlaceOrder(ctx context.Context, sess *Session, agree bool) error {
	if err := o.requireStep(sess, StepReview); err != nil {
		return err
	}
	if !agree {
		return fmt.Errorf("%w: terms must be accepted", ErrCannotProceed)
	}
	if sess.Shipping == nil {
		return fmt.Errorf("%w: shipping information missing", ErrCannotProceed)
	}

	if err := o.remote.PlaceOrder(ctx, sess.User, *sess.Shipping); err != nil {
		return err
	}

	if err := o.advance(ctx, sess, StepConfirmed); err != nil {
		return err
	}

	event := events.CheckoutCompleted{
		SessionID:   sess.ID,
		UserID:      sess.User.UserID,
		Email:       sess.User.Email,
		OrderTotal:  o.Summary(sess).Total,
		CompletedAt: o.now(),
	}
	if sess.Coupon != nil {
		event.CouponCode = sess.Coupon.Coupon.Code
	}
	if err := o.publisher.Publish(ctx, sess.ID, event); err != nil {
		log.Printf("[Checkout] Failed to publish completion event for session %s: %v", sess.ID, err)
	}
	return nil
}

// Back moves exactly one step backward, preserving everything entered
// so far. Allowed from Shipping, Payment and Review.
func (o *Orchestrator) Back(ctx context.Context, sess *Session) error {
	switch sess.Step {
	case StepShipping, StepPayment, StepReview:
		return o.advance(ctx, sess, sess.Step-1)
	case StepConfirmed:
		return ErrSessionComplete
	default:
		return fmt.Errorf("%w: nothing before the %s step", ErrCannotProceed, sess.Step)
	}
}

// Abandon tears the session down. This is the explicit reset that
// replaces the source UI's reload-on-logout.
func (o *Orchestrator) Abandon(ctx context.Context, sess *Session) error {
	if err := o.store.Delete(ctx, sess.ID); err != nil {
		return err
	}
	if !sess.Step.IsTerminal() {
		event := events.CheckoutAbandoned{
			SessionID:   sess.ID,
			UserID:      sess.User.UserID,
			Step:        sess.Step.String(),
			AbandonedAt: o.now(),
		}
		if err := o.publisher.Publish(ctx, sess.ID, event); err != nil {
			log.Printf("[Checkout] Failed to publish abandon event for session %s: %v", sess.ID, err)
		}
	}
	return nil
}

// Summary projects the displayed totals for the session's current
// state. Every step shows this same projection.
func (o *Orchestrator) Summary(sess *Session) pricing.Summary {
	fee := pricing.ShippingFee(string(sess.ShippingFeeOption()))
	return pricing.Project(sess.Items, fee, sess.Discount())
}

func (o *Orchestrator) requireStep(sess *Session, step Step) error {
	if sess.Step == step {
		return nil
	}
	if sess.Step.IsTerminal() {
		return ErrSessionComplete
	}
	return fmt.Errorf("%w: at %s, expected %s", ErrCannotProceed, sess.Step, step)
}

func (o *Orchestrator) advance(ctx context.Context, sess *Session, target Step) error {
	if !sess.Step.CanTransition(target) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrCannotProceed, sess.Step, target)
	}
	sess.Step = target
	return o.save(ctx, sess)
}

func (o *Orchestrator) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = o.now()
	if err := o.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
