package rsvp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/frontendmu/frontend.mu/pkg/ability"
	"github.com/frontendmu/frontend.mu/pkg/audit"
	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/events"
	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// Authorizer decides abilities. *ability.Gate implements it.
type Authorizer interface {
	Authorize(ctx context.Context, p *auth.Principal, res ability.Resource, ab ability.Ability, resource any) (ability.Decision, error)
}

// Service runs RSVP transitions. Authorization is checked before the
// transaction opens; the resolver reads through the pool, not the
// transaction.
type Service struct {
	store    *Store
	authz    Authorizer
	notifier Notifier
	metrics  *observability.Metrics
	logger   *observability.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the promotion notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records transitions in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *observability.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the clock used for RSVP timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the RSVP service
func NewService(store *Store, authz Authorizer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		authz:  authz,
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger)
	}
	s.logger = s.logger.WithComponent("rsvp")
	return s
}

// Create RSVPs the principal to an event. A new RSVP is confirmed, or
// waitlisted when the event's confirmed count has reached its seat limit. A
// previously cancelled RSVP is reactivated under the same rule. An active
// RSVP fails with ErrConflict carrying the existing row.
func (s *Service) Create(ctx context.Context, p *auth.Principal, eventID uuid.UUID, notes string) (t *Transition, err error) {
	ctx, span := observability.StartSpan(ctx, "rsvp.create", attribute.String("event_id", eventID.String()))
	defer func() { observability.EndSpan(span, err) }()
	defer func() { s.record("create", t, err) }()

	if p.IsAnonymous() {
		return nil, denied(ability.Deny(ability.ReasonUnauthenticated))
	}
	if len(notes) > 1000 {
		return nil, &Error{Kind: ErrValidation, Detail: "notes exceed 1000 characters"}
	}

	event, err := s.store.events.Get(ctx, eventID)
	if err != nil {
		return nil, eventError(err, eventID)
	}
	if err := s.authorize(ctx, p, ability.Create, event); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.store.WithTx(ctx, func(tx *Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return eventError(err, eventID)
		}

		existing, err := tx.FindForUserEvent(ctx, p.ID, eventID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Active() {
			return conflict(existing)
		}

		status, err := admit(ctx, tx, event)
		if err != nil {
			return err
		}

		if existing != nil {
			if notes != "" {
				existing.Notes = notes
			}
			if err := tx.SetStatus(ctx, existing, status, now); err != nil {
				return err
			}
			t = &Transition{RSVP: existing, Previous: StatusCancelled, Reactivated: true}
			return nil
		}

		r := &RSVP{UserID: p.ID, EventID: eventID, Status: status, Notes: notes}
		if err := tx.Insert(ctx, r, now); err != nil {
			return err
		}
		t = &Transition{RSVP: r}
		return nil
	})
	if errors.Is(err, errDuplicate) {
		// Lost an insert race the row lock could not prevent (no row locks).
		existing, ferr := s.store.FindForUserEvent(ctx, p.ID, eventID)
		if ferr != nil || existing == nil {
			return nil, asError(err)
		}
		return nil, conflict(existing)
	}
	if err != nil {
		return nil, asError(err)
	}

	eventType := audit.EventTypeRSVPCreate
	if t.Reactivated {
		eventType = audit.EventTypeRSVPReactivate
	}
	s.audit(ctx, eventType, p, t.RSVP, t.Previous, t.RSVP.Status)
	s.logger.WithFields(map[string]interface{}{
		"rsvp_id":  t.RSVP.ID.String(),
		"event_id": eventID.String(),
		"status":   string(t.RSVP.Status),
	}).Info("RSVP created")
	return t, nil
}

// Cancel cancels the principal's own RSVP. When the RSVP was confirmed and
// the event has a seat limit, the oldest waitlisted RSVP is promoted to
// confirmed and returned in Transition.Promoted. At most one RSVP is
// promoted per cancellation, and none while the confirmed count is still at
// or above the limit.
func (s *Service) Cancel(ctx context.Context, p *auth.Principal, rsvpID uuid.UUID) (t *Transition, err error) {
	ctx, span := observability.StartSpan(ctx, "rsvp.cancel", attribute.String("rsvp_id", rsvpID.String()))
	defer func() { observability.EndSpan(span, err) }()
	defer func() { s.record("cancel", t, err) }()

	if p.IsAnonymous() {
		return nil, denied(ability.Deny(ability.ReasonUnauthenticated))
	}

	r, err := s.store.Get(ctx, rsvpID)
	if err != nil {
		return nil, asError(err)
	}
	return s.cancel(ctx, p, r)
}

// CancelForEvent cancels the principal's RSVP for an event.
func (s *Service) CancelForEvent(ctx context.Context, p *auth.Principal, eventID uuid.UUID) (t *Transition, err error) {
	defer func() { s.record("cancel", t, err) }()

	if p.IsAnonymous() {
		return nil, denied(ability.Deny(ability.ReasonUnauthenticated))
	}

	r, err := s.store.FindForUserEvent(ctx, p.ID, eventID)
	if err != nil {
		return nil, asError(err)
	}
	if r == nil {
		return nil, notFound("no rsvp for event %s", eventID)
	}
	return s.cancel(ctx, p, r)
}

func (s *Service) cancel(ctx context.Context, p *auth.Principal, r *RSVP) (*Transition, error) {
	if err := s.authorize(ctx, p, ability.Cancel, r); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var (
		t     *Transition
		event *events.Event
	)
	err := s.store.WithTx(ctx, func(tx *Tx) error {
		var err error
		event, err = tx.LockEvent(ctx, r.EventID)
		if err != nil {
			return eventError(err, r.EventID)
		}

		current, err := tx.Get(ctx, r.ID)
		if err != nil {
			return err
		}
		if !current.Active() {
			return conflict(current)
		}

		previous := current.Status
		if err := tx.SetStatus(ctx, current, StatusCancelled, now); err != nil {
			return err
		}
		t = &Transition{RSVP: current, Previous: previous}

		if !event.HasSeatLimit() {
			return nil
		}
		t.Promoted, err = promoteNext(ctx, tx, event.ID, now)
		return err
	})
	if err != nil {
		return nil, asError(err)
	}

	s.audit(ctx, audit.EventTypeRSVPCancel, p, t.RSVP, t.Previous, StatusCancelled)
	if t.Promoted != nil {
		s.promoted(ctx, event, t.Promoted)
	}
	s.logger.WithFields(map[string]interface{}{
		"rsvp_id":  t.RSVP.ID.String(),
		"event_id": t.RSVP.EventID.String(),
		"promoted": t.Promoted != nil,
	}).Info("RSVP cancelled")
	return t, nil
}

// Status reports whether the principal holds an active RSVP for the event.
// Anonymous principals never do.
func (s *Service) Status(ctx context.Context, p *auth.Principal, eventID uuid.UUID) (*StatusResult, error) {
	if p.IsAnonymous() {
		return &StatusResult{}, nil
	}

	r, err := s.store.FindActive(ctx, p.ID, eventID)
	if err != nil {
		return nil, asError(err)
	}
	return &StatusResult{HasRSVP: r != nil, RSVP: r}, nil
}

// Reconcile fills free seats of an event from its waitlist, oldest first.
// Seats free up outside Cancel when an organizer raises the limit or
// removes it; without a limit every waitlisted RSVP is confirmed.
func (s *Service) Reconcile(ctx context.Context, eventID uuid.UUID) (promoted []*RSVP, err error) {
	ctx, span := observability.StartSpan(ctx, "rsvp.reconcile", attribute.String("event_id", eventID.String()))
	defer func() { observability.EndSpan(span, err) }()
	if s.metrics != nil {
		start := time.Now()
		defer func() { s.metrics.RSVPReconcileDuration.Observe(time.Since(start).Seconds()) }()
	}

	now := s.now().UTC()
	var event *events.Event
	err = s.store.WithTx(ctx, func(tx *Tx) error {
		var err error
		event, err = tx.LockEvent(ctx, eventID)
		if err != nil {
			return eventError(err, eventID)
		}

		promoted, err = fill(ctx, tx, event, now)
		return err
	})
	if err != nil {
		return nil, asError(err)
	}

	for _, r := range promoted {
		s.promoted(ctx, event, r)
	}
	if len(promoted) > 0 {
		s.logger.WithField("event_id", eventID.String()).Infof("Promoted %d waitlisted RSVPs", len(promoted))
	}
	return promoted, nil
}

// ReconcileUpcoming reconciles every seat-limited published event dated
// between from and until. It keeps going past failing events and returns
// the number of promotions together with the joined errors.
func (s *Service) ReconcileUpcoming(ctx context.Context, from, until time.Time) (int, error) {
	list, err := s.store.events.ListUpcomingWithSeatLimit(ctx, from, until)
	if err != nil {
		return 0, asError(err)
	}

	total := 0
	var errs []error
	for _, e := range list {
		promoted, err := s.Reconcile(ctx, e.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", e.ID, err))
			continue
		}
		total += len(promoted)
	}
	return total, errors.Join(errs...)
}

func (s *Service) authorize(ctx context.Context, p *auth.Principal, ab ability.Ability, resource any) error {
	decision, err := s.authz.Authorize(ctx, p, ability.ResourceRSVP, ab, resource)
	if err != nil {
		return unavailable(err)
	}
	if !decision.Allowed {
		return denied(decision)
	}
	return nil
}

// admit decides the status of an RSVP entering the event.
func admit(ctx context.Context, tx *Tx, event *events.Event) (Status, error) {
	if !event.HasSeatLimit() {
		return StatusConfirmed, nil
	}
	confirmed, err := tx.CountConfirmed(ctx, event.ID)
	if err != nil {
		return "", err
	}
	if confirmed >= event.Seats() {
		return StatusWaitlist, nil
	}
	return StatusConfirmed, nil
}

// promoteNext confirms the oldest waitlisted RSVP of the event, if any. Every
// cancellation on a seat-limited event admits exactly one, whatever the
// cancelled RSVP's status and the current confirmed count.
func promoteNext(ctx context.Context, tx *Tx, eventID uuid.UUID, now time.Time) (*RSVP, error) {
	waitlist, err := tx.OldestWaitlisted(ctx, eventID, 1)
	if err != nil || len(waitlist) == 0 {
		return nil, err
	}
	r := waitlist[0]
	if err := tx.SetStatus(ctx, r, StatusConfirmed, now); err != nil {
		return nil, err
	}
	return r, nil
}

// fill confirms the oldest waitlisted RSVPs up to the free seats, or all of
// them without a seat limit.
func fill(ctx context.Context, tx *Tx, event *events.Event, now time.Time) ([]*RSVP, error) {
	limit := 0
	if event.HasSeatLimit() {
		confirmed, err := tx.CountConfirmed(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		limit = event.Seats() - confirmed
		if limit <= 0 {
			return nil, nil
		}
	}

	waitlist, err := tx.OldestWaitlisted(ctx, event.ID, limit)
	if err != nil {
		return nil, err
	}
	for _, r := range waitlist {
		if err := tx.SetStatus(ctx, r, StatusConfirmed, now); err != nil {
			return nil, err
		}
	}
	return waitlist, nil
}

func (s *Service) promoted(ctx context.Context, event *events.Event, r *RSVP) {
	s.metrics.Promotion()
	s.audit(ctx, audit.EventTypeRSVPPromote, nil, r, StatusWaitlist, StatusConfirmed)

	err := s.notifier.NotifyPromotion(ctx, Promotion{
		RSVPID:     r.ID,
		UserID:     r.UserID,
		EventID:    r.EventID,
		EventTitle: event.Title,
		PromotedAt: r.UpdatedAt,
	})
	if err != nil {
		s.logger.WithError(err).WithField("rsvp_id", r.ID.String()).Warn("Failed to send promotion notification")
	}
}

func (s *Service) audit(ctx context.Context, eventType audit.EventType, actor *auth.Principal, r *RSVP, from, to Status) {
	var actorID *uuid.UUID
	if !actor.IsAnonymous() {
		id := actor.ID
		actorID = &id
	}

	changes := &audit.ChangeDetails{
		Before: map[string]interface{}{"status": string(from)},
		After:  map[string]interface{}{"status": string(to)},
	}
	if err := audit.FromContext(ctx).LogDataMutation(ctx, eventType, actorID, audit.ResourceTypeRSVP, r.ID.String(), changes,
		fmt.Sprintf("RSVP %s for event %s", to, r.EventID),
	); err != nil {
		s.logger.WithError(err).Warn("Failed to write audit event")
	}
}

// record counts the outcome of an operation.
func (s *Service) record(operation string, t *Transition, err error) {
	if s.metrics == nil {
		return
	}
	result := "error"
	var rerr *Error
	switch {
	case err == nil && t != nil && t.Reactivated:
		result = "reactivated"
	case err == nil && t != nil:
		result = string(t.RSVP.Status)
	case errors.As(err, &rerr):
		result = kindLabel(rerr.Kind)
	}
	s.metrics.Transition(operation, result)
}

func kindLabel(kind error) string {
	switch kind {
	case ErrNotAuthorized:
		return "not_authorized"
	case ErrNotFound:
		return "not_found"
	case ErrConflict:
		return "conflict"
	case ErrValidation:
		return "validation"
	default:
		return "store_unavailable"
	}
}

func eventError(err error, eventID uuid.UUID) error {
	if errors.Is(err, events.ErrNotFound) {
		return notFound("event %s", eventID)
	}
	return err
}
