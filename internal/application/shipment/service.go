// Package shipment implements container and booking tracking: provider
// subscriptions and ingestion of provider webhooks.
package shipment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freightport/backend/internal/application/common"
	"github.com/freightport/backend/internal/domain/order"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/domain/shipment"
	"github.com/freightport/backend/internal/infrastructure/telemetry"
	"github.com/freightport/backend/internal/infrastructure/tracking"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DeliveryTTL is how long webhook delivery ids are remembered
const DeliveryTTL = 72 * time.Hour

// Tracker is the tracking provider
type Tracker interface {
	Subscribe(ctx context.Context, ref shipment.Reference) (string, error)
	Unsubscribe(ctx context.Context, subscriptionID string) error
	VerifySignature(body []byte, signature string) bool
	ParseWebhook(body []byte) (*tracking.Webhook, error)
}

// Metrics counts webhook deliveries and ingested events
type Metrics interface {
	TrackingWebhook(result string)
	TrackingEventsIngested(n int)
}

// Service handles shipment tracking
type Service struct {
	repo       shipment.Repository
	orders     order.Repository
	tracker    Tracker
	deliveries shared.IdempotencyStore
	metrics    Metrics
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// NewService creates a shipment service. A nil tracker disables
// subscriptions and webhook ingestion.
func NewService(
	repo shipment.Repository,
	orders order.Repository,
	tracker Tracker,
	deliveries shared.IdempotencyStore,
	metrics Metrics,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		orders:     orders,
		tracker:    tracker,
		deliveries: deliveries,
		metrics:    metrics,
		publisher:  publisher,
		logger:     logger,
	}
}

var (
	errTrackingDisabled = shared.NewDomainError("SERVICE_UNAVAILABLE", "Tracking is not enabled")
	errBadSignature     = shared.NewDomainError("UNAUTHORIZED", "Invalid webhook signature")
)

// Create registers a shipment. The reference must be unique per company.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateShipmentInput) (*ShipmentDTO, error) {
	companyID, err := s.resolveCompany(ctx, actor, input.OrderID, input.CompanyID)
	if err != nil {
		return nil, err
	}
	ref := input.reference()
	if err := s.ensureReferenceFree(ctx, companyID, ref); err != nil {
		return nil, err
	}

	sh, err := shipment.NewShipment(companyID, actor.UserID, input.OrderID, ref)
	if err != nil {
		return nil, err
	}
	if input.hasRoute() {
		sh.SetRoute(input.Vessel, input.Voyage, input.PortOfLoading, input.PortOfDischarge, input.ETD, input.ETA)
	}
	if err := s.repo.Save(ctx, sh); err != nil {
		return nil, err
	}

	s.logger.Info("Shipment created",
		zap.String("shipment_id", sh.ID.String()),
		zap.String("tracking_number", sh.Number),
		zap.String("company_id", companyID.String()))

	dto := ToShipmentDTO(sh)
	return &dto, nil
}

// resolveCompany picks the owning company: the order's when one is given,
// else the named company for staff or the caller's own for customers.
func (s *Service) resolveCompany(ctx context.Context, actor shared.Actor, orderID, companyID *uuid.UUID) (uuid.UUID, error) {
	if orderID != nil {
		o, err := s.orders.FindByID(ctx, *orderID)
		if err != nil {
			return uuid.Nil, err
		}
		if err := actor.RequireCompanyAccess(o.CompanyID); err != nil {
			return uuid.Nil, err
		}
		if !o.IsTrackable() {
			return uuid.Nil, shared.NewDomainErrorf("INVALID_STATE", "Order in %s status cannot be tracked", o.Status)
		}
		return o.CompanyID, nil
	}
	if actor.IsStaff() {
		if companyID == nil || *companyID == uuid.Nil {
			return uuid.Nil, shared.NewDomainError("INVALID_COMPANY", "Company or order is required")
		}
		return *companyID, nil
	}
	if actor.CompanyID == nil {
		return uuid.Nil, shared.ErrForbidden
	}
	if companyID != nil && *companyID != *actor.CompanyID {
		return uuid.Nil, shared.ErrForbidden
	}
	return *actor.CompanyID, nil
}

func (s *Service) ensureReferenceFree(ctx context.Context, companyID uuid.UUID, ref shipment.Reference) error {
	_, err := s.repo.FindByReference(ctx, companyID, ref)
	switch {
	case err == nil:
		return shared.NewDomainError("ALREADY_EXISTS", "Shipment with this tracking number already exists")
	case shared.IsNotFound(err):
		return nil
	default:
		return err
	}
}

// Subscribe finds or creates the shipment for the reference and subscribes it
// with the provider. A provider failure leaves the shipment unsubscribed.
func (s *Service) Subscribe(ctx context.Context, actor shared.Actor, input SubscribeInput) (*ShipmentDTO, error) {
	if s.tracker == nil {
		return nil, errTrackingDisabled
	}
	companyID, err := s.resolveCompany(ctx, actor, input.OrderID, input.CompanyID)
	if err != nil {
		return nil, err
	}
	ref := shipment.Reference{
		Type:    shipment.TrackingType(input.TrackingType),
		Number:  input.TrackingNumber,
		Carrier: input.Carrier,
	}.Normalize()

	sh, err := s.repo.FindByReference(ctx, companyID, ref)
	switch {
	case err == nil:
		if err := sh.EnsureSubscribable(); err != nil {
			return nil, err
		}
	case shared.IsNotFound(err):
		sh, err = shipment.NewShipment(companyID, actor.UserID, input.OrderID, ref)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Save(ctx, sh); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	subscriptionID, err := s.tracker.Subscribe(ctx, sh.Reference)
	if err != nil {
		s.logger.Warn("Tracking subscribe failed",
			zap.String("shipment_id", sh.ID.String()),
			zap.String("tracking_number", sh.Number),
			zap.Error(err))
		return nil, upstream(err)
	}
	if err := sh.Subscribe(subscriptionID); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, sh); err != nil {
		return nil, err
	}

	s.logger.Info("Shipment subscribed",
		zap.String("shipment_id", sh.ID.String()),
		zap.String("subscription_id", subscriptionID))

	dto := ToShipmentDTO(sh)
	return &dto, nil
}

// Unsubscribe cancels the provider subscription of a shipment
func (s *Service) Unsubscribe(ctx context.Context, actor shared.Actor, id uuid.UUID) (*ShipmentDTO, error) {
	if s.tracker == nil {
		return nil, errTrackingDisabled
	}
	sh, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !sh.Subscribed {
		return nil, shared.NewDomainError("NOT_SUBSCRIBED", "Shipment is not subscribed for tracking")
	}
	subscriptionID := sh.SubscriptionID
	if err := s.tracker.Unsubscribe(ctx, subscriptionID); err != nil {
		s.logger.Warn("Tracking unsubscribe failed",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, upstream(err)
	}
	if err := sh.Unsubscribe(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, sh); err != nil {
		return nil, err
	}

	s.logger.Info("Shipment unsubscribed",
		zap.String("shipment_id", sh.ID.String()),
		zap.String("subscription_id", subscriptionID))

	dto := ToShipmentDTO(sh)
	return &dto, nil
}

func upstream(err error) error {
	if errors.Is(err, shared.ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
}

// IngestEvents processes a signed provider webhook. Deliveries already seen
// by id are acknowledged without being applied again.
func (s *Service) IngestEvents(ctx context.Context, body []byte, signature, deliveryID string) (_ *IngestResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "tracking.webhook", attribute.String("tracking.delivery_id", deliveryID))
	defer func() { telemetry.EndSpan(span, err) }()

	if s.tracker == nil {
		return nil, errTrackingDisabled
	}
	if !s.tracker.VerifySignature(body, signature) {
		s.countWebhook(telemetry.ResultRejected)
		return nil, errBadSignature
	}

	key := "tracking:" + deliveryID
	if deliveryID != "" && s.deliveries != nil {
		seen, err := s.deliveries.IsProcessed(ctx, key)
		if err != nil {
			s.logger.Warn("Webhook dedupe lookup failed", zap.String("event_id", deliveryID), zap.Error(err))
		} else if seen {
			s.countWebhook(telemetry.ResultDuplicate)
			return &IngestResult{Duplicate: true}, nil
		}
	}

	hook, err := s.tracker.ParseWebhook(body)
	if err != nil {
		s.countWebhook(telemetry.ResultError)
		return nil, err
	}
	targets, err := s.webhookTargets(ctx, hook)
	if err != nil {
		s.countWebhook(telemetry.ResultError)
		return nil, err
	}

	result := &IngestResult{}
	for _, sh := range targets {
		saved, added, err := s.applyWebhook(ctx, sh, hook)
		if err != nil {
			s.countWebhook(telemetry.ResultError)
			return nil, err
		}
		if len(added) == 0 && hook.ETA == nil {
			continue
		}
		result.Shipments++
		result.EventsAdded += len(added)
		common.PublishEvents(ctx, s.publisher, s.logger, saved)
	}

	if deliveryID != "" && s.deliveries != nil {
		if _, err := s.deliveries.MarkProcessed(ctx, key, DeliveryTTL); err != nil {
			s.logger.Warn("Webhook dedupe record failed", zap.String("event_id", deliveryID), zap.Error(err))
		}
	}
	if len(targets) == 0 {
		s.logger.Warn("Webhook matched no shipment",
			zap.String("subscription_id", hook.SubscriptionID),
			zap.String("tracking_number", hook.Reference.Number))
	}
	span.SetAttributes(
		attribute.Int("tracking.shipments", result.Shipments),
		attribute.Int("tracking.events_added", result.EventsAdded),
	)
	s.countWebhook(telemetry.ResultSuccess)
	if s.metrics != nil {
		s.metrics.TrackingEventsIngested(result.EventsAdded)
	}
	s.logger.Info("Tracking webhook ingested",
		zap.String("event_id", deliveryID),
		zap.Int("shipments", result.Shipments),
		zap.Int("events_added", result.EventsAdded))
	return result, nil
}

// webhookTargets resolves the shipments a delivery applies to: the one holding
// the subscription, or every subscribed shipment with the tracking number.
// applyWebhook applies the hook's events and saves the shipment. A concurrent
// write is retried once against the reloaded shipment.
func (s *Service) applyWebhook(ctx context.Context, sh *shipment.Shipment, hook *tracking.Webhook) (*shipment.Shipment, []shipment.TrackingEvent, error) {
	for attempt := 0; ; attempt++ {
		added := sh.ApplyEvents(hook.Events, hook.ETA)
		if len(added) == 0 && hook.ETA == nil {
			return sh, nil, nil
		}
		err := s.repo.SaveWithLock(ctx, sh)
		if err == nil {
			return sh, added, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt > 0 {
			return nil, nil, err
		}
		s.logger.Info("Shipment changed during webhook, reloading", zap.String("shipment_id", sh.ID.String()))
		if sh, err = s.repo.FindByID(ctx, sh.ID); err != nil {
			return nil, nil, err
		}
	}
}

func (s *Service) webhookTargets(ctx context.Context, hook *tracking.Webhook) ([]*shipment.Shipment, error) {
	if hook.SubscriptionID != "" {
		sh, err := s.repo.FindBySubscriptionID(ctx, hook.SubscriptionID)
		if err == nil {
			return []*shipment.Shipment{sh}, nil
		}
		if !shared.IsNotFound(err) {
			return nil, err
		}
	}
	if hook.Reference.Number == "" {
		return nil, nil
	}
	found, err := s.repo.FindSubscribedByNumber(ctx, hook.Reference.Number)
	if err != nil {
		return nil, err
	}
	targets := make([]*shipment.Shipment, len(found))
	for i := range found {
		targets[i] = &found[i]
	}
	return targets, nil
}

func (s *Service) countWebhook(result string) {
	if s.metrics != nil {
		s.metrics.TrackingWebhook(result)
	}
}

// Get returns a shipment the actor may see
func (s *Service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*ShipmentDTO, error) {
	sh, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := ToShipmentDTO(sh)
	return &dto, nil
}

// Events returns a shipment's tracking events, oldest first
func (s *Service) Events(ctx context.Context, actor shared.Actor, id uuid.UUID) ([]TrackingEventDTO, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}
	events, err := s.repo.Events(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToTrackingEventDTOs(events), nil
}

// List returns a page of shipments visible to the actor. Supported filters:
// status, subscribed, order_id, tracking_type, company_id.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[ShipmentDTO], error) {
	filter, err := common.ScopeFilter(actor, filter.Normalize())
	if err != nil {
		return nil, err
	}
	shipments, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(toShipmentDTOs(shipments), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListByOrder returns every shipment attached to an order
func (s *Service) ListByOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) ([]ShipmentDTO, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireCompanyAccess(o.CompanyID); err != nil {
		return nil, err
	}
	filter := shared.DefaultFilter()
	filter.Filters["order_id"] = orderID.String()
	rows, err := common.CollectPages(ctx, filter, common.MaxExportRows, s.repo.FindAll)
	if err != nil {
		return nil, err
	}
	return toShipmentDTOs(rows), nil
}

func toShipmentDTOs(shipments []shipment.Shipment) []ShipmentDTO {
	out := make([]ShipmentDTO, len(shipments))
	for i := range shipments {
		out[i] = ToShipmentDTO(&shipments[i])
	}
	return out
}

func (s *Service) load(ctx context.Context, actor shared.Actor, id uuid.UUID) (*shipment.Shipment, error) {
	sh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireCompanyAccess(sh.CompanyID); err != nil {
		return nil, err
	}
	return sh, nil
}
