//go:generate mockgen -source ./service.go -destination=./mocks/service.go -package=mock_order
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/monmat/order-manager/internal/metrics"
	"github.com/monmat/order-manager/internal/repository"
)

// ErrDuplicateExternalID is returned when a create carries an external id
// that is already stored. During synchronization this is the normal outcome
// for a re-fetched order, not a failure.
var ErrDuplicateExternalID = errors.New("order with this external id already exists")

// maxSequenceAttempts bounds the custom id re-derivation loop when
// concurrent writers collide on the same sequence number.
const maxSequenceAttempts = 5

type OrderRepository interface {
	Create(ctx context.Context, order *repository.Order) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*repository.Order, error)
	GetByExternalID(ctx context.Context, externalID string) (*repository.Order, error)
	LastInPeriod(ctx context.Context, periodPrefix string) (*repository.Order, error)
	Update(ctx context.Context, order *repository.Order) error
	List(ctx context.Context, limit, offset int) ([]*repository.Order, error)
}

type EventProducer interface {
	SendMessage(ctx context.Context, key, value []byte) error
}

type Service struct {
	repo     OrderRepository
	producer EventProducer
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo OrderRepository, producer EventProducer, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		producer: producer,
		log:      log,
		now:      time.Now,
	}
}

// CreateOrder persists a new order with status NEW and a freshly derived
// custom id. When the command carries no total, the sum of unit price times
// quantity over the items is used instead.
func (s *Service) CreateOrder(ctx context.Context, cmd *CreateOrderCommand) (*repository.Order, error) {
	if cmd.ExternalOrderID != "" {
		_, err := s.repo.GetByExternalID(ctx, cmd.ExternalOrderID)
		if err == nil {
			return nil, ErrDuplicateExternalID
		}
		if !errors.Is(err, repository.ErrObjectNotFound) {
			return nil, fmt.Errorf("check external id: %w", err)
		}
	}

	now := s.now().UTC()
	boughtAt := now
	if cmd.BoughtAt != nil {
		boughtAt = cmd.BoughtAt.UTC()
	}

	entity := s.buildOrder(cmd, boughtAt, now)

	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		customID, err := s.nextCustomID(ctx, boughtAt)
		if err != nil {
			return nil, err
		}
		entity.CustomID = customID

		err = s.repo.Create(ctx, entity)
		switch {
		case err == nil:
			metrics.OrdersCreatedTotal.Inc()
			s.publishCreated(ctx, entity)
			return entity, nil
		case errors.Is(err, repository.ErrCustomIDConflict):
			metrics.SequenceConflictsTotal.Inc()
			s.log.Debug("custom id taken by concurrent writer, re-deriving",
				zap.String("custom_id", customID))
		case errors.Is(err, repository.ErrExternalIDConflict):
			return nil, ErrDuplicateExternalID
		default:
			return nil, fmt.Errorf("create order: %w", err)
		}
	}

	return nil, fmt.Errorf("custom id sequence conflict not resolved after %d attempts", maxSequenceAttempts)
}

func (s *Service) buildOrder(cmd *CreateOrderCommand, boughtAt, now time.Time) *repository.Order {
	entity := &repository.Order{
		UUID:     uuid.New(),
		Status:   repository.StatusNew,
		Email:    cmd.Email,
		BoughtAt: boughtAt,

		PaidCurrency: cmd.PaidCurrency,
		PaymentAt:    cmd.PaymentAt,

		ShippingCost:         cmd.ShippingCost,
		ShippingCostCurrency: cmd.ShippingCostCurrency,
		DeliveryMethodID:     cmd.DeliveryMethodID,
		DeliveryMethodName:   cmd.DeliveryMethodName,
		PickupPointID:        cmd.PickupPointID,
		IsSmart:              cmd.IsSmart,

		IsGuest:        cmd.IsGuest,
		NeedsInvoice:   cmd.NeedsInvoice,
		InvoiceDetails: cmd.InvoiceDetails,

		ShippingAddress: cmd.ShippingAddress,
		CustomerComment: cmd.CustomerComment,

		CreatedAt: now,
		UpdatedAt: now,
	}
	if cmd.ExternalOrderID != "" {
		externalID := cmd.ExternalOrderID
		entity.ExternalOrderID = &externalID
	}
	if cmd.PhoneNumber != "" {
		phone := cmd.PhoneNumber
		entity.PhoneNumber = &phone
	}
	if cmd.Username != "" {
		username := cmd.Username
		entity.Username = &username
	}

	calculatedTotal := decimal.Zero
	for _, itemCmd := range cmd.Items {
		entity.Items = append(entity.Items, repository.OrderItem{
			ExternalOfferID: itemCmd.OfferID,
			Name:            itemCmd.Name,
			Quantity:        itemCmd.Quantity,
			UnitPrice:       itemCmd.UnitPrice,
			Currency:        itemCmd.Currency,
			Attributes:      itemCmd.Attributes,
		})
		calculatedTotal = calculatedTotal.Add(itemCmd.UnitPrice.Mul(decimal.NewFromInt(int64(itemCmd.Quantity))))
	}

	if cmd.TotalPaidAmount != nil {
		entity.TotalPaidAmount = *cmd.TotalPaidAmount
	} else {
		entity.TotalPaidAmount = calculatedTotal
	}

	return entity
}

// PatchOrder applies the present patch fields to the order and returns the
// updated entity. Returns repository.ErrObjectNotFound when the uuid does
// not exist.
func (s *Service) PatchOrder(ctx context.Context, id uuid.UUID, patch *PatchOrderCommand) (*repository.Order, error) {
	entity, err := s.repo.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyPatch(entity, patch)
	entity.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return entity, nil
}

func applyPatch(entity *repository.Order, patch *PatchOrderCommand) {
	if patch.TrackingNumbers != nil {
		entity.TrackingNumbers = patch.TrackingNumbers
	}
	if patch.Status != nil {
		entity.Status = *patch.Status
	}
	if patch.InternalNotes != nil {
		entity.InternalNotes = patch.InternalNotes
	}
	if patch.CustomerComment != nil {
		entity.CustomerComment = patch.CustomerComment
	}
	if patch.AcceptedAt != nil {
		entity.AcceptedAt = patch.AcceptedAt
	}
	if patch.CompletedAt != nil {
		entity.CompletedAt = patch.CompletedAt
	}
	if patch.ShippedAt != nil {
		entity.ShippedAt = patch.ShippedAt
	}
	if patch.DeliveredAt != nil {
		entity.DeliveredAt = patch.DeliveredAt
	}
	if patch.DeliveryMethodID != nil {
		entity.DeliveryMethodID = patch.DeliveryMethodID
	}
	if patch.DeliveryMethodName != nil {
		entity.DeliveryMethodName = patch.DeliveryMethodName
	}
	if patch.PickupPointID != nil {
		entity.PickupPointID = patch.PickupPointID
	}
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*repository.Order, error) {
	return s.repo.GetByUUID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, limit, offset int) ([]*repository.Order, error) {
	return s.repo.List(ctx, limit, offset)
}

type orderCreatedEvent struct {
	UUID            string          `json:"uuid"`
	CustomID        string          `json:"customId"`
	ExternalOrderID string          `json:"externalOrderId,omitempty"`
	Status          string          `json:"status"`
	TotalPaidAmount decimal.Decimal `json:"totalPaidAmount"`
	PaidCurrency    string          `json:"paidCurrency"`
	BoughtAt        time.Time       `json:"boughtAt"`
}

// publishCreated emits the order-created event. The order is already
// committed at this point, so a publish failure is logged and swallowed.
func (s *Service) publishCreated(ctx context.Context, entity *repository.Order) {
	if s.producer == nil {
		return
	}

	event := orderCreatedEvent{
		UUID:            entity.UUID.String(),
		CustomID:        entity.CustomID,
		Status:          entity.Status,
		TotalPaidAmount: entity.TotalPaidAmount,
		PaidCurrency:    entity.PaidCurrency,
		BoughtAt:        entity.BoughtAt,
	}
	if entity.ExternalOrderID != nil {
		event.ExternalOrderID = *entity.ExternalOrderID
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error("marshal order created event", zap.Error(err))
		return
	}

	if err := s.producer.SendMessage(ctx, []byte(entity.UUID.String()), payload); err != nil {
		s.log.Error("publish order created event",
			zap.String("custom_id", entity.CustomID), zap.Error(err))
	}
}
