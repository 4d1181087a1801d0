package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/monmat/order-manager/internal/repository"
)

// CreateOrderCommand is the canonical create request, produced either by the
// marketplace mapper or by the REST layer. Pointer fields distinguish
// "absent" from zero values.
type CreateOrderCommand struct {
	ExternalOrderID string
	Email           string
	BoughtAt        *time.Time
	PhoneNumber     string
	Username        string
	IsGuest         *bool

	ShippingAddress *repository.Address

	TotalPaidAmount *decimal.Decimal
	PaidCurrency    string
	PaymentAt       *time.Time

	ShippingCost         decimal.Decimal
	ShippingCostCurrency string
	DeliveryMethodID     *string
	DeliveryMethodName   *string
	PickupPointID        *string
	IsSmart              *bool

	NeedsInvoice   *bool
	InvoiceDetails *repository.InvoiceDetails

	CustomerComment *string

	Items []OrderItemCommand
}

type OrderItemCommand struct {
	OfferID    string
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	Currency   string
	Attributes map[string]string
}

// PatchOrderCommand overwrites only the fields that are present. customId,
// externalId and items can never be patched.
type PatchOrderCommand struct {
	TrackingNumbers    *string
	Status             *string
	InternalNotes      *string
	CustomerComment    *string
	AcceptedAt         *time.Time
	CompletedAt        *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	DeliveryMethodID   *string
	DeliveryMethodName *string
	PickupPointID      *string
}
