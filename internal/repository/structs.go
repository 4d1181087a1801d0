package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrObjectNotFound = errors.New("not found")

	// ErrExternalIDConflict and ErrCustomIDConflict surface the two unique
	// constraints on the orders table.
	ErrExternalIDConflict = errors.New("external order id already exists")
	ErrCustomIDConflict   = errors.New("custom id already exists")
)

// Order statuses. NEW is assigned on creation, later transitions come in
// through patches.
const (
	StatusNew = "NEW"
)

type Order struct {
	SysID           int64     `db:"sys_id"`
	UUID            uuid.UUID `db:"uuid"`
	ExternalOrderID *string   `db:"external_order_id"`
	CustomID        string    `db:"custom_id"`
	Status          string    `db:"status"`

	Email       string  `db:"email"`
	PhoneNumber *string `db:"phone_number"`
	Username    *string `db:"username"`
	IsGuest     *bool   `db:"is_guest"`

	BoughtAt time.Time `db:"bought_at"`

	TotalPaidAmount decimal.Decimal `db:"total_paid_amount"`
	PaidCurrency    string          `db:"paid_currency"`
	PaymentAt       *time.Time      `db:"payment_at"`

	ShippingCost         decimal.Decimal `db:"shipping_cost"`
	ShippingCostCurrency string          `db:"shipping_cost_currency"`
	DeliveryMethodID     *string         `db:"delivery_method_id"`
	DeliveryMethodName   *string         `db:"delivery_method_name"`
	PickupPointID        *string         `db:"pickup_point_id"`
	IsSmart              *bool           `db:"is_smart"`

	NeedsInvoice   *bool           `db:"needs_invoice"`
	InvoiceDetails *InvoiceDetails `db:"invoice_details"`

	ShippingAddress *Address `db:"shipping_address"`
	CustomerComment *string  `db:"customer_comment"`

	TrackingNumbers *string    `db:"tracking_numbers"`
	InternalNotes   *string    `db:"internal_notes"`
	AcceptedAt      *time.Time `db:"accepted_at"`
	ShippedAt       *time.Time `db:"shipped_at"`
	DeliveredAt     *time.Time `db:"delivered_at"`
	CompletedAt     *time.Time `db:"completed_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Items []OrderItem `db:"-"`
}

type OrderItem struct {
	ID              int64           `db:"id"`
	OrderSysID      int64           `db:"order_sys_id"`
	ExternalOfferID string          `db:"external_offer_id"`
	Name            string          `db:"name"`
	Quantity        int             `db:"quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price"`
	Currency        string          `db:"currency"`
	Attributes      Attributes      `db:"attributes"`
}

// Address is stored as a jsonb column.
type Address struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	ZipCode     string `json:"zipCode,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// InvoiceDetails is stored as a jsonb column. Present only when the buyer
// requested an invoice and supplied a billing address.
type InvoiceDetails struct {
	NeedsInvoice bool   `json:"needsInvoice"`
	CompanyName  string `json:"companyName,omitempty"`
	TaxID        string `json:"taxId,omitempty"`
	Street       string `json:"street,omitempty"`
	City         string `json:"city,omitempty"`
	ZipCode      string `json:"zipCode,omitempty"`
	CountryCode  string `json:"countryCode,omitempty"`
}

// Attributes is the free-form per-item key/value map stored as jsonb.
type Attributes map[string]string

func (a *Address) Scan(src interface{}) error         { return scanJSON(src, a) }
func (a Address) Value() (driver.Value, error)        { return json.Marshal(a) }
func (d *InvoiceDetails) Scan(src interface{}) error  { return scanJSON(src, d) }
func (d InvoiceDetails) Value() (driver.Value, error) { return json.Marshal(d) }
func (a *Attributes) Scan(src interface{}) error      { return scanJSON(src, a) }
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal(map[string]string{})
	}
	return json.Marshal(map[string]string(a))
}

func scanJSON(src, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
