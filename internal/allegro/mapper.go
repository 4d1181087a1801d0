package allegro

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/monmat/order-manager/internal/money"
	"github.com/monmat/order-manager/internal/order"
	"github.com/monmat/order-manager/internal/repository"
)

// OfferLookup fetches the offer document behind one line item. It may fail
// per item; the mapper degrades that item to an empty attribute map.
type OfferLookup func(ctx context.Context, offerID string) (*OfferDetails, error)

// Mapper turns one checkout form into the canonical create command.
type Mapper struct {
	defaultCurrency    string
	defaultCountryCode string
	log                *zap.Logger
}

func NewMapper(defaultCurrency, defaultCountryCode string, log *zap.Logger) *Mapper {
	return &Mapper{
		defaultCurrency:    defaultCurrency,
		defaultCountryCode: defaultCountryCode,
		log:                log,
	}
}

func (m *Mapper) MapOrder(ctx context.Context, form *CheckoutForm, lookup OfferLookup) *order.CreateOrderCommand {
	cmd := &order.CreateOrderCommand{
		ExternalOrderID: form.ID,
		CustomerComment: form.Note,
	}

	earliestBoughtAt := m.mapItems(ctx, form, lookup, cmd)
	if earliestBoughtAt != nil {
		cmd.BoughtAt = earliestBoughtAt
	}

	m.mapShipping(form, cmd)
	m.mapBuyer(form, cmd)
	m.mapPayment(form, cmd)
	m.mapInvoice(form, cmd)

	return cmd
}

// mapItems builds one item per line item that has an offer reference and
// returns the earliest boughtAt seen among all line items.
func (m *Mapper) mapItems(ctx context.Context, form *CheckoutForm, lookup OfferLookup, cmd *order.CreateOrderCommand) *time.Time {
	var earliest *time.Time

	for _, lineItem := range form.LineItems {
		if lineItem.BoughtAt != nil && (earliest == nil || lineItem.BoughtAt.Before(*earliest)) {
			boughtAt := *lineItem.BoughtAt
			earliest = &boughtAt
		}

		if lineItem.Offer == nil {
			continue
		}

		attributes := map[string]string{}
		details, err := lookup(ctx, lineItem.Offer.ID)
		if err != nil {
			m.log.Warn("could not fetch offer details",
				zap.String("offer_id", lineItem.Offer.ID), zap.Error(err))
		} else {
			attributes = ExtractAttributes(details)
		}

		name := lineItem.Offer.Name
		if name == "" {
			name = "Unknown"
		}

		cmd.Items = append(cmd.Items, order.OrderItemCommand{
			OfferID:    lineItem.Offer.ID,
			Name:       name,
			Quantity:   lineItem.Quantity,
			UnitPrice:  m.amountOf(lineItem.Price),
			Currency:   m.currencyOf(lineItem.Price),
			Attributes: attributes,
		})
	}

	return earliest
}

func (m *Mapper) mapShipping(form *CheckoutForm, cmd *order.CreateOrderCommand) {
	if form.Delivery != nil && form.Delivery.Address != nil {
		addr := form.Delivery.Address
		countryCode := addr.CountryCode
		if countryCode == "" {
			countryCode = m.defaultCountryCode
		}
		cmd.ShippingAddress = &repository.Address{
			FirstName:   addr.FirstName,
			LastName:    addr.LastName,
			CompanyName: addr.CompanyName,
			PhoneNumber: addr.PhoneNumber,
			Street:      addr.Street,
			City:        addr.City,
			ZipCode:     addr.ZipCode,
			CountryCode: countryCode,
		}
		cmd.PhoneNumber = addr.PhoneNumber
	}

	if form.Delivery != nil {
		cmd.ShippingCost = m.amountOf(form.Delivery.Cost)
		cmd.ShippingCostCurrency = m.currencyOf(form.Delivery.Cost)
		cmd.IsSmart = form.Delivery.Smart
		if form.Delivery.Method != nil {
			methodID, methodName := form.Delivery.Method.ID, form.Delivery.Method.Name
			cmd.DeliveryMethodID = &methodID
			cmd.DeliveryMethodName = &methodName
		}
		if form.Delivery.PickupPoint != nil {
			pickupPointID := form.Delivery.PickupPoint.ID
			cmd.PickupPointID = &pickupPointID
		}
	} else {
		cmd.ShippingCost = decimal.Zero
		cmd.ShippingCostCurrency = m.defaultCurrency
	}
}

func (m *Mapper) mapBuyer(form *CheckoutForm, cmd *order.CreateOrderCommand) {
	if form.Buyer == nil {
		return
	}
	cmd.Email = form.Buyer.Email
	cmd.Username = form.Buyer.Login
	cmd.IsGuest = form.Buyer.Guest

	// Delivery-address phone wins, buyer phone is the fallback.
	if cmd.PhoneNumber == "" {
		cmd.PhoneNumber = form.Buyer.PhoneNumber
	}

	if cmd.ShippingAddress != nil && cmd.ShippingAddress.CompanyName == "" && form.Buyer.CompanyName != nil {
		cmd.ShippingAddress.CompanyName = *form.Buyer.CompanyName
	}
}

func (m *Mapper) mapPayment(form *CheckoutForm, cmd *order.CreateOrderCommand) {
	var total decimal.Decimal
	currency := m.defaultCurrency
	if form.Summary != nil {
		total = m.amountOf(form.Summary.TotalToPay)
		currency = m.currencyOf(form.Summary.TotalToPay)
	}
	cmd.TotalPaidAmount = &total
	cmd.PaidCurrency = currency

	if form.Payment != nil {
		cmd.PaymentAt = form.Payment.FinishedAt
	}
}

func (m *Mapper) mapInvoice(form *CheckoutForm, cmd *order.CreateOrderCommand) {
	if form.Invoice == nil {
		return
	}
	required := form.Invoice.Required
	cmd.NeedsInvoice = &required

	// Details only when the invoice is both required and addressed;
	// otherwise they stay absent rather than zeroed.
	if !required || form.Invoice.Address == nil {
		return
	}

	addr := form.Invoice.Address
	details := &repository.InvoiceDetails{
		NeedsInvoice: true,
		Street:       addr.Street,
		City:         addr.City,
		ZipCode:      addr.ZipCode,
		CountryCode:  addr.CountryCode,
	}
	if addr.Company != nil {
		details.CompanyName = addr.Company.Name
		details.TaxID = addr.Company.TaxID
	}
	cmd.InvoiceDetails = details
}

// amountOf and currencyOf are the two total extraction helpers shared by
// every monetary field on the order.
func (m *Mapper) amountOf(p *Price) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return money.ParseAmount(p.Amount)
}

func (m *Mapper) currencyOf(p *Price) string {
	if p == nil {
		return m.defaultCurrency
	}
	return money.ParseCurrency(p.Currency, m.defaultCurrency)
}
