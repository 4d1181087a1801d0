package allegro

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMapper() *Mapper {
	return NewMapper("PLN", "PL", zap.NewNop())
}

func noLookup(ctx context.Context, offerID string) (*OfferDetails, error) {
	return nil, errors.New("no lookup in this test")
}

func TestMapOrder_PhoneFallbackAndCountryDefault(t *testing.T) {
	m := newTestMapper()

	form := &CheckoutForm{
		ID: "ext-1",
		Buyer: &Buyer{
			Email:       "buyer@example.com",
			Login:       "buyer1",
			PhoneNumber: "600111222",
		},
	}

	cmd := m.MapOrder(context.Background(), form, noLookup)

	assert.Equal(t, "ext-1", cmd.ExternalOrderID)
	assert.Equal(t, "600111222", cmd.PhoneNumber)
	assert.Nil(t, cmd.ShippingAddress)
	assert.Nil(t, cmd.InvoiceDetails)
	assert.Equal(t, "PLN", cmd.PaidCurrency)
	require.NotNil(t, cmd.TotalPaidAmount)
	assert.True(t, cmd.TotalPaidAmount.IsZero())
}

func TestMapOrder_DeliveryPhonePreferred(t *testing.T) {
	m := newTestMapper()

	form := &CheckoutForm{
		ID:    "ext-2",
		Buyer: &Buyer{Email: "a@b.c", PhoneNumber: "111"},
		Delivery: &Delivery{
			Address: &DeliveryAddress{
				FirstName:   "Jan",
				Street:      "Polna 1",
				City:        "Warszawa",
				PhoneNumber: "222",
			},
		},
	}

	cmd := m.MapOrder(context.Background(), form, noLookup)

	assert.Equal(t, "222", cmd.PhoneNumber)
	require.NotNil(t, cmd.ShippingAddress)
	assert.Equal(t, "PL", cmd.ShippingAddress.CountryCode)
	assert.Equal(t, "Polna 1", cmd.ShippingAddress.Street)
}

func TestMapOrder_BuyerCompanyFallback(t *testing.T) {
	m := newTestMapper()
	company := "Monmat Sp. z o.o."

	form := &CheckoutForm{
		ID:    "ext-3",
		Buyer: &Buyer{Email: "a@b.c", CompanyName: &company},
		Delivery: &Delivery{
			Address: &DeliveryAddress{Street: "Polna 1", CountryCode: "DE"},
		},
	}

	cmd := m.MapOrder(context.Background(), form, noLookup)

	require.NotNil(t, cmd.ShippingAddress)
	assert.Equal(t, company, cmd.ShippingAddress.CompanyName)
	assert.Equal(t, "DE", cmd.ShippingAddress.CountryCode)
}

func TestMapOrder_EarliestBoughtAt(t *testing.T) {
	m := newTestMapper()
	early := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	late := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

	form := &CheckoutForm{
		ID: "ext-4",
		LineItems: []LineItem{
			{Offer: &Offer{ID: "o1", Name: "A"}, Quantity: 1, BoughtAt: &late},
			{Offer: &Offer{ID: "o2", Name: "B"}, Quantity: 1, BoughtAt: &early},
		},
	}

	cmd := m.MapOrder(context.Background(), form, noLookup)

	require.NotNil(t, cmd.BoughtAt)
	assert.True(t, cmd.BoughtAt.Equal(early))
}

func TestMapOrder_NoBoughtAtLeavesTimestampAbsent(t *testing.T) {
	m := newTestMapper()

	cmd := m.MapOrder(context.Background(), &CheckoutForm{ID: "ext-5"}, noLookup)

	assert.Nil(t, cmd.BoughtAt)
}

func TestMapOrder_ItemsWithoutOfferSkipped(t *testing.T) {
	m := newTestMapper()

	form := &CheckoutForm{
		ID: "ext-6",
		LineItems: []LineItem{
			{Offer: &Offer{ID: "o1", Name: "A"}, Quantity: 2, Price: &Price{Amount: "10.00", Currency: "PLN"}},
			{Quantity: 1}, // no offer reference
		},
	}

	cmd := m.MapOrder(context.Background(), form, func(ctx context.Context, offerID string) (*OfferDetails, error) {
		return &OfferDetails{Category: &Category{ID: "cat-5"}}, nil
	})

	require.Len(t, cmd.Items, 1)
	assert.Equal(t, "o1", cmd.Items[0].OfferID)
	assert.True(t, cmd.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, map[string]string{"categoryId": "cat-5"}, cmd.Items[0].Attributes)
}

func TestMapOrder_LookupFailureDegradesSingleItem(t *testing.T) {
	m := newTestMapper()

	form := &CheckoutForm{
		ID: "ext-7",
		LineItems: []LineItem{
			{Offer: &Offer{ID: "ok-1", Name: "A"}, Quantity: 1},
			{Offer: &Offer{ID: "boom", Name: "B"}, Quantity: 1},
			{Offer: &Offer{ID: "ok-2", Name: "C"}, Quantity: 1},
		},
	}

	cmd := m.MapOrder(context.Background(), form, func(ctx context.Context, offerID string) (*OfferDetails, error) {
		if offerID == "boom" {
			return nil, errors.New("upstream 500")
		}
		return &OfferDetails{Category: &Category{ID: "cat-" + offerID}}, nil
	})

	require.Len(t, cmd.Items, 3)
	assert.Equal(t, map[string]string{"categoryId": "cat-ok-1"}, cmd.Items[0].Attributes)
	assert.Equal(t, map[string]string{}, cmd.Items[1].Attributes)
	assert.Equal(t, map[string]string{"categoryId": "cat-ok-2"}, cmd.Items[2].Attributes)
}

func TestMapOrder_PaymentAndShippingMoney(t *testing.T) {
	m := newTestMapper()
	finishedAt := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	smart := true

	form := &CheckoutForm{
		ID:      "ext-8",
		Summary: &Summary{TotalToPay: &Price{Amount: "123.45", Currency: "EUR"}},
		Payment: &Payment{FinishedAt: &finishedAt},
		Delivery: &Delivery{
			Cost:        &Price{Amount: "9.99"},
			Smart:       &smart,
			Method:      &DeliveryMethod{ID: "dm-1", Name: "Courier"},
			PickupPoint: &PickupPoint{ID: "pp-7"},
		},
	}

	cmd := m.MapOrder(context.Background(), form, noLookup)

	require.NotNil(t, cmd.TotalPaidAmount)
	assert.True(t, cmd.TotalPaidAmount.Equal(decimal.RequireFromString("123.45")))
	assert.Equal(t, "EUR", cmd.PaidCurrency)
	require.NotNil(t, cmd.PaymentAt)
	assert.True(t, cmd.PaymentAt.Equal(finishedAt))

	assert.True(t, cmd.ShippingCost.Equal(decimal.RequireFromString("9.99")))
	// Cost carried no currency, so the default applies.
	assert.Equal(t, "PLN", cmd.ShippingCostCurrency)
	require.NotNil(t, cmd.DeliveryMethodID)
	assert.Equal(t, "dm-1", *cmd.DeliveryMethodID)
	require.NotNil(t, cmd.PickupPointID)
	assert.Equal(t, "pp-7", *cmd.PickupPointID)
	require.NotNil(t, cmd.IsSmart)
	assert.True(t, *cmd.IsSmart)
}

func TestMapOrder_InvoiceOnlyWhenRequiredWithAddress(t *testing.T) {
	m := newTestMapper()

	t.Run("required with address and company", func(t *testing.T) {
		form := &CheckoutForm{
			ID: "ext-9",
			Invoice: &Invoice{
				Required: true,
				Address: &InvoiceAddress{
					Street:      "Biurowa 2",
					City:        "Krakow",
					ZipCode:     "30-001",
					CountryCode: "PL",
					Company:     &InvoiceCompany{Name: "ACME", TaxID: "1234567890"},
				},
			},
		}

		cmd := m.MapOrder(context.Background(), form, noLookup)

		require.NotNil(t, cmd.NeedsInvoice)
		assert.True(t, *cmd.NeedsInvoice)
		require.NotNil(t, cmd.InvoiceDetails)
		assert.True(t, cmd.InvoiceDetails.NeedsInvoice)
		assert.Equal(t, "ACME", cmd.InvoiceDetails.CompanyName)
		assert.Equal(t, "1234567890", cmd.InvoiceDetails.TaxID)
	})

	t.Run("required without address", func(t *testing.T) {
		form := &CheckoutForm{ID: "ext-10", Invoice: &Invoice{Required: true}}
		cmd := m.MapOrder(context.Background(), form, noLookup)

		require.NotNil(t, cmd.NeedsInvoice)
		assert.True(t, *cmd.NeedsInvoice)
		assert.Nil(t, cmd.InvoiceDetails)
	})

	t.Run("not required", func(t *testing.T) {
		form := &CheckoutForm{
			ID:      "ext-11",
			Invoice: &Invoice{Required: false, Address: &InvoiceAddress{Street: "x"}},
		}
		cmd := m.MapOrder(context.Background(), form, noLookup)

		require.NotNil(t, cmd.NeedsInvoice)
		assert.False(t, *cmd.NeedsInvoice)
		assert.Nil(t, cmd.InvoiceDetails)
	})
}

func TestMapOrder_MalformedAmountsDegradeToZero(t *testing.T) {
	m := newTestMapper()

	form := &CheckoutForm{
		ID:       "ext-12",
		Summary:  &Summary{TotalToPay: &Price{Amount: "12,50", Currency: "PLN"}},
		Delivery: &Delivery{Cost: &Price{Amount: "oops"}},
		LineItems: []LineItem{
			{Offer: &Offer{ID: "o1"}, Quantity: 1, Price: &Price{Amount: ""}},
		},
	}

	cmd := m.MapOrder(context.Background(), form, noLookup)

	require.NotNil(t, cmd.TotalPaidAmount)
	assert.True(t, cmd.TotalPaidAmount.IsZero())
	assert.True(t, cmd.ShippingCost.IsZero())
	require.Len(t, cmd.Items, 1)
	assert.True(t, cmd.Items[0].UnitPrice.IsZero())
	assert.Equal(t, "Unknown", cmd.Items[0].Name)
}
