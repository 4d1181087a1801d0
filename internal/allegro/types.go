package allegro

import "time"

// Wire types for the marketplace REST API. Every nested structure is a
// pointer so that missing parts of a payload decode to nil instead of
// zeroed placeholders.

type CheckoutFormsResponse struct {
	CheckoutForms []CheckoutForm `json:"checkoutForms"`
	Count         int            `json:"count"`
	TotalCount    int            `json:"totalCount"`
}

type CheckoutForm struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Buyer     *Buyer     `json:"buyer"`
	LineItems []LineItem `json:"lineItems"`
	Payment   *Payment   `json:"payment"`
	Summary   *Summary   `json:"summary"`
	Delivery  *Delivery  `json:"delivery"`
	Invoice   *Invoice   `json:"invoice"`
	Note      *string    `json:"note"`
}

type Buyer struct {
	Email       string  `json:"email"`
	Login       string  `json:"login"`
	Guest       *bool   `json:"guest"`
	PhoneNumber string  `json:"phoneNumber"`
	CompanyName *string `json:"companyName"`
}

type LineItem struct {
	Offer    *Offer     `json:"offer"`
	Quantity int        `json:"quantity"`
	Price    *Price     `json:"price"`
	BoughtAt *time.Time `json:"boughtAt"`
}

type Offer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type Payment struct {
	FinishedAt *time.Time `json:"finishedAt"`
}

type Summary struct {
	TotalToPay *Price `json:"totalToPay"`
}

type Delivery struct {
	Address     *DeliveryAddress `json:"address"`
	Cost        *Price           `json:"cost"`
	Method      *DeliveryMethod  `json:"method"`
	PickupPoint *PickupPoint     `json:"pickupPoint"`
	Smart       *bool            `json:"smart"`
}

type DeliveryAddress struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Street      string `json:"street"`
	City        string `json:"city"`
	ZipCode     string `json:"zipCode"`
	CountryCode string `json:"countryCode"`
	CompanyName string `json:"companyName"`
	PhoneNumber string `json:"phoneNumber"`
}

type DeliveryMethod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PickupPoint struct {
	ID string `json:"id"`
}

type Invoice struct {
	Required bool            `json:"required"`
	Address  *InvoiceAddress `json:"address"`
}

type InvoiceAddress struct {
	Street      string          `json:"street"`
	City        string          `json:"city"`
	ZipCode     string          `json:"zipCode"`
	CountryCode string          `json:"countryCode"`
	Company     *InvoiceCompany `json:"company"`
}

type InvoiceCompany struct {
	Name  string `json:"name"`
	TaxID string `json:"taxId"`
}

type OfferDetails struct {
	ID          string       `json:"id"`
	Category    *Category    `json:"category"`
	Description *Description `json:"description"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Description struct {
	Sections []Section `json:"sections"`
}

type Section struct {
	Items []SectionItem `json:"items"`
}

type SectionItem struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
