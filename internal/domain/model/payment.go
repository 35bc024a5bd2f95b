package model

import "github.com/shopspring/decimal"

// CostType tells the gateway how to book a line item.
type CostType int

const (
	CostTypeNormal   CostType = 1 // regular product
	CostTypePostal   CostType = 2 // postage / shipping
	CostTypeHandling CostType = 3 // handling fee
)

func (c CostType) Valid() bool {
	return c >= CostTypeNormal && c <= CostTypeHandling
}

const (
	DefaultCurrency = "EUR"
	DefaultLocale   = "fi_FI"
)

// Product is a single order line.
type Product struct {
	Code     string
	Title    string          `validate:"required"`
	Amount   decimal.Decimal // quantity
	Price    decimal.Decimal // unit price, VAT included when Order.IncludeVAT
	VAT      decimal.Decimal // percent
	Discount decimal.Decimal // percent
	CostType CostType `validate:"min=1,max=3"`
}

// Contact is the buyer as shown on the payment page.
type Contact struct {
	FirstName  string `validate:"required"`
	LastName   string `validate:"required"`
	Email      string `validate:"required,email"`
	Street     string `validate:"required"`
	PostalCode string `validate:"required"`
	PostalCity string `validate:"required"`
	Country    string `validate:"required"` // ISO-3166-1 alpha-2 code expected by the gateway
	Telephone  string
	Mobile     string
	Company    string
}

// URLSet holds the return and notify addresses the gateway redirects to.
type URLSet struct {
	Success      string `validate:"required,url"`
	Failure      string `validate:"required,url"`
	Notification string `validate:"required,url"`
	Pending      string `validate:"omitempty,url"`
}

// Order is the purchase submitted to the gateway.
type Order struct {
	OrderNumber     string `validate:"required"`
	ReferenceNumber string
	Description     string
	Currency        string `validate:"required"` // ISO-4217
	Locale          string `validate:"required"`
	Contact         Contact
	URLs            URLSet
	IncludeVAT      bool
	Products        []Product `validate:"required,min=1,dive"`
}

// NewOrder returns an order with the gateway defaults: EUR, fi_FI, prices including VAT.
func NewOrder(orderNumber string, contact Contact, urls URLSet) *Order {
	return NewLocalizedOrder(orderNumber, DefaultCurrency, DefaultLocale, contact, urls)
}

// NewLocalizedOrder is NewOrder with an explicit currency and payment page locale.
// Empty values fall back to DefaultCurrency and DefaultLocale.
func NewLocalizedOrder(orderNumber, currency, locale string, contact Contact, urls URLSet) *Order {
	if currency == "" {
		currency = DefaultCurrency
	}
	if locale == "" {
		locale = DefaultLocale
	}
	return &Order{
		OrderNumber: orderNumber,
		Currency:    currency,
		Locale:      locale,
		Contact:     contact,
		URLs:        urls,
		IncludeVAT:  true,
	}
}

// AddProduct appends a normal product line.
func (o *Order) AddProduct(code, title string, amount, price, vat, discount decimal.Decimal) {
	o.AddCostLine(CostTypeNormal, code, title, amount, price, vat, discount)
}

// AddCostLine appends a line with an explicit cost type (postage, handling).
func (o *Order) AddCostLine(ct CostType, code, title string, amount, price, vat, discount decimal.Decimal) {
	o.Products = append(o.Products, Product{
		Code:     code,
		Title:    title,
		Amount:   amount,
		Price:    price,
		VAT:      vat,
		Discount: discount,
		CostType: ct,
	})
}

// Total sums amount*price*(1-discount%) over all lines.
func (o *Order) Total() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	for _, p := range o.Products {
		line := p.Amount.Mul(p.Price)
		if !p.Discount.IsZero() {
			line = line.Mul(hundred.Sub(p.Discount)).Div(hundred)
		}
		total = total.Add(line)
	}
	return total.Round(2)
}

// PaymentResult is what the gateway hands back for a created payment.
type PaymentResult struct {
	OrderNumber string `json:"orderNumber,omitempty"`
	Token       string `json:"token"`
	URL         string `json:"url"`
}

// Callback carries the query parameters of a return or notify request.
type Callback struct {
	OrderNumber string
	Timestamp   string
	Paid        string
	Method      string
	AuthCode    string
}
