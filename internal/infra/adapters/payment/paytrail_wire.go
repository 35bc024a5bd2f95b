package payment

import (
	"encoding/json"

	"paytrail-client/internal/domain/model"
)

// Request body of POST /api-payment/create (API version 1).

type wireURLSet struct {
	Success      string `json:"success"`
	Failure      string `json:"failure"`
	Notification string `json:"notification"`
	Pending      string `json:"pending"`
}

type wireAddress struct {
	Street       string `json:"street"`
	PostalCode   string `json:"postalCode"`
	PostalOffice string `json:"postalOffice"`
	Country      string `json:"country"`
}

type wireContact struct {
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	Mobile      string      `json:"mobile"`
	Telephone   string      `json:"telephone"`
	CompanyName string      `json:"companyName"`
	Address     wireAddress `json:"address"`
}

type wireProduct struct {
	Title    string `json:"title"`
	Code     string `json:"code"`
	Amount   string `json:"amount"`
	Price    string `json:"price"`
	VAT      string `json:"vat"`
	Discount string `json:"discount"`
	Type     int    `json:"type"`
}

type wireOrderDetails struct {
	IncludeVAT int           `json:"includeVat"`
	Contact    wireContact   `json:"contact"`
	Products   []wireProduct `json:"products"`
}

type wirePayment struct {
	OrderNumber     string           `json:"orderNumber"`
	ReferenceNumber string           `json:"referenceNumber"`
	Description     string           `json:"description"`
	Currency        string           `json:"currency"`
	Locale          string           `json:"locale"`
	URLSet          wireURLSet       `json:"urlSet"`
	OrderDetails    wireOrderDetails `json:"orderDetails"`
}

// toWire maps an order onto the nested request document.
func toWire(o *model.Order) wirePayment {
	includeVAT := 0
	if o.IncludeVAT {
		includeVAT = 1
	}
	c := o.Contact
	products := make([]wireProduct, 0, len(o.Products))
	for _, p := range o.Products {
		ct := p.CostType
		if !ct.Valid() {
			ct = model.CostTypeNormal
		}
		products = append(products, wireProduct{
			Title:    p.Title,
			Code:     p.Code,
			Amount:   p.Amount.StringFixed(2),
			Price:    p.Price.StringFixed(2),
			VAT:      p.VAT.StringFixed(2),
			Discount: p.Discount.StringFixed(2),
			Type:     int(ct),
		})
	}
	return wirePayment{
		OrderNumber:     o.OrderNumber,
		ReferenceNumber: o.ReferenceNumber,
		Description:     o.Description,
		Currency:        o.Currency,
		Locale:          o.Locale,
		URLSet: wireURLSet{
			Success:      o.URLs.Success,
			Failure:      o.URLs.Failure,
			Notification: o.URLs.Notification,
			Pending:      o.URLs.Pending,
		},
		OrderDetails: wireOrderDetails{
			IncludeVAT: includeVAT,
			Contact: wireContact{
				FirstName:   c.FirstName,
				LastName:    c.LastName,
				Email:       c.Email,
				Mobile:      c.Mobile,
				Telephone:   c.Telephone,
				CompanyName: c.Company,
				Address: wireAddress{
					Street:       c.Street,
					PostalCode:   c.PostalCode,
					PostalOffice: c.PostalCity,
					Country:      c.Country,
				},
			},
			Products: products,
		},
	}
}

// Response bodies.

type createResponse struct {
	OrderNumber string `json:"orderNumber"`
	Token       string `json:"token"`
	URL         string `json:"url"`
}

// errorResponse keeps both fields raw: the gateway may send the code as a
// number or a string.
type errorResponse struct {
	ErrorCode    json.RawMessage `json:"errorCode"`
	ErrorMessage json.RawMessage `json:"errorMessage"`
}
