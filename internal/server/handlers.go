package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/monmat/order-manager/internal/order"
	"github.com/monmat/order-manager/internal/repository"
)

type createOrderRequest struct {
	ExternalOrderID      string                     `json:"externalOrderId"`
	Email                string                     `json:"email"`
	BoughtAt             *time.Time                 `json:"boughtAt"`
	PhoneNumber          string                     `json:"phoneNumber"`
	Username             string                     `json:"username"`
	IsGuest              *bool                      `json:"isGuest"`
	ShippingAddress      *repository.Address        `json:"shippingAddress"`
	TotalPaidAmount      *decimal.Decimal           `json:"totalPaidAmount"`
	PaidCurrency         string                     `json:"paidCurrency"`
	PaymentAt            *time.Time                 `json:"paymentAt"`
	ShippingCost         decimal.Decimal            `json:"shippingCost"`
	ShippingCostCurrency string                     `json:"shippingCostCurrency"`
	DeliveryMethodID     *string                    `json:"deliveryMethodId"`
	DeliveryMethodName   *string                    `json:"deliveryMethodName"`
	PickupPointID        *string                    `json:"pickupPointId"`
	IsSmart              *bool                      `json:"isSmart"`
	NeedsInvoice         *bool                      `json:"needsInvoice"`
	InvoiceDetails       *repository.InvoiceDetails `json:"invoiceDetails"`
	CustomerComment      *string                    `json:"customerComment"`
	Items                []orderItemRequest         `json:"items"`
}

type orderItemRequest struct {
	OfferID    string            `json:"offerId"`
	Name       string            `json:"name"`
	Quantity   int               `json:"quantity"`
	UnitPrice  decimal.Decimal   `json:"unitPrice"`
	Currency   string            `json:"unitPriceCurrency"`
	Attributes map[string]string `json:"attributes"`
}

type patchOrderRequest struct {
	TrackingNumbers    *string    `json:"trackingNumbers"`
	Status             *string    `json:"status"`
	InternalNotes      *string    `json:"internalNotes"`
	CustomerComment    *string    `json:"customerComment"`
	AcceptedAt         *time.Time `json:"acceptedAt"`
	CompletedAt        *time.Time `json:"completedAt"`
	ShippedAt          *time.Time `json:"shippedAt"`
	DeliveredAt        *time.Time `json:"deliveredAt"`
	DeliveryMethodID   *string    `json:"deliveryMethodId"`
	DeliveryMethodName *string    `json:"deliveryMethodName"`
	PickupPointID      *string    `json:"pickupPointId"`
}

type orderResponse struct {
	UUID            string                     `json:"uuid"`
	ExternalOrderID *string                    `json:"externalOrderId,omitempty"`
	CustomID        string                     `json:"customId"`
	Status          string                     `json:"status"`
	Email           string                     `json:"email"`
	PhoneNumber     *string                    `json:"phoneNumber,omitempty"`
	Username        *string                    `json:"username,omitempty"`
	IsGuest         *bool                      `json:"isGuest,omitempty"`
	BoughtAt        time.Time                  `json:"boughtAt"`
	TotalPaidAmount decimal.Decimal            `json:"totalPaidAmount"`
	PaidCurrency    string                     `json:"paidCurrency"`
	PaymentAt       *time.Time                 `json:"paymentAt,omitempty"`
	ShippingCost    decimal.Decimal            `json:"shippingCost"`
	ShippingCostCurrency string                `json:"shippingCostCurrency"`
	DeliveryMethodID   *string                 `json:"deliveryMethodId,omitempty"`
	DeliveryMethodName *string                 `json:"deliveryMethodName,omitempty"`
	PickupPointID      *string                 `json:"pickupPointId,omitempty"`
	IsSmart            *bool                   `json:"isSmart,omitempty"`
	NeedsInvoice       *bool                   `json:"needsInvoice,omitempty"`
	InvoiceDetails     *repository.InvoiceDetails `json:"invoiceDetails,omitempty"`
	ShippingAddress    *repository.Address     `json:"shippingAddress,omitempty"`
	CustomerComment    *string                 `json:"customerComment,omitempty"`
	TrackingNumbers    *string                 `json:"trackingNumbers,omitempty"`
	InternalNotes      *string                 `json:"internalNotes,omitempty"`
	AcceptedAt         *time.Time              `json:"acceptedAt,omitempty"`
	ShippedAt          *time.Time              `json:"shippedAt,omitempty"`
	DeliveredAt        *time.Time              `json:"deliveredAt,omitempty"`
	CompletedAt        *time.Time              `json:"completedAt,omitempty"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
	Items              []orderItemResponse     `json:"items"`
}

type orderItemResponse struct {
	ExternalOfferID string            `json:"externalOfferId"`
	Name            string            `json:"name"`
	Quantity        int               `json:"quantity"`
	UnitPrice       decimal.Decimal   `json:"unitPrice"`
	Currency        string            `json:"currency"`
	Attributes      map[string]string `json:"attributes"`
}

func toOrderResponse(o *repository.Order) orderResponse {
	resp := orderResponse{
		UUID:                 o.UUID.String(),
		ExternalOrderID:      o.ExternalOrderID,
		CustomID:             o.CustomID,
		Status:               o.Status,
		Email:                o.Email,
		PhoneNumber:          o.PhoneNumber,
		Username:             o.Username,
		IsGuest:              o.IsGuest,
		BoughtAt:             o.BoughtAt,
		TotalPaidAmount:      o.TotalPaidAmount,
		PaidCurrency:         o.PaidCurrency,
		PaymentAt:            o.PaymentAt,
		ShippingCost:         o.ShippingCost,
		ShippingCostCurrency: o.ShippingCostCurrency,
		DeliveryMethodID:     o.DeliveryMethodID,
		DeliveryMethodName:   o.DeliveryMethodName,
		PickupPointID:        o.PickupPointID,
		IsSmart:              o.IsSmart,
		NeedsInvoice:         o.NeedsInvoice,
		InvoiceDetails:       o.InvoiceDetails,
		ShippingAddress:      o.ShippingAddress,
		CustomerComment:      o.CustomerComment,
		TrackingNumbers:      o.TrackingNumbers,
		InternalNotes:        o.InternalNotes,
		AcceptedAt:           o.AcceptedAt,
		ShippedAt:            o.ShippedAt,
		DeliveredAt:          o.DeliveredAt,
		CompletedAt:          o.CompletedAt,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		Items:                make([]orderItemResponse, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ExternalOfferID: item.ExternalOfferID,
			Name:            item.Name,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			Currency:        item.Currency,
			Attributes:      item.Attributes,
		})
	}
	return resp
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	cmd := &order.CreateOrderCommand{
		ExternalOrderID:      req.ExternalOrderID,
		Email:                req.Email,
		BoughtAt:             req.BoughtAt,
		PhoneNumber:          req.PhoneNumber,
		Username:             req.Username,
		IsGuest:              req.IsGuest,
		ShippingAddress:      req.ShippingAddress,
		TotalPaidAmount:      req.TotalPaidAmount,
		PaidCurrency:         req.PaidCurrency,
		PaymentAt:            req.PaymentAt,
		ShippingCost:         req.ShippingCost,
		ShippingCostCurrency: req.ShippingCostCurrency,
		DeliveryMethodID:     req.DeliveryMethodID,
		DeliveryMethodName:   req.DeliveryMethodName,
		PickupPointID:        req.PickupPointID,
		IsSmart:              req.IsSmart,
		NeedsInvoice:         req.NeedsInvoice,
		InvoiceDetails:       req.InvoiceDetails,
		CustomerComment:      req.CustomerComment,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, order.OrderItemCommand{
			OfferID:    item.OfferID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Currency:   item.Currency,
			Attributes: item.Attributes,
		})
	}

	created, err := s.orders.CreateOrder(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, order.ErrDuplicateExternalID) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.log.Error("create order", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(created))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("uuid"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order uuid")
		return
	}

	found, err := s.orders.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		s.log.Error("get order", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(found))
}

func (s *Server) handlePatchOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("uuid"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order uuid")
		return
	}

	var req patchOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patched, err := s.orders.PatchOrder(r.Context(), id, &order.PatchOrderCommand{
		TrackingNumbers:    req.TrackingNumbers,
		Status:             req.Status,
		InternalNotes:      req.InternalNotes,
		CustomerComment:    req.CustomerComment,
		AcceptedAt:         req.AcceptedAt,
		CompletedAt:        req.CompletedAt,
		ShippedAt:          req.ShippedAt,
		DeliveredAt:        req.DeliveredAt,
		DeliveryMethodID:   req.DeliveryMethodID,
		DeliveryMethodName: req.DeliveryMethodName,
		PickupPointID:      req.PickupPointID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		s.log.Error("patch order", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to patch order")
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(patched))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "size", 100)
	page := queryInt(r, "page", 0)

	orders, err := s.orders.ListOrders(r.Context(), limit, page*limit)
	if err != nil {
		s.log.Error("list orders", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	responses := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		responses = append(responses, toOrderResponse(o))
	}
	respondJSON(w, http.StatusOK, responses)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
