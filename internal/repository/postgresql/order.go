package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/monmat/order-manager/internal/db"
	"github.com/monmat/order-manager/internal/repository"
)

const uniqueViolationCode = "23505"

type OrderRepo struct {
	db db.DB
}

func NewOrderRepo(db db.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create inserts the order together with its items in one transaction.
// Unique violations on external_order_id and custom_id are mapped to
// repository sentinel errors so callers can tell a benign re-sync from a
// sequence collision.
func (r *OrderRepo) Create(ctx context.Context, order *repository.Order) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	err = tx.ExecQueryRow(ctx, `
        INSERT INTO orders (
            uuid, external_order_id, custom_id, status,
            email, phone_number, username, is_guest,
            bought_at,
            total_paid_amount, paid_currency, payment_at,
            shipping_cost, shipping_cost_currency,
            delivery_method_id, delivery_method_name, pickup_point_id, is_smart,
            needs_invoice, invoice_details,
            shipping_address, customer_comment,
            created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
                  $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
        RETURNING sys_id
    `, order.UUID, order.ExternalOrderID, order.CustomID, order.Status,
		order.Email, order.PhoneNumber, order.Username, order.IsGuest,
		order.BoughtAt,
		order.TotalPaidAmount, order.PaidCurrency, order.PaymentAt,
		order.ShippingCost, order.ShippingCostCurrency,
		order.DeliveryMethodID, order.DeliveryMethodName, order.PickupPointID, order.IsSmart,
		order.NeedsInvoice, order.InvoiceDetails,
		order.ShippingAddress, order.CustomerComment,
		order.CreatedAt, order.UpdatedAt,
	).Scan(&order.SysID)
	if err != nil {
		return mapUniqueViolation(err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderSysID = order.SysID
		err = tx.ExecQueryRow(ctx, `
            INSERT INTO order_items (
                order_sys_id, external_offer_id, name, quantity, unit_price, currency, attributes
            ) VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id
        `, item.OrderSysID, item.ExternalOfferID, item.Name, item.Quantity,
			item.UnitPrice, item.Currency, item.Attributes,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *OrderRepo) GetByUUID(ctx context.Context, id uuid.UUID) (*repository.Order, error) {
	var order repository.Order
	err := r.db.Get(ctx, &order, "SELECT * FROM orders WHERE uuid = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) GetByExternalID(ctx context.Context, externalID string) (*repository.Order, error) {
	var order repository.Order
	err := r.db.Get(ctx, &order, "SELECT * FROM orders WHERE external_order_id = $1", externalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// LastInPeriod returns the most recently issued order whose custom id starts
// with the given period prefix, by surrogate id descending.
func (r *OrderRepo) LastInPeriod(ctx context.Context, periodPrefix string) (*repository.Order, error) {
	var order repository.Order
	err := r.db.Get(ctx, &order,
		"SELECT * FROM orders WHERE custom_id LIKE $1 || '/%' ORDER BY sys_id DESC LIMIT 1",
		periodPrefix)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Update rewrites the mutable operational fields. customId, externalId and
// items are never touched here.
func (r *OrderRepo) Update(ctx context.Context, order *repository.Order) error {
	_, err := r.db.Exec(ctx, `
        UPDATE orders
        SET
            status = $1,
            tracking_numbers = $2,
            internal_notes = $3,
            customer_comment = $4,
            accepted_at = $5,
            shipped_at = $6,
            delivered_at = $7,
            completed_at = $8,
            delivery_method_id = $9,
            delivery_method_name = $10,
            pickup_point_id = $11,
            updated_at = $12
        WHERE sys_id = $13
    `, order.Status, order.TrackingNumbers, order.InternalNotes, order.CustomerComment,
		order.AcceptedAt, order.ShippedAt, order.DeliveredAt, order.CompletedAt,
		order.DeliveryMethodID, order.DeliveryMethodName, order.PickupPointID,
		order.UpdatedAt, order.SysID)
	return err
}

func (r *OrderRepo) List(ctx context.Context, limit, offset int) ([]*repository.Order, error) {
	var orders []*repository.Order
	err := r.db.Select(ctx, &orders,
		"SELECT * FROM orders ORDER BY sys_id DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepo) loadItems(ctx context.Context, order *repository.Order) error {
	return r.db.Select(ctx, &order.Items,
		"SELECT * FROM order_items WHERE order_sys_id = $1 ORDER BY id", order.SysID)
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return fmt.Errorf("insert order: %w", err)
	}
	switch pgErr.ConstraintName {
	case "orders_external_order_id_key":
		return repository.ErrExternalIDConflict
	case "orders_custom_id_key":
		return repository.ErrCustomIDConflict
	default:
		return fmt.Errorf("insert order: %w", err)
	}
}
