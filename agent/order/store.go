// Package order persists finalized orders and owns the checkout
// finalization step.
package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/demostore/cod-agent/agent/contract"
)

// Customer mirrors the storefront customers table. The agent only
// needs the identity row and the lifetime-value counter.
type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID            int64     `bun:"id,pk,autoincrement"`
	Phone         string    `bun:"phone"`
	Platform      string    `bun:"platform"`
	LifetimeValue float64   `bun:"lifetime_value"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

// Row is the persisted order record. Line items are stored as a JSON
// snapshot; the row never changes after insertion.
type Row struct {
	bun.BaseModel `bun:"table:orders"`

	ID             string    `bun:"id,pk"`
	CustomerID     string    `bun:"customer_id"`
	ProductData    string    `bun:"product_data"`
	TotalPrice     float64   `bun:"total_price"`
	Status         string    `bun:"status"`
	SourcePlatform string    `bun:"source_platform"`
	CustomerName   string    `bun:"customer_name"`
	CustomerPhone  string    `bun:"customer_phone"`
	Address        string    `bun:"address"`
	City           string    `bun:"city"`
	CreatedAt      time.Time `bun:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at"`
}

// PostgresStore writes orders to the storefront database.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// CreateOrder inserts the order snapshot and bumps the customer's
// lifetime value inside one transaction. It returns the new order id.
func (s *PostgresStore) CreateOrder(ctx context.Context, req contractx.OrderRequest) (string, error) {
	lines, err := json.Marshal(req.Lines)
	if err != nil {
		return "", fmt.Errorf("marshal order lines: %w", err)
	}

	orderID := uuid.NewString()
	now := s.now().UTC()

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		customer, err := s.getOrCreateCustomer(ctx, tx, req.CustomerPhone, req.SourceChannel, now)
		if err != nil {
			return err
		}

		row := &Row{
			ID:             orderID,
			CustomerID:     fmt.Sprintf("%d", customer.ID),
			ProductData:    string(lines),
			TotalPrice:     req.TotalPrice,
			Status:         "pending",
			SourcePlatform: req.SourceChannel,
			CustomerName:   req.CustomerName,
			CustomerPhone:  req.CustomerPhone,
			Address:        req.Address,
			City:           req.City,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		_, err = tx.NewUpdate().
			Model((*Customer)(nil)).
			Set("lifetime_value = lifetime_value + ?", req.TotalPrice).
			Set("updated_at = ?", now).
			Where("id = ?", customer.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update customer lifetime value: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrPersistence, err)
	}

	return orderID, nil
}

func (s *PostgresStore) getOrCreateCustomer(
	ctx context.Context,
	tx bun.Tx,
	phone string,
	platform string,
	now time.Time,
) (*Customer, error) {
	customer := new(Customer)
	err := tx.NewSelect().
		Model(customer).
		Where("phone = ?", phone).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}

	customer = &Customer{
		Phone:     phone,
		Platform:  platform,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := tx.NewInsert().Model(customer).Exec(ctx); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return customer, nil
}
