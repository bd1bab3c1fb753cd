package ports

import (
	"context"

	"delivery-ops-service/internal/domain"
)

type DataSourceMode string

const (
	DataSourceLive     DataSourceMode = "live"
	DataSourceDegraded DataSourceMode = "degraded"
)

type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Source   string  `json:"farmerOrSource,omitempty"`
	InStock  bool    `json:"inStock"`
	Category string  `json:"category,omitempty"`
}

// Port: the upstream system of record for orders (e.g. WooCommerce).
type OrderSource interface {
	ListTodaysOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, note string) error
	AddOrderNote(ctx context.Context, id string, note string) error
	GetProductCatalog(ctx context.Context) ([]Product, error)
}

type TemplateKind string

const (
	TemplateOnRoute   TemplateKind = "on-route"
	TemplateDelayed   TemplateKind = "delayed"
	TemplateDelivered TemplateKind = "delivered"
)

// Port: customer notification sink (SMS, push). Fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, phone string, kind TemplateKind, params map[string]string) error
}

// Port: delivery receipt sender.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, order *domain.Order) error
}

// Port: outbound domain events.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
}

// DataSource is the order source as seen by the core: reads report whether
// they were served live or from the degraded fallback dataset.
type DataSource interface {
	TodaysOrders(ctx context.Context) ([]*domain.Order, DataSourceMode, error)
	ProductCatalog(ctx context.Context) ([]Product, DataSourceMode, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, note string) error
	AddOrderNote(ctx context.Context, id string, note string) error
}
