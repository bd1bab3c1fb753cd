package dto

import (
	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/ports"
)

// Every response body carries success; payload fields sit beside it.

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

type HealthResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

type OrderResponse struct {
	Success bool          `json:"success"`
	Order   *domain.Order `json:"order"`
}

type ListOrdersResponse struct {
	Success    bool                 `json:"success"`
	Orders     []*domain.Order      `json:"orders"`
	Count      int                  `json:"count"`
	DataSource ports.DataSourceMode `json:"dataSource"`
}

type SyncResponse struct {
	Success    bool                 `json:"success"`
	Imported   int                  `json:"imported"`
	DataSource ports.DataSourceMode `json:"dataSource"`
}

type ProductsResponse struct {
	Success    bool                 `json:"success"`
	Products   []ports.Product      `json:"products"`
	DataSource ports.DataSourceMode `json:"dataSource"`
}

// RouteResponse flattens the optimization result into the envelope.
type RouteResponse struct {
	Success bool `json:"success"`
	*domain.RouteOptimizationResult
}

type ShiftResponse struct {
	Success bool          `json:"success"`
	Shift   *domain.Shift `json:"shift"`
}

type BreakResponse struct {
	Success bool          `json:"success"`
	Break   *domain.Break `json:"break"`
}

type SummaryResponse struct {
	Success bool                `json:"success"`
	ShiftID string              `json:"shiftId"`
	Summary domain.ShiftSummary `json:"summary"`
}
