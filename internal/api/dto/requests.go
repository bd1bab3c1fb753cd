package dto

import "delivery-ops-service/internal/domain"

type OptimizeRouteRequest struct {
	Stops []domain.DeliveryStop `json:"stops"`
	Start *domain.Coordinates   `json:"start"`
}

type DriverRouteRequest struct {
	Start *domain.Coordinates `json:"start"`
}

type StartShiftRequest struct {
	DriverID   string `json:"driverId"`
	DriverName string `json:"driverName"`
	Location   string `json:"location"`
}

type EndShiftRequest struct {
	ShiftID  string `json:"shiftId"`
	DriverID string `json:"driverId"`
	Location string `json:"location"`
}

type StartBreakRequest struct {
	DriverID string `json:"driverId"`
	ShiftID  string `json:"shiftId"`
	Type     string `json:"type"`
}

type EndBreakRequest struct {
	BreakID  string `json:"breakId"`
	DriverID string `json:"driverId"`
}

type UpdateStatusRequest struct {
	Status       string `json:"status"`
	Notes        string `json:"notes"`
	DelayMinutes int    `json:"delayMinutes"`
	CancelReason string `json:"cancelReason"`
	ConfirmedBy  string `json:"confirmedBy"`
	DriverID     string `json:"driverId"`
}

type CashPaymentRequest struct {
	ConfirmedBy string `json:"confirmedBy"`
}

type UndoDeliveryRequest struct {
	Note string `json:"note"`
}
