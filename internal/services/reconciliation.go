package services

import (
	"math"

	"delivery-ops-service/internal/domain"
)

// Summarize reconciles the cash a driver must hand over for a set of
// delivered orders. It is pure and may be called for live previews as well as
// authoritatively at shift end.
//
// Cash orders are those paid in cash that reached cash-awaiting or
// cash-confirmed; all of them count towards TotalCashAmount whether confirmed
// or not. Pending cash orders are cash-awaiting ones with no confirmation
// metadata and indicate an anomaly for the operator.
func Summarize(delivered []*domain.Order) domain.ShiftSummary {
	sum := domain.ShiftSummary{
		TotalDelivered: len(delivered),
		CashOrders:     []domain.Order{},
	}

	for _, o := range delivered {
		if o == nil {
			continue
		}

		isCashOrder := o.PaymentMethod.IsCash() &&
			(o.PaymentStatus == domain.PaymentCashAwaiting || o.PaymentStatus == domain.PaymentCashConfirmed)

		if isCashOrder {
			sum.CashOrderCount++
			sum.TotalCashAmount += o.TotalAmount
			sum.CashOrders = append(sum.CashOrders, *o)

			switch {
			case o.PaymentStatus == domain.PaymentCashConfirmed:
				sum.ConfirmedCashOrderCount++
			case o.CashConfirmedAt == nil && o.CashConfirmedBy == "":
				sum.PendingCashOrderCount++
			}
			continue
		}

		if o.PaymentStatus == domain.PaymentPaid || !o.PaymentMethod.IsCash() {
			sum.PaidOrderCount++
		}
	}

	sum.TotalCashAmount = math.Round(sum.TotalCashAmount*100) / 100
	return sum
}
