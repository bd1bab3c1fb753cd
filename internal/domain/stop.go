package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DeliveryStop is one order's delivery target for routing purposes.
// Coordinates are resolved lazily by the geocoder when absent.
type DeliveryStop struct {
	OrderID            string       `json:"orderId"`
	Address            string       `json:"address"`
	Coordinates        *Coordinates `json:"coordinates,omitempty"`
	CustomerName       string       `json:"customerName"`
	DeliveryTimeWindow string       `json:"deliveryTimeWindow"`
	Priority           int          `json:"priority"`
}

// Priority buckets; lower values are more urgent.
const (
	PriorityMorning   = 1
	PriorityMidday    = 2
	PriorityAfternoon = 3
	PriorityEvening   = 4
	PriorityUnknown   = 5
)

// PriorityFromWindow derives a stop priority from a "HH:MM-HH:MM" window label.
// Earlier windows rank higher (smaller number).
func PriorityFromWindow(window string) int {
	start, _, _ := strings.Cut(strings.TrimSpace(window), "-")
	minutes, ok := clockMinutes(start)
	if !ok {
		return PriorityUnknown
	}

	switch {
	case minutes < 12*60:
		return PriorityMorning
	case minutes < 15*60:
		return PriorityMidday
	case minutes < 18*60:
		return PriorityAfternoon
	default:
		return PriorityEvening
	}
}

func clockMinutes(s string) (int, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// ShiftClock moves an "HH:MM" label by minutes, wrapping at midnight.
// Labels that do not parse are returned unchanged.
func ShiftClock(label string, minutes int) string {
	m, ok := clockMinutes(label)
	if !ok {
		return label
	}
	m = ((m+minutes)%(24*60) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
