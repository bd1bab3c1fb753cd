package ordersource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

const wooAPIPath = "/wp-json/wc/v3"

// WooCommerce is the live order source backed by the WooCommerce REST API.
type WooCommerce struct {
	session *http.Client
	baseURL string
	key     string
	secret  string
	loc     *time.Location
	now     func() time.Time
	log     *slog.Logger
}

func NewWooCommerce(baseURL, key, secret string, loc *time.Location, log *slog.Logger) (*WooCommerce, error) {
	if baseURL == "" || key == "" || secret == "" {
		return nil, errors.New("woocommerce: base url, consumer key and consumer secret are required")
	}
	if loc == nil {
		loc = time.Local
	}

	return &WooCommerce{
		session: &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/") + wooAPIPath,
		key:     key,
		secret:  secret,
		loc:     loc,
		now:     time.Now,
		log:     log,
	}, nil
}

type wooAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type wooMeta struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type wooOrder struct {
	ID            int        `json:"id"`
	Status        string     `json:"status"`
	Total         string     `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	DatePaid      *string    `json:"date_paid"`
	CustomerNote  string     `json:"customer_note"`
	Billing       wooAddress `json:"billing"`
	Shipping      wooAddress `json:"shipping"`
	LineItems     []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	} `json:"line_items"`
	MetaData []wooMeta `json:"meta_data"`
}

type wooProduct struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	StockStatus string `json:"stock_status"`
	Categories  []struct {
		Name string `json:"name"`
	} `json:"categories"`
	MetaData []wooMeta `json:"meta_data"`
}

// Meta keys used by the delivery plugin on the shop side.
const (
	metaDeliveryWindow = "delivery_time_window"
	metaDriverID       = "assigned_driver_id"
	metaLat            = "delivery_lat"
	metaLng            = "delivery_lng"
	metaSource         = "farmer_or_source"
)

func (w *WooCommerce) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := w.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(w.key, w.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.session.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ports.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// ListTodaysOrders returns orders created since local midnight that still
// need delivery or were delivered today.
func (w *WooCommerce) ListTodaysOrders(ctx context.Context) (_ []*domain.Order, err error) {
	defer obs.Time(ctx, w.log, "woocommerce.ListTodaysOrders")(&err)

	now := w.now().In(w.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, w.loc)

	q := url.Values{}
	q.Set("after", midnight.Format(time.RFC3339))
	q.Set("per_page", "100")
	q.Set("status", "processing,on-hold,completed,cancelled")

	var raw []wooOrder
	if err := w.do(ctx, http.MethodGet, "/orders", q, nil, &raw); err != nil {
		return nil, fmt.Errorf("list todays orders: %w", err)
	}

	out := make([]*domain.Order, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// UpdateOrderStatus mirrors terminal statuses onto the shop order and
// records every change as an order note.
func (w *WooCommerce) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, note string) (err error) {
	defer obs.Time(ctx, w.log, "woocommerce.UpdateOrderStatus")(&err)

	if wooStatus, ok := toWooStatus(status); ok {
		if err := w.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id), nil, map[string]string{"status": wooStatus}, nil); err != nil {
			return fmt.Errorf("update order %s status: %w", id, err)
		}
	}

	msg := fmt.Sprintf("Delivery status: %s", status)
	if strings.TrimSpace(note) != "" {
		msg += " (" + strings.TrimSpace(note) + ")"
	}
	return w.AddOrderNote(ctx, id, msg)
}

func (w *WooCommerce) AddOrderNote(ctx context.Context, id, note string) error {
	body := map[string]any{"note": note, "customer_note": false}
	if err := w.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(id)+"/notes", nil, body, nil); err != nil {
		return fmt.Errorf("add note to order %s: %w", id, err)
	}
	return nil
}

func (w *WooCommerce) GetProductCatalog(ctx context.Context) (_ []ports.Product, err error) {
	defer obs.Time(ctx, w.log, "woocommerce.GetProductCatalog")(&err)

	q := url.Values{}
	q.Set("per_page", "100")
	q.Set("status", "publish")

	var raw []wooProduct
	if err := w.do(ctx, http.MethodGet, "/products", q, nil, &raw); err != nil {
		return nil, fmt.Errorf("product catalog: %w", err)
	}

	out := make([]ports.Product, 0, len(raw))
	for _, p := range raw {
		price, _ := strconv.ParseFloat(p.Price, 64)
		prod := ports.Product{
			ID:      strconv.Itoa(p.ID),
			Name:    p.Name,
			Price:   price,
			Source:  metaString(p.MetaData, metaSource),
			InStock: p.StockStatus == "instock",
		}
		if len(p.Categories) > 0 {
			prod.Category = p.Categories[0].Name
		}
		out = append(out, prod)
	}
	return out, nil
}

func (r wooOrder) toDomain() *domain.Order {
	addr := r.Shipping
	if strings.TrimSpace(addr.Address1) == "" {
		addr = r.Billing
	}

	total, _ := strconv.ParseFloat(r.Total, 64)
	method := domain.ParsePaymentMethod(r.PaymentMethod)

	o := &domain.Order{
		ID:                 strconv.Itoa(r.ID),
		CustomerName:       strings.TrimSpace(r.Billing.FirstName + " " + r.Billing.LastName),
		CustomerPhone:      firstNonEmpty(addr.Phone, r.Billing.Phone),
		CustomerEmail:      r.Billing.Email,
		Address:            joinNonEmpty(", ", addr.Address1, addr.Address2, addr.City),
		PostalCode:         addr.Postcode,
		DeliveryTimeWindow: metaString(r.MetaData, metaDeliveryWindow),
		Status:             fromWooStatus(r.Status),
		TotalAmount:        total,
		PaymentMethod:      method,
		PaymentStatus:      domain.PaymentUnpaid,
		AssignedDriverID:   metaString(r.MetaData, metaDriverID),
	}

	if r.DatePaid != nil && !method.IsCash() {
		o.PaymentStatus = domain.PaymentPaid
	}

	lat, latErr := strconv.ParseFloat(metaString(r.MetaData, metaLat), 64)
	lng, lngErr := strconv.ParseFloat(metaString(r.MetaData, metaLng), 64)
	if latErr == nil && lngErr == nil {
		if c := (domain.Coordinates{Lat: lat, Lng: lng}); c.Valid() {
			o.Coordinates = &c
		}
	}

	for _, li := range r.LineItems {
		o.Items = append(o.Items, domain.OrderItem{Name: li.Name, Quantity: li.Quantity})
	}
	if note := strings.TrimSpace(r.CustomerNote); note != "" {
		o.Notes = []string{note}
	}

	return o
}

func fromWooStatus(s string) domain.OrderStatus {
	switch s {
	case "completed":
		return domain.StatusDelivered
	case "cancelled", "refunded", "failed":
		return domain.StatusCancelled
	default:
		return domain.StatusPending
	}
}

// Intermediate delivery statuses have no shop equivalent and only produce a note.
func toWooStatus(s domain.OrderStatus) (string, bool) {
	switch s {
	case domain.StatusDelivered:
		return "completed", true
	case domain.StatusCancelled:
		return "cancelled", true
	default:
		return "", false
	}
}

func metaString(meta []wooMeta, key string) string {
	for _, m := range meta {
		if m.Key != key {
			continue
		}
		switch v := m.Value.(type) {
		case string:
			return strings.TrimSpace(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func joinNonEmpty(sep string, vals ...string) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
