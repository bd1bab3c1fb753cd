package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		kind   ports.TemplateKind
		params map[string]string
		want   string
	}{
		{
			name:   "on route with eta",
			kind:   ports.TemplateOnRoute,
			params: map[string]string{"customerName": "Jana", "orderId": "1001", "eta": "10:30"},
			want:   "Hi Jana, your order #1001 is on its way. Expected arrival around 10:30.",
		},
		{
			name:   "delayed",
			kind:   ports.TemplateDelayed,
			params: map[string]string{"customerName": "Jana", "orderId": "1001", "eta": "10:50", "delayMinutes": "20"},
			want:   "Hi Jana, your order #1001 is running late by about 20 minutes. New arrival time: 10:50.",
		},
		{
			name:   "delivered without name",
			kind:   ports.TemplateDelivered,
			params: map[string]string{"orderId": "1001"},
			want:   "Hi there, your order #1001 has been delivered. Thank you!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.kind, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Render("cancelled", nil)
	assert.Error(t, err)
}

type fakeTwilio struct {
	got []*twilioApi.CreateMessageParams
	err error
}

func (f *fakeTwilio) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.got = append(f.got, p)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioSMS(t *testing.T) {
	api := &fakeTwilio{}
	sms := &TwilioSMS{api: api, from: "+420700000000", log: obs.Discard()}

	err := sms.Notify(context.Background(), "+420600000001", ports.TemplateDelivered, map[string]string{"orderId": "9"})
	require.NoError(t, err)

	require.Len(t, api.got, 1)
	assert.Equal(t, "+420600000001", *api.got[0].To)
	assert.Equal(t, "+420700000000", *api.got[0].From)
	assert.Contains(t, *api.got[0].Body, "#9 has been delivered")

	api.err = errors.New("21211 invalid number")
	err = sms.Notify(context.Background(), "bad", ports.TemplateOnRoute, nil)
	assert.ErrorContains(t, err, "invalid number")
}

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	data     [][]byte
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	c.data = append(c.data, data)
	return nil
}

func TestNATSPush(t *testing.T) {
	conn := &fakeConn{}
	push := &NATSPush{conn: conn, log: obs.Discard()}

	err := push.Notify(context.Background(), "+420600000001", ports.TemplateDelayed,
		map[string]string{"orderId": "7", "delayMinutes": "15"})
	require.NoError(t, err)

	require.Equal(t, []string{"delivery.push.delayed"}, conn.subjects)

	var msg pushMessage
	require.NoError(t, json.Unmarshal(conn.data[0], &msg))
	assert.Equal(t, "+420600000001", msg.Phone)
	assert.Equal(t, ports.TemplateDelayed, msg.Kind)
	assert.Contains(t, msg.Text, "about 15 minutes")
}

func TestNATSEventsHonoursCancelledContext(t *testing.T) {
	conn := &fakeConn{}
	events := &NATSEvents{conn: conn}

	require.NoError(t, events.Publish(context.Background(), "delivery.order.status", []byte(`{}`)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, events.Publish(ctx, "delivery.order.status", []byte(`{}`)), context.Canceled)
	assert.Len(t, conn.subjects, 1)
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, string, ports.TemplateKind, map[string]string) error {
	return f.err
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	down := failingNotifier{err: errors.New("down")}
	up := failingNotifier{}

	assert.NoError(t, Multi{down, up}.Notify(ctx, "1", ports.TemplateOnRoute, nil), "one channel is enough")
	assert.Error(t, Multi{down, down}.Notify(ctx, "1", ports.TemplateOnRoute, nil))
	assert.NoError(t, Multi{}.Notify(ctx, "1", ports.TemplateOnRoute, nil))
	assert.NoError(t, NewLog(obs.Discard()).Notify(ctx, "1", ports.TemplateOnRoute, nil))
}

func TestPostmarkReceipts(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email", r.URL.Path)
		assert.Equal(t, "server-token", r.Header.Get("X-Postmark-Server-Token"))
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &got))
		_, _ = io.WriteString(w, `{"To":"jana@example.com","MessageID":"abc","ErrorCode":0,"Message":"OK"}`)
	}))
	defer srv.Close()

	r := NewPostmarkReceipts("server-token", "orders@farm.example", obs.Discard())
	r.client.BaseURL = srv.URL

	o := &domain.Order{
		ID:            "1001",
		Address:       "Narodni 2",
		CustomerEmail: "jana@example.com",
		Items:         []domain.OrderItem{{Name: "Eggs & Ham", Quantity: 2}},
		TotalAmount:   349.5,
		PaymentMethod: domain.PaymentCashOnDelivery,
		PaymentStatus: domain.PaymentCashConfirmed,
	}
	require.NoError(t, r.SendReceipt(context.Background(), o))

	assert.Equal(t, "jana@example.com", got["To"])
	assert.Equal(t, "orders@farm.example", got["From"])
	assert.Equal(t, "Receipt for order #1001", got["Subject"])
	assert.Contains(t, got["TextBody"], "2 x Eggs & Ham")
	assert.Contains(t, got["HtmlBody"], "Eggs &amp; Ham")
	assert.Contains(t, got["TextBody"], "349.50")
}

func TestPostmarkReceiptsRequiresEmail(t *testing.T) {
	r := NewPostmarkReceipts("server-token", "orders@farm.example", obs.Discard())
	assert.Error(t, r.SendReceipt(context.Background(), &domain.Order{ID: "1"}))
}
