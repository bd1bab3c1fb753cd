package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSMS sends customer notifications as text messages.
type TwilioSMS struct {
	api  messageCreator
	from string
	log  *slog.Logger
}

func NewTwilioSMS(accountSID, authToken, from string, log *slog.Logger) *TwilioSMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMS{api: client.Api, from: from, log: log}
}

func (s *TwilioSMS) Notify(ctx context.Context, phone string, kind ports.TemplateKind, params map[string]string) (err error) {
	defer obs.Time(ctx, s.log, "notify.sms")(&err)

	body, err := Render(kind, params)
	if err != nil {
		return err
	}

	msg := &twilioApi.CreateMessageParams{}
	msg.SetTo(phone)
	msg.SetFrom(s.from)
	msg.SetBody(body)

	resp, err := s.api.CreateMessage(msg)
	if err != nil {
		return fmt.Errorf("send sms %s to %s: %w", kind, phone, err)
	}
	if resp != nil && resp.Sid != nil {
		s.log.Debug("sms sent", "sid", *resp.Sid, "kind", kind)
	}
	return nil
}
