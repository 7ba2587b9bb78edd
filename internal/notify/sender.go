package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Sender delivers one text message to one phone number in international
// form.  Any error means the message was not delivered.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Channels pairs the rich messaging-app channel with the baseline SMS one.
type Channels struct {
	Rich     Sender
	Baseline Sender
}

// TwilioConfig holds credentials and sender numbers for Twilio.
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	SMSFrom      string
	WhatsAppFrom string
	// Timeout bounds each REST call; zero means 20s.
	Timeout time.Duration
}

// Enabled reports whether credentials are present.
func (c TwilioConfig) Enabled() bool { return c.AccountSID != "" && c.AuthToken != "" }

// messageCreator is the slice of the Twilio REST API the sender uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender sends through the Twilio Messages API.  With WhatsApp set it
// addresses both ends with the "whatsapp:" scheme.
type TwilioSender struct {
	api      messageCreator
	from     string
	whatsApp bool
}

// NewTwilioChannels builds the SMS and WhatsApp senders sharing one REST
// client.
func NewTwilioChannels(cfg TwilioConfig) Channels {
	client := newTwilioClient(cfg)
	return Channels{
		Rich:     &TwilioSender{api: client.Api, from: cfg.WhatsAppFrom, whatsApp: true},
		Baseline: &TwilioSender{api: client.Api, from: cfg.SMSFrom},
	}
}

// newTwilioClient returns a REST client whose HTTP calls are bounded by
// cfg.Timeout.  CreateMessage takes no context, so this timeout is what
// stops a hung request.
func newTwilioClient(cfg TwilioConfig) *twilio.RestClient {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = sendTimeout
	}
	client.SetTimeout(timeout)
	return client
}

func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if s.from == "" {
		return errors.New("twilio sender number not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	from := s.from
	if s.whatsApp {
		from, to = "whatsapp:"+from, "whatsapp:"+to
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)
	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if resp != nil && resp.Status != nil && (*resp.Status == "failed" || *resp.Status == "undelivered") {
		return fmt.Errorf("twilio message status %s", *resp.Status)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.  It is
// used when no Twilio credentials are configured.
type LogSender struct {
	Channel string
	Log     *zap.Logger
}

func (s LogSender) Send(_ context.Context, to, body string) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("message (not delivered, no provider configured)",
		zap.String("channel", s.Channel), zap.String("to", to), zap.String("body", body))
	return nil
}

// NewChannels returns Twilio channels when credentials are present and log
// channels otherwise.
func NewChannels(cfg TwilioConfig, log *zap.Logger) Channels {
	if cfg.Enabled() {
		return NewTwilioChannels(cfg)
	}
	return Channels{
		Rich:     LogSender{Channel: "whatsapp", Log: log},
		Baseline: LogSender{Channel: "sms", Log: log},
	}
}
