// Package twiliowhatsapp wraps the Twilio API surface VoicePipe depends on:
// authenticated media downloads, inbound webhook signature validation, and
// TwiML reply documents.
package twiliowhatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	twilioclient "github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
)

// DefaultDownloadTimeout bounds a single media download.
const DefaultDownloadTimeout = 30 * time.Second

// MediaDownloader fetches an inbound message's media attachment.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error)
}

// SignatureValidator checks the X-Twilio-Signature header of an inbound
// webhook request.
type SignatureValidator interface {
	Validate(url string, params map[string]string, signature string) bool
}

// Opts holds configuration options for the Twilio client.
type Opts struct {
	AccountSID string
	AuthToken  string
}

// Option defines a configuration option for the Twilio client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// Client downloads Twilio-hosted media and validates webhook signatures.
type Client struct {
	httpClient *http.Client
	validator  twilioclient.RequestValidator
	accountSID string
	authToken  string
}

// NewClient creates a Twilio client. Credentials fall back to the
// TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN environment variables.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}

	return &Client{
		httpClient: &http.Client{Timeout: DefaultDownloadTimeout},
		validator:  twilioclient.NewRequestValidator(cfg.AuthToken),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
	}, nil
}

// DownloadMedia fetches a media resource using basic authentication against
// the Twilio media host. Non-200 responses are errors; callers degrade them
// to an empty transcript.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Twilio DownloadMedia request failed", "error", err)
		return nil, fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Twilio DownloadMedia unexpected status", "status", resp.StatusCode)
		return nil, fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Twilio DownloadMedia read failed", "error", err)
		return nil, fmt.Errorf("media read failed: %w", err)
	}
	slog.Debug("Twilio DownloadMedia succeeded", "bytes", len(data))
	return data, nil
}

// Validate checks an inbound webhook signature against the request URL and
// its form parameters.
func (c *Client) Validate(url string, params map[string]string, signature string) bool {
	return c.validator.Validate(url, params, signature)
}

// MessageReply renders a TwiML document containing one message with the
// given body and, when mediaURL is non-empty, one media attachment.
func MessageReply(body, mediaURL string) (string, error) {
	message := &twiml.MessagingMessage{}
	inner := []twiml.Element{&twiml.MessagingBody{Message: body}}
	if mediaURL != "" {
		inner = append(inner, &twiml.MessagingMedia{Url: mediaURL})
	}
	message.InnerElements = inner

	doc, err := twiml.Messages([]twiml.Element{message})
	if err != nil {
		return "", fmt.Errorf("failed to render TwiML: %w", err)
	}
	return doc, nil
}
