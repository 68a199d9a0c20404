// Package push delivers web push notifications to household members and runs
// the daily chore reminder sweep.
package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dukerupert/choreledger/internal/model"
	"github.com/dukerupert/choreledger/internal/store"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// ErrNoSubscriptions is returned by SendTest when the user has no endpoints.
var ErrNoSubscriptions = errors.New("no push subscriptions")

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

const defaultIcon = "/icon-192.png"

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             int
}

// Service sends web push notifications and manages subscriptions.
type Service struct {
	cfg    Config
	client webpush.HTTPClient
	users  *store.UserStore
	subs   *store.PushStore
	logger *slog.Logger
}

// NewService creates a push service. A blank subscriber falls back to a
// no-reply address and a zero TTL to one day.
func NewService(db *sql.DB, cfg Config, logger *slog.Logger) *Service {
	if cfg.Subscriber == "" {
		cfg.Subscriber = "mailto:noreply@choreledger.app"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 86400
	}
	return &Service{
		cfg:    cfg,
		client: http.DefaultClient,
		users:  store.NewUserStore(db),
		subs:   store.NewPushStore(db),
		logger: logger.With("component", "push"),
	}
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Enabled reports whether VAPID keys are configured.
func (s *Service) Enabled() bool {
	return s.cfg.VAPIDPublicKey != "" && s.cfg.VAPIDPrivateKey != ""
}

// Send delivers payload to a single subscription. ErrExpired means the
// endpoint is gone for good; any other error is transient.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	if payload.Icon == "" {
		payload.Icon = defaultIcon
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      s.cfg.Subscriber,
		TTL:             s.cfg.TTL,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// Delivery counts the outcome of sending one payload to several endpoints.
type Delivery struct {
	Sent    int `json:"sent"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

func (d *Delivery) add(o Delivery) {
	d.Sent += o.Sent
	d.Expired += o.Expired
	d.Failed += o.Failed
}

// deliver fans payload out to subs. Expired endpoints are removed; other
// failures are logged and skipped.
func (s *Service) deliver(ctx context.Context, subs []model.PushSubscription, payload Payload) Delivery {
	var d Delivery
	for i := range subs {
		sub := &subs[i]
		err := s.Send(ctx, sub, payload)
		switch {
		case err == nil:
			d.Sent++
		case errors.Is(err, ErrExpired):
			d.Expired++
			if err := s.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				s.logger.Error("failed to remove expired subscription", "user_id", sub.UserID, "error", err)
			} else {
				s.logger.Info("removed expired subscription", "user_id", sub.UserID, "subscription_id", sub.ID)
			}
		default:
			d.Failed++
			s.logger.Warn("push delivery failed", "user_id", sub.UserID, "subscription_id", sub.ID, "error", err)
		}
	}
	return d
}

type SubscribeInput struct {
	UserID   int64  `json:"user_id"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Subscribe registers a browser endpoint for a user.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (*model.PushSubscription, error) {
	in.Endpoint = strings.TrimSpace(in.Endpoint)
	if !strings.HasPrefix(in.Endpoint, "https://") && !strings.HasPrefix(in.Endpoint, "http://") {
		return nil, model.Invalid("endpoint", "must be an http(s) URL")
	}
	if in.Keys.P256dh == "" || in.Keys.Auth == "" {
		return nil, model.Invalid("keys", "p256dh and auth are required")
	}
	u, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	if u == nil {
		return nil, model.ErrUserNotFound
	}

	sub, err := s.subs.CreateSubscription(ctx, in.UserID, in.Endpoint, in.Keys.P256dh, in.Keys.Auth)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Info("push subscription registered", "user_id", in.UserID, "subscription_id", sub.ID)
	return sub, nil
}

// Unsubscribe removes every endpoint of a user and reports how many there were.
func (s *Service) Unsubscribe(ctx context.Context, userID int64) (int64, error) {
	n, err := s.subs.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("unsubscribe: %w", err)
	}
	s.logger.Info("push subscriptions removed", "user_id", userID, "count", n)
	return n, nil
}

// SendTest sends a fixed test notification to every endpoint of userID.
func (s *Service) SendTest(ctx context.Context, userID int64) (Delivery, error) {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return Delivery{}, fmt.Errorf("send test notification: %w", err)
	}
	if len(subs) == 0 {
		return Delivery{}, ErrNoSubscriptions
	}
	return s.deliver(ctx, subs, Payload{
		Title: "Test Notification",
		Body:  "If you see this, notifications are working!",
		Tag:   "test",
	}), nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}
