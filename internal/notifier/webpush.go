package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/julianstephens/habita/internal/logger"
)

var sendPushFunc = webpush.SendNotificationWithContext

// VAPID holds the application server keys used to sign push messages.
type VAPID struct {
	Subject    string
	PublicKey  string
	PrivateKey string
}

func (v VAPID) configured() bool {
	return v.Subject != "" && v.PublicKey != "" && v.PrivateKey != ""
}

// pushPayload is what the service worker of a subscribed client receives.
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

// WebPushTransport delivers notifications to every browser subscription listed
// in a JSON file of webpush.Subscription objects.
type WebPushTransport struct {
	vapid            VAPID
	subscriptionFile string
}

func NewWebPushTransport(vapid VAPID, subscriptionFile string) (*WebPushTransport, error) {
	if !vapid.configured() {
		return nil, errors.New("web push requires a VAPID subject, public key and private key")
	}
	if subscriptionFile == "" {
		return nil, errors.New("web push requires a subscription file")
	}
	return &WebPushTransport{vapid: vapid, subscriptionFile: subscriptionFile}, nil
}

func (w *WebPushTransport) Name() string {
	return "webpush"
}

// Subscriptions reads the subscription file.
func (w *WebPushTransport) Subscriptions() ([]webpush.Subscription, error) {
	data, err := os.ReadFile(w.subscriptionFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read push subscriptions: %w", err)
	}
	var subs []webpush.Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("failed to parse push subscriptions: %w", err)
	}
	return subs, nil
}

func (w *WebPushTransport) Send(ctx context.Context, msg Message) error {
	subs, err := w.Subscriptions()
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return errors.New("no push subscriptions configured")
	}

	payload, err := json.Marshal(pushPayload{Title: msg.Title, Body: msg.Body, Tag: msg.Tag})
	if err != nil {
		return err
	}

	options := &webpush.Options{
		Subscriber:      w.vapid.Subject,
		VAPIDPublicKey:  w.vapid.PublicKey,
		VAPIDPrivateKey: w.vapid.PrivateKey,
		TTL:             30,
	}

	var errs []error
	sent := 0
	for i := range subs {
		resp, err := sendPushFunc(ctx, payload, &subs[i], options)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if resp.StatusCode >= http.StatusBadRequest {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			errs = append(errs, fmt.Errorf("push service returned %d: %s", resp.StatusCode, string(body)))
			continue
		}
		resp.Body.Close()
		sent++
	}

	logger.Debug("Web push sent", "subscriptions", len(subs), "success", sent, "failed", len(errs))
	if sent == 0 {
		return fmt.Errorf("failed to send any push notifications: %w", errors.Join(errs...))
	}
	return nil
}
