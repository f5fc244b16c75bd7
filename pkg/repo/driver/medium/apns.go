package medium

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tapandstamp/pkg/consts"
	"tapandstamp/utilities"
	"tapandstamp/utilities/http_client"
	"tapandstamp/utilities/jwt"
)

const defaultPushTimeout = 10 * time.Second

// Wallet only needs a wake-up; it fetches the fresh pass itself.
var emptyPayload = []byte("{}")

type APNsConfig struct {
	KeyPath    string
	KeyData    []byte
	KeyID      string
	TeamID     string
	Production bool
	Timeout    time.Duration
	// Endpoint overrides the APNs base URL.
	Endpoint string
}

// PushTokenLookup lists the APNs push tokens registered for a member's pass.
type PushTokenLookup interface {
	PushTokens(ctx context.Context, memberID, passTypeID string) ([]string, error)
}

type PushDeliveryError struct {
	PushToken string `json:"pushToken"`
	Status    int    `json:"status,omitempty"`
	Reason    string `json:"reason"`
}

func (e PushDeliveryError) Error() string {
	return fmt.Sprintf("apns push to %s failed: %s", maskToken(e.PushToken), e.Reason)
}

type PushResult struct {
	Sent     int                 `json:"sent"`
	Failed   int                 `json:"failed"`
	Skipped  bool                `json:"skipped"`
	Failures []PushDeliveryError `json:"failures,omitempty"`
}

type APNsDispatcher struct {
	client   *http.Client
	tokens   *jwt.TokenProvider
	endpoint string
	timeout  time.Duration
}

var apnsObj *APNsDispatcher

func GetAPNsClient() *APNsDispatcher {
	return apnsObj
}

func InitAPNs(cfg APNsConfig) error {
	dispatcher, err := NewAPNsDispatcher(cfg, jwt.NewTokenCache())
	if err != nil {
		return err
	}

	apnsObj = dispatcher

	return nil
}

func NewAPNsDispatcher(cfg APNsConfig, tokenCache jwt.TokenCache) (*APNsDispatcher, error) {
	key, err := jwt.LoadSigningKey(cfg.KeyPath, cfg.KeyData)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		host := consts.APNsHostSandbox
		if cfg.Production {
			host = consts.APNsHostProduction
		}
		endpoint = "https://" + host
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}

	return &APNsDispatcher{
		client:   http_client.GetHTTP2Client(),
		tokens:   jwt.NewTokenProvider(key, cfg.KeyID, cfg.TeamID, tokenCache),
		endpoint: endpoint,
		timeout:  timeout,
	}, nil
}

// WithHTTPClient replaces the HTTP/2 client used for delivery.
func (d *APNsDispatcher) WithHTTPClient(client *http.Client) *APNsDispatcher {
	d.client = client
	return d
}

// WithClock replaces the clock used to age provider tokens.
func (d *APNsDispatcher) WithClock(now func() time.Time) *APNsDispatcher {
	d.tokens.WithClock(now)
	return d
}

// SendPassUpdate asks APNs to wake Wallet on one device so it refetches the pass.
func (d *APNsDispatcher) SendPassUpdate(ctx context.Context, pushToken, passTypeID string) error {
	token, err := d.tokens.Token()
	if err != nil {
		return PushDeliveryError{PushToken: pushToken, Reason: fmt.Sprintf("provider token: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/3/device/"+pushToken, bytes.NewReader(emptyPayload))
	if err != nil {
		return PushDeliveryError{PushToken: pushToken, Reason: err.Error()}
	}
	req.Header.Set("authorization", "bearer "+token)
	req.Header.Set("apns-topic", passTypeID)
	req.Header.Set("apns-push-type", "background")
	req.Header.Set("content-type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return PushDeliveryError{PushToken: pushToken, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	return PushDeliveryError{PushToken: pushToken, Status: resp.StatusCode, Reason: failureReason(resp)}
}

// SendPassUpdateToAllDevices pushes to every registered device one after another.
// Per-device failures are collected, never returned.
func (d *APNsDispatcher) SendPassUpdateToAllDevices(ctx context.Context, memberID, passTypeID string, lookup PushTokenLookup) PushResult {
	log := utilities.NewLoggerWithFields("apns.SendPassUpdateToAllDevices", map[string]interface{}{
		"member": memberID,
	})

	pushTokens, err := lookup.PushTokens(ctx, memberID, passTypeID)
	if err != nil {
		log.WithError(err).Error("failed to list push registrations")
		return PushResult{Skipped: true}
	}

	var result PushResult
	for _, pushToken := range pushTokens {
		if err := d.SendPassUpdate(ctx, pushToken, passTypeID); err != nil {
			log.WithError(err).Warn("pass update push failed")

			result.Failed++
			if delivery, ok := err.(PushDeliveryError); ok {
				result.Failures = append(result.Failures, delivery)
			}
			continue
		}
		result.Sent++
	}

	log.Debugf("pass update pushed to %d of %d devices", result.Sent, len(pushTokens))

	return result
}

func failureReason(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apnsErr struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &apnsErr); err == nil && apnsErr.Reason != "" {
		return apnsErr.Reason
	}
	return fmt.Sprintf("APNs returned status %d", resp.StatusCode)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "…"
}
