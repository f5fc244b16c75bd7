package medium

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/require"

	tsjwt "tapandstamp/utilities/jwt"
)

const (
	testPassTypeID = "pass.com.tapandstamp.test"
	testKeyID      = "KEY1234567"
	testTeamID     = "TEAM123456"
)

type staticLookup struct {
	tokens []string
	err    error
}

func (l staticLookup) PushTokens(context.Context, string, string) ([]string, error) {
	return l.tokens, l.err
}

type apnsRecorder struct {
	sync.Mutex
	auths []string
	paths []string
}

func newAPNsServer(t *testing.T, key *ecdsa.PrivateKey, rec *apnsRecorder, handle func(w http.ResponseWriter, token string)) *httptest.Server {
	t.Helper()

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, 2, r.ProtoMajor)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, testPassTypeID, r.Header.Get("apns-topic"))
		require.Equal(t, "background", r.Header.Get("apns-push-type"))

		body, _ := io.ReadAll(r.Body)
		require.Equal(t, "{}", string(body))

		bearer := strings.TrimPrefix(r.Header.Get("authorization"), "bearer ")
		_, err := jwt.Parse(bearer, func(*jwt.Token) (interface{}, error) { return &key.PublicKey, nil })
		require.NoError(t, err)

		rec.Lock()
		rec.auths = append(rec.auths, bearer)
		rec.paths = append(rec.paths, r.URL.Path)
		rec.Unlock()

		handle(w, strings.TrimPrefix(r.URL.Path, "/3/device/"))
	}))
	srv.EnableHTTP2 = true
	srv.StartTLS()
	t.Cleanup(srv.Close)

	return srv
}

func newTestDispatcher(t *testing.T, srv *httptest.Server, keyPEM []byte, timeout time.Duration) *APNsDispatcher {
	t.Helper()
	d, err := NewAPNsDispatcher(APNsConfig{
		KeyData:  keyPEM,
		KeyID:    testKeyID,
		TeamID:   testTeamID,
		Endpoint: srv.URL,
		Timeout:  timeout,
	}, tsjwt.NewTokenCache())
	require.NoError(t, err)
	return d.WithHTTPClient(srv.Client())
}

func apnsKey(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return key, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func TestSendPassUpdateToAllDevices(t *testing.T) {
	key, keyPEM := apnsKey(t)
	rec := &apnsRecorder{}

	srv := newAPNsServer(t, key, rec, func(w http.ResponseWriter, token string) {
		if token == "device-2" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"reason":"BadDeviceToken"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	d := newTestDispatcher(t, srv, keyPEM, 0)

	result := d.SendPassUpdateToAllDevices(context.Background(), "member-1", testPassTypeID,
		staticLookup{tokens: []string{"device-1", "device-2", "device-3"}})

	require.Equal(t, 2, result.Sent)
	require.Equal(t, 1, result.Failed)
	require.False(t, result.Skipped)
	require.Equal(t, []PushDeliveryError{{PushToken: "device-2", Status: http.StatusBadRequest, Reason: "BadDeviceToken"}}, result.Failures)

	require.Equal(t, []string{"/3/device/device-1", "/3/device/device-2", "/3/device/device-3"}, rec.paths)
	require.Len(t, rec.auths, 3)
	require.Equal(t, rec.auths[0], rec.auths[1], "provider token should be reused")
	require.Equal(t, rec.auths[0], rec.auths[2], "provider token should be reused")
}

func TestSendPassUpdateFailures(t *testing.T) {
	key, keyPEM := apnsKey(t)

	tests := []struct {
		name       string
		handle     func(w http.ResponseWriter, token string)
		wantStatus int
		wantReason string
	}{
		{
			name: "reason from body",
			handle: func(w http.ResponseWriter, _ string) {
				w.WriteHeader(http.StatusGone)
				w.Write([]byte(`{"reason":"Unregistered","timestamp":1700000000000}`))
			},
			wantStatus: http.StatusGone,
			wantReason: "Unregistered",
		},
		{
			name: "no body",
			handle: func(w http.ResponseWriter, _ string) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantStatus: http.StatusInternalServerError,
			wantReason: "APNs returned status 500",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAPNsServer(t, key, &apnsRecorder{}, tt.handle)
			d := newTestDispatcher(t, srv, keyPEM, 2*time.Second)

			err := d.SendPassUpdate(context.Background(), "device-1", testPassTypeID)
			require.Error(t, err)

			var delivery PushDeliveryError
			require.True(t, errors.As(err, &delivery))
			require.Equal(t, tt.wantStatus, delivery.Status)
			require.Equal(t, tt.wantReason, delivery.Reason)
		})
	}
}

func TestSendPassUpdateTimeout(t *testing.T) {
	key, keyPEM := apnsKey(t)
	release := make(chan struct{})
	defer close(release)

	srv := newAPNsServer(t, key, &apnsRecorder{}, func(w http.ResponseWriter, token string) {
		if token == "slow" {
			<-release
		}
		w.WriteHeader(http.StatusOK)
	})

	d := newTestDispatcher(t, srv, keyPEM, 100*time.Millisecond)

	result := d.SendPassUpdateToAllDevices(context.Background(), "member-1", testPassTypeID,
		staticLookup{tokens: []string{"slow", "fast"}})
	require.Equal(t, 1, result.Sent)
	require.Equal(t, 1, result.Failed)
}

func TestSendPassUpdateLookupError(t *testing.T) {
	_, keyPEM := apnsKey(t)
	d, err := NewAPNsDispatcher(APNsConfig{KeyData: keyPEM, KeyID: testKeyID, TeamID: testTeamID}, nil)
	require.NoError(t, err)

	result := d.SendPassUpdateToAllDevices(context.Background(), "member-1", testPassTypeID,
		staticLookup{err: errors.New("cassandra unavailable")})
	require.Equal(t, PushResult{Skipped: true}, result)
}

func TestNewAPNsDispatcherEndpoint(t *testing.T) {
	_, keyPEM := apnsKey(t)

	tests := []struct {
		name       string
		production bool
		want       string
	}{
		{name: "sandbox", want: "https://api.sandbox.push.apple.com"},
		{name: "production", production: true, want: "https://api.push.apple.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewAPNsDispatcher(APNsConfig{KeyData: keyPEM, KeyID: testKeyID, TeamID: testTeamID, Production: tt.production}, nil)
			require.NoError(t, err)
			require.Equal(t, tt.want, d.endpoint)
			require.Equal(t, defaultPushTimeout, d.timeout)
		})
	}

	_, err := NewAPNsDispatcher(APNsConfig{KeyPath: "/does/not/exist.p8"}, nil)
	require.Error(t, err)
}
