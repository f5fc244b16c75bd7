package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"tapandstamp/config"
	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/middlewares"
	"tapandstamp/pkg/passkit"
	"tapandstamp/pkg/passkit/assets"
	"tapandstamp/pkg/usecases"
)

const testPassType = "pass.com.tapandstamp.loyalty"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("TAPANDSTAMP_CONFIG", "../../config/testdata/config.yaml")
	if _, err := config.LoadConfig(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeStamps struct {
	merchant string
	state    *entities.StampState
	err      error
}

func (f *fakeStamps) do(merchantID string) (*entities.StampState, error) {
	f.merchant = merchantID
	return f.state, f.err
}

func (f *fakeStamps) Check(_ context.Context, merchantID, _ string) (*entities.StampState, error) {
	return f.do(merchantID)
}

func (f *fakeStamps) Stamp(_ context.Context, merchantID, _ string) (*entities.StampState, error) {
	return f.do(merchantID)
}

func (f *fakeStamps) Claim(_ context.Context, merchantID, _ string) (*entities.StampState, error) {
	return f.do(merchantID)
}

type fakePasses struct {
	pass     *usecases.PassDownload
	passErr  error
	created  bool
	serials  *entities.SerialNumbersResponse
	since    time.Time
	modSince time.Time
	strip    *assets.StripResult
	pushErr  error
	joined   *entities.JoinResponse
	joinErr  error
}

func (f *fakePasses) JoinMerchant(context.Context, string, string, string) (*entities.JoinResponse, error) {
	return f.joined, f.joinErr
}

func (f *fakePasses) DownloadPass(context.Context, string) (*usecases.PassDownload, error) {
	return f.pass, f.passErr
}

func (f *fakePasses) LatestPass(_ context.Context, _, _ string, ifModifiedSince time.Time) (*usecases.PassDownload, error) {
	f.modSince = ifModifiedSince
	return f.pass, f.passErr
}

func (f *fakePasses) Contract(_ context.Context, memberID string) (*passkit.Contract, error) {
	c := passkit.NewContract(entities.Member{ID: memberID, StampCount: 1}, 3, time.Unix(0, 0))
	return &c, nil
}

func (f *fakePasses) StripImage(context.Context, string, assets.Platform) (*assets.StripResult, error) {
	return f.strip, nil
}

func (f *fakePasses) AuthorizePass(passTypeID, serial, token string) (string, error) {
	if passTypeID != testPassType {
		return "", usecases.ErrUnknownPassType
	}
	memberID, ok := passkit.MemberIDFromSerial(serial)
	if !ok {
		return "", usecases.ErrInvalidSerial
	}
	if token != "token-"+memberID {
		return "", usecases.ErrForbidden
	}
	return memberID, nil
}

func (f *fakePasses) AuthorizeMember(memberID, token string) bool {
	return token == "token-"+memberID
}

func (f *fakePasses) RegisterDevice(context.Context, string, string, string, string) (bool, error) {
	return f.created, nil
}

func (f *fakePasses) UnregisterDevice(context.Context, string, string, string) error {
	return nil
}

func (f *fakePasses) UpdatedSerials(_ context.Context, _, _ string, since time.Time) (*entities.SerialNumbersResponse, error) {
	f.since = since
	return f.serials, nil
}

func (f *fakePasses) RegisterPushToken(context.Context, string, string, string) error {
	return f.pushErr
}

func newTestRouter(stamps usecases.StampUseCaseImply, passes usecases.PassUseCaseImply) *gin.Engine {
	router := gin.New()
	api := router.Group(config.PathPrefix)
	root := router.Group("/")

	m := middlewares.NewMiddlewares(passes)
	NewStampController(api, stamps, m).InitRoutes()
	NewMemberController(api, passes, m).InitRoutes()
	NewPassKitController(root, passes, m).InitRoutes()
	InitMetricsRoute(router)

	return router
}

func serve(router *gin.Engine, method, path, auth, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStampRoutes(t *testing.T) {
	ready := entities.StampState{StampCount: 3, RewardGoal: 3, RewardReady: true, MerchantName: "Blue Bottle"}
	cooling := entities.StampState{StampCount: 1, RewardGoal: 3, CooldownRemaining: 180, MerchantName: "Blue Bottle"}

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		state      *entities.StampState
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "missing staff key", method: http.MethodPost, path: "/api/v1/stamp/m1", wantStatus: http.StatusUnauthorized},
		{name: "unknown staff key", method: http.MethodPost, path: "/api/v1/stamp/m1", auth: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "stamp", method: http.MethodPost, path: "/api/v1/stamp/m1", auth: "Bearer staff-key-1", state: &entities.StampState{StampCount: 2, RewardGoal: 3}, wantStatus: http.StatusOK},
		{name: "reward pending", method: http.MethodPost, path: "/api/v1/stamp/m1", auth: "Bearer staff-key-1", err: &usecases.StampError{Err: usecases.ErrRewardPending, State: ready}, wantStatus: http.StatusBadRequest, wantCode: "reward_pending"},
		{name: "cooldown", method: http.MethodPost, path: "/api/v1/stamp/m1", auth: "Bearer staff-key-1", err: &usecases.StampError{Err: usecases.ErrCooldown, State: cooling}, wantStatus: http.StatusTooManyRequests, wantCode: "cooldown"},
		{name: "another merchant's member", method: http.MethodPost, path: "/api/v1/stamp/m1", auth: "Bearer staff-key-1", err: usecases.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "unknown member", method: http.MethodGet, path: "/api/v1/stamp/m1/check", auth: "Bearer staff-key-1", err: usecases.ErrMemberNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "concurrent stamp", method: http.MethodPost, path: "/api/v1/stamp/m1", auth: "Bearer staff-key-1", err: usecases.ErrConcurrentUpdate, wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "claim without reward", method: http.MethodPost, path: "/api/v1/claim/m1", auth: "Bearer staff-key-1", err: &usecases.StampError{Err: usecases.ErrNoReward}, wantStatus: http.StatusBadRequest, wantCode: "no_reward"},
		{name: "storage failure", method: http.MethodPost, path: "/api/v1/claim/m1", auth: "Bearer staff-key-1", err: errors.New("gocql: timeout talking to 10.0.0.7"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamps := &fakeStamps{state: tt.state, err: tt.err}
			router := newTestRouter(stamps, &fakePasses{})

			rec := serve(router, tt.method, tt.path, tt.auth, "")
			require.Equal(t, tt.wantStatus, rec.Code)

			body := decodeBody(t, rec)
			if tt.wantCode != "" {
				require.Equal(t, tt.wantCode, body["error"])
			}
			if tt.wantStatus == http.StatusInternalServerError {
				require.Equal(t, internalErrorMessage, body["message"])
				require.NotContains(t, rec.Body.String(), "gocql")
			}
			if tt.wantStatus == http.StatusOK {
				require.Equal(t, "merchant-1", stamps.merchant)
				data := body["data"].(map[string]interface{})
				require.EqualValues(t, 2, data["stampCount"])
			}
		})
	}
}

func TestStampRefusalCarriesState(t *testing.T) {
	state := entities.StampState{StampCount: 1, RewardGoal: 3, CooldownRemaining: 180, MerchantName: "Blue Bottle"}
	router := newTestRouter(&fakeStamps{err: &usecases.StampError{Err: usecases.ErrCooldown, State: state}}, &fakePasses{})

	rec := serve(router, http.MethodPost, "/api/v1/stamp/m1", "Bearer staff-key-1", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]interface{})
	require.EqualValues(t, 180, data["cooldownRemaining"])
	require.EqualValues(t, 1, data["stampCount"])
}

func TestDownloadPass(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	passes := &fakePasses{pass: &usecases.PassDownload{Filename: "blue-bottle-loyalty.pkpass", Data: []byte("PK"), LastModified: modified}}
	router := newTestRouter(&fakeStamps{}, passes)

	rec := serve(router, http.MethodGet, "/passes/m1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, passkit.ContentType, rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="blue-bottle-loyalty.pkpass"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "Fri, 01 Mar 2024 12:00:00 GMT", rec.Header().Get("Last-Modified"))
	require.Equal(t, "PK", rec.Body.String())

	passes.pass, passes.passErr = nil, usecases.ErrMemberNotFound
	rec = serve(router, http.MethodGet, "/passes/m1", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWalletWebService(t *testing.T) {
	const registration = "/passkit/v1/devices/device-1/registrations/" + testPassType + "/apple-m1"
	pushBody := `{"pushToken":"apns-token"}`

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		body       string
		created    bool
		wantStatus int
	}{
		{name: "register without token", method: http.MethodPost, path: registration, body: pushBody, wantStatus: http.StatusUnauthorized},
		{name: "register with bearer scheme", method: http.MethodPost, path: registration, auth: "Bearer token-m1", body: pushBody, wantStatus: http.StatusUnauthorized},
		{name: "register with another member's token", method: http.MethodPost, path: registration, auth: "ApplePass token-m2", body: pushBody, wantStatus: http.StatusUnauthorized},
		{name: "new registration", method: http.MethodPost, path: registration, auth: "ApplePass token-m1", body: pushBody, created: true, wantStatus: http.StatusCreated},
		{name: "existing registration", method: http.MethodPost, path: registration, auth: "ApplePass token-m1", body: pushBody, wantStatus: http.StatusOK},
		{name: "missing push token", method: http.MethodPost, path: registration, auth: "ApplePass token-m1", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "foreign pass type", method: http.MethodPost, path: "/passkit/v1/devices/device-1/registrations/pass.other/apple-m1", auth: "ApplePass token-m1", body: pushBody, wantStatus: http.StatusNotFound},
		{name: "unregister", method: http.MethodDelete, path: registration, auth: "ApplePass token-m1", wantStatus: http.StatusOK},
		{name: "device log", method: http.MethodPost, path: "/passkit/v1/log", body: `{"logs":["bad signature"]}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeStamps{}, &fakePasses{created: tt.created})
			rec := serve(router, tt.method, tt.path, tt.auth, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestUpdatedSerialsRoute(t *testing.T) {
	path := "/passkit/v1/devices/device-1/registrations/" + testPassType

	passes := &fakePasses{}
	router := newTestRouter(&fakeStamps{}, passes)

	rec := serve(router, http.MethodGet, path+"?passesUpdatedSince=1709294400", "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, int64(1709294400), passes.since.Unix())

	passes.serials = &entities.SerialNumbersResponse{SerialNumbers: []string{"apple-m1"}, LastUpdated: "1709294460"}
	rec = serve(router, http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"serialNumbers":["apple-m1"],"lastUpdated":"1709294460"}`, rec.Body.String())
}

func TestLatestPassRoute(t *testing.T) {
	path := "/passkit/v1/passes/" + testPassType + "/apple-m1"

	passes := &fakePasses{passErr: usecases.ErrNotModified}
	router := newTestRouter(&fakeStamps{}, passes)

	rec := serve(router, http.MethodGet, path, "ApplePass token-m1", "", "If-Modified-Since", "Fri, 01 Mar 2024 12:00:00 GMT")
	require.Equal(t, http.StatusNotModified, rec.Code)
	require.True(t, passes.modSince.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	passes.passErr = nil
	passes.pass = &usecases.PassDownload{Filename: "x-loyalty.pkpass", Data: []byte("PK"), LastModified: time.Unix(1709294460, 0)}
	rec = serve(router, http.MethodGet, path, "ApplePass token-m1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Last-Modified"))

	rec = serve(router, http.MethodGet, path, "ApplePass wrong", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMemberRoutes(t *testing.T) {
	passes := &fakePasses{
		strip:  &assets.StripResult{Width: 1032, Height: 336, MIME: "image/png", Data: []byte("png")},
		joined: &entities.JoinResponse{MemberID: "m9", MerchantName: "Blue Bottle", RewardGoal: 3, AuthToken: "token-m9"},
	}
	router := newTestRouter(&fakeStamps{}, passes)

	rec := serve(router, http.MethodPost, "/api/v1/merchants/blue-bottle/join", "", `{"name":"Ada","deviceType":"apple"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "m9", decodeBody(t, rec)["data"].(map[string]interface{})["memberId"])

	passes.joinErr = usecases.ErrMerchantNotFound
	rec = serve(router, http.MethodPost, "/api/v1/merchants/nowhere/join", "", `{}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v1/members/m1/strip?platform=google", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = serve(router, http.MethodGet, "/api/v1/members/m1/contract", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v1/members/m1/contract", "Bearer token-m1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "apple-m1", decodeBody(t, rec)["data"].(map[string]interface{})["serial"])

	rec = serve(router, http.MethodPost, "/api/v1/members/m1/push-token", "Bearer token-m1", `{"platform":"google","pushToken":"fcm"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	passes.pushErr = usecases.ErrInvalidPlatform
	rec = serve(router, http.MethodPost, "/api/v1/members/m1/push-token", "Bearer token-m1", `{"platform":"apple","pushToken":"fcm"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	passes.pushErr = errors.New("gocql: no hosts available")
	rec = serve(router, http.MethodPost, "/api/v1/members/m1/push-token", "Bearer token-m1", `{"platform":"google","pushToken":"fcm"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, internalErrorMessage, decodeBody(t, rec)["message"])
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(&fakeStamps{}, &fakePasses{})
	rec := serve(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
