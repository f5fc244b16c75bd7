package utilities

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

func TimeNow() time.Time {
	return time.Now().UTC()
}

// HTTPDate formats t the way Last-Modified and If-Modified-Since headers carry it.
func HTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// ParseUpdatedSince accepts the passesUpdatedSince tag handed back to Wallet: unix seconds or RFC 3339.
func ParseUpdatedSince(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if secs, err := cast.ToInt64E(s); err == nil {
		return time.Unix(secs, 0).UTC()
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		logrus.WithError(err).Errorf("ParseUpdatedSince failed for %s", s)
		return time.Time{}
	}
	return t.UTC()
}

// PassAuthToken derives the per-member token Wallet presents as "ApplePass <token>".
func PassAuthToken(secret, memberID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(memberID))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifyPassAuthToken(secret, memberID, token string) bool {
	expected := PassAuthToken(secret, memberID)
	return hmac.Equal([]byte(expected), []byte(token))
}

func ContainsString(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
