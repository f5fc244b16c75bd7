package http_client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
)

var (
	httpClient  *http.Client
	http2Client *http.Client
	once        sync.Once
	once2       sync.Once
)

func GetClient() *http.Client {
	once.Do(func() {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableKeepAlives:   false,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: false,
				},
			},
			Timeout: time.Second * 30,
		}
	})

	return httpClient
}

// GetHTTP2Client returns a client that only speaks HTTP/2, as APNs requires.
func GetHTTP2Client() *http.Client {
	once2.Do(func() {
		http2Client = &http.Client{
			Transport: &http2.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				ReadIdleTimeout: 30 * time.Second,
				PingTimeout:     15 * time.Second,
			},
			Timeout: time.Second * 30,
		}
	})

	return http2Client
}

// FetchBytes GETs url and returns at most maxBytes of body. Non-2xx answers are errors.
func FetchBytes(ctx context.Context, client *http.Client, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, maxBytes)
	}

	return data, nil
}
