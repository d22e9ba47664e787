package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sdko-org/get2put/internal/config"
	"github.com/sdko-org/get2put/internal/tunnel"
	"github.com/sirupsen/logrus"
)

const userAgent = "get2put/1.0"

type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logrus.Entry
}

type Result struct {
	StatusCode int
	Body       []byte
}

type endpointUpdate struct {
	IPv4Remote string `json:"ipv4remote"`
}

type loggingTransport struct {
	log  *logrus.Entry
	next http.RoundTripper
}

func NewClient(logger *logrus.Logger, cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.UpstreamTimeout,
			Transport: &loggingTransport{
				log:  logger.WithField("component", "upstream_transport"),
				next: http.DefaultTransport,
			},
			// A redirect is reported back as an unexpected status rather
			// than followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     logger.WithField("component", "upstream_client"),
	}
}

// EndpointURL is the upstream resource for one tunnel.
func (c *Client) EndpointURL(apiKey, tunnelID string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(apiKey), url.PathEscape(tunnelID))
}

// UpdateEndpoint sends the client's IPv4 address to the upstream tunnel
// record with a single PUT. Errors are always *tunnel.Error.
func (c *Client) UpdateEndpoint(ctx context.Context, apiKey, tunnelID, ipv4 string) (res *Result, err error) {
	start := time.Now()
	log := c.log.WithFields(logrus.Fields{
		"operation": "update_endpoint",
		"tunnel_id": tunnelID,
		"ipv4":      ipv4,
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Upstream request panicked")
			res, err = nil, tunnel.TransportError(fmt.Errorf("panic: %v", r))
		}
	}()

	body, err := json.Marshal(endpointUpdate{IPv4Remote: ipv4})
	if err != nil {
		return nil, tunnel.TransportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.EndpointURL(apiKey, tunnelID), bytes.NewReader(body))
	if err != nil {
		return nil, tunnel.TransportError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = c.redact(err)
		log.WithError(err).Error("Upstream request failed")
		return nil, tunnel.TransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.WithError(err).Error("Failed to read upstream response")
		return nil, tunnel.TransportError(fmt.Errorf("read response: %w", err))
	}

	log = log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration":    time.Since(start),
	})

	switch {
	case resp.StatusCode == http.StatusNotFound:
		log.Warn("Upstream rejected key/id pair")
		return nil, tunnel.ErrInvalidKeyIDPair
	case resp.StatusCode != http.StatusOK:
		log.Warn("Unexpected upstream status")
		return nil, tunnel.UnexpectedStatus(resp.StatusCode)
	}

	log.Info("Upstream endpoint updated")
	return &Result{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// redact replaces the request URL, which embeds the API key, with the base
// URL in transport errors.
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &url.Error{Op: uerr.Op, URL: c.baseURL, Err: uerr.Err}
	}
	return err
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := t.log.WithFields(logrus.Fields{
		"method": req.Method,
		"host":   req.URL.Host,
	})

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		log.WithError(err).Error("HTTP request failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration":    time.Since(start),
	}).Debug("HTTP request completed")
	return resp, nil
}
