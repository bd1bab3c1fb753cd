package maps

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	orsBaseURL = "https://api.openrouteservice.org"
	orsProfile = "driving-car"
)

// ORSClient implements ports.Geocoder and ports.TravelMatrixProvider using
// OpenRouteService. Caching lives in the services layer; this type only talks
// HTTP and retries transient failures.
//
// The client is safe for concurrent use.
type ORSClient struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
	country string
	log     *slog.Logger
}

type ORSOption func(*ORSClient)

// WithORSBaseURL points the client at another ORS deployment.
func WithORSBaseURL(u string) ORSOption {
	return func(c *ORSClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithORSCountry restricts geocoding to an ISO 3166-1 country code.
func WithORSCountry(code string) ORSOption {
	return func(c *ORSClient) { c.country = code }
}

func WithORSHTTPClient(hc *http.Client) ORSOption {
	return func(c *ORSClient) { c.session = hc }
}

func NewORSClient(apiKey string, log *slog.Logger, opts ...ORSOption) (*ORSClient, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	c := &ORSClient{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: orsBaseURL,
		profile: orsProfile,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}
