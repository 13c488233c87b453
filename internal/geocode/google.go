// Package geocode implements the reverse-geocoding boundary of the relay.
// The core only depends on the Lookup capability; this package provides the
// Google Maps Geocoding API implementation of it.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ErrNoResults is returned when the geocoder answers successfully but with an
// empty result set. Callers treat it the same as a transport failure: a
// recoverable "location unavailable" condition, never fatal.
var ErrNoResults = fmt.Errorf("geocoder returned no results")

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleProvider resolves coordinates through the Google Maps Geocoding API.
// BaseURL and Client exist so tests can point the provider at a local server.
type GoogleProvider struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewGoogleProvider(apiKey string) *GoogleProvider {
	return &GoogleProvider{
		APIKey:  apiKey,
		BaseURL: defaultBaseURL,
		Client:  http.DefaultClient,
	}
}

type googleResponse struct {
	Status  string         `json:"status"`
	Results []googleResult `json:"results"`
}

type googleResult struct {
	AddressComponents []addressComponent `json:"address_components"`
}

type addressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

// Lookup reverse-geocodes the coordinates and returns the locality long name
// of the first result. A result without a locality component yields an empty
// name and no error; the caller falls back to its default room for that case.
func (p *GoogleProvider) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	query := url.Values{}
	query.Set("latlng", formatCoordinate(lat)+","+formatCoordinate(lon))
	query.Set("key", p.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building geocode request: %w", err)
	}

	res, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode request: unexpected status %d", res.StatusCode)
	}

	var decoded googleResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding geocode response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return "", ErrNoResults
	}

	for _, component := range decoded.Results[0].AddressComponents {
		for _, kind := range component.Types {
			if kind == "locality" {
				return component.LongName, nil
			}
		}
	}
	return "", nil
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
