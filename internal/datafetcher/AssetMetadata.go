/*
This file is used to fetch asset metadata (USD price and logo) per coin type
from the price API. The API answers GET {base}?coinTypes=a,b with
{"a": {"price": "1.23", "logo": "..."}, ...}; unknown coin types are omitted.
*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/elys-network/yieldsplit/internal/utils"
)

var priceLogger = logger.GetForComponent("price_retriever")

var (
	ErrInvalidPriceData = errors.New("invalid price data received")
	ErrAPIConfiguration = errors.New("API configuration error")
)

const (
	MAX_RETRIES     = 3
	TIMEOUT_SECONDS = 30
)

// PriceClient fetches asset metadata from the price API.
type PriceClient struct {
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

// NewPriceClient returns a client for the API at baseURL.
func NewPriceClient(baseURL string) *PriceClient {
	return &PriceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: TIMEOUT_SECONDS * time.Second},
		backoff:    time.Second,
	}
}

type assetEntry struct {
	Price json.RawMessage `json:"price"`
	Logo  string          `json:"logo"`
}

// AssetMetadata returns the metadata of each requested coin type the API knows.
func (c *PriceClient) AssetMetadata(ctx context.Context, coinTypes []string) (map[string]types.AssetMetadata, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: price API URL is not set", ErrAPIConfiguration)
	}
	if len(coinTypes) == 0 {
		return map[string]types.AssetMetadata{}, nil
	}

	unique := make(map[string]struct{}, len(coinTypes))
	for _, ct := range coinTypes {
		unique[ct] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for ct := range unique {
		sorted = append(sorted, ct)
	}
	sort.Strings(sorted)

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAPIConfiguration, err)
	}
	q := u.Query()
	q.Set("coinTypes", strings.Join(sorted, ","))
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		result, err := c.fetch(ctx, u.String())
		if err == nil {
			priceLogger.Debug().
				Int("requested", len(sorted)).
				Int("received", len(result)).
				Int("attempt", attempt).
				Msg("Fetched asset metadata")
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, ErrInvalidPriceData) {
			break
		}

		priceLogger.Warn().
			Err(err).
			Int("attempt", attempt).
			Msg("Asset metadata request failed, will retry if attempts remain")
		if attempt < MAX_RETRIES {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
	}

	priceLogger.Error().Err(lastErr).Int("maxRetries", MAX_RETRIES).Msg("All retry attempts failed")
	return nil, fmt.Errorf("failed to fetch asset metadata: %w", lastErr)
}

func (c *PriceClient) fetch(ctx context.Context, target string) (map[string]types.AssetMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var raw map[string]assetEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Join(ErrInvalidPriceData, fmt.Errorf("failed to parse JSON response: %w", err))
	}

	out := make(map[string]types.AssetMetadata, len(raw))
	for coinType, entry := range raw {
		price, err := parsePrice(entry.Price)
		if err != nil {
			return nil, errors.Join(ErrInvalidPriceData, fmt.Errorf("%s: %w", coinType, err))
		}
		out[coinType] = types.AssetMetadata{CoinType: coinType, Price: price, Logo: entry.Logo}
	}
	return out, nil
}

// parsePrice accepts a number or numeric string and normalises it. Negative
// prices are rejected.
func parsePrice(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("price is missing")
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", err
		}
	}
	d, err := utils.ParseDec(text)
	if err != nil {
		return "", err
	}
	if d.IsNegative() {
		return "", fmt.Errorf("price %s is negative", text)
	}
	return utils.FormatDec(d), nil
}
