package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"PairSentinel/internal/model"
)

// BridgeFetcher implements Fetcher against the REST bridge that exposes the
// broker terminal's bar history.
type BridgeFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewBridgeFetcher creates a new fetcher with optional proxy support.
func NewBridgeFetcher(baseURL, apiKey, proxyURL string) *BridgeFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BridgeFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *BridgeFetcher) Name() string { return "bridge" }

// bridgeBar is the expected JSON shape from the bridge API.
type bridgeBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *BridgeFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	bars, err := f.fetchBars(ctx, f.endpoint(symbol, tf, count))
	if err == nil || tf != model.W1 {
		return bars, err
	}
	// Some terminals only serve intraday and daily history.
	daily, dailyErr := f.fetchBars(ctx, f.endpoint(symbol, model.D1, count*5))
	if dailyErr != nil {
		return nil, fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr)
	}
	return trimBars(aggregateDailyToWeekly(daily), count), nil
}

func (f *BridgeFetcher) endpoint(symbol string, tf model.Timeframe, count int) string {
	return fmt.Sprintf("%s/api/v1/bars?symbol=%s&timeframe=%s&limit=%d",
		f.BaseURL, url.QueryEscape(symbol), tf, count)
}

func (f *BridgeFetcher) fetchBars(ctx context.Context, endpoint string) ([]model.OHLCV, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var raw []bridgeBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, b := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(b.Timestamp, 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// aggregateDailyToWeekly converts daily bars into weekly bars (Mon-Fri).
func aggregateDailyToWeekly(daily []model.OHLCV) []model.OHLCV {
	var weekly []model.OHLCV
	for _, d := range daily {
		if n := len(weekly); n > 0 && sameISOWeek(weekly[n-1].Time, d.Time) {
			mergeBar(&weekly[n-1], d)
			continue
		}
		weekly = append(weekly, d)
	}
	return weekly
}

// aggregateBars merges bars into buckets of the given width, aligned on UTC.
func aggregateBars(bars []model.OHLCV, width time.Duration) []model.OHLCV {
	var out []model.OHLCV
	for _, b := range bars {
		bucket := b.Time.Truncate(width)
		if n := len(out); n > 0 && out[n-1].Time.Equal(bucket) {
			mergeBar(&out[n-1], b)
			continue
		}
		b.Time = bucket
		out = append(out, b)
	}
	return out
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

func mergeBar(acc *model.OHLCV, b model.OHLCV) {
	if b.High > acc.High {
		acc.High = b.High
	}
	if b.Low < acc.Low {
		acc.Low = b.Low
	}
	acc.Close = b.Close
	acc.Volume += b.Volume
}
