package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bilgisen/newswatch/internal/models"
)

// Source supplies the raw news records of one cycle
type Source interface {
	FetchAll(ctx context.Context) ([]models.NewsDTO, error)
}

// Fetcher pulls the full news list from the remote source over HTTP
type Fetcher struct {
	client  *resty.Client
	baseURL string
}

// NewFetcher creates a fetcher for the source rooted at baseURL
func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(3).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second),
	}
}

// FetchAll retrieves every record from {baseURL}/all
func (f *Fetcher) FetchAll(ctx context.Context) ([]models.NewsDTO, error) {
	url := f.baseURL + "/all"

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news from %s: %w", url, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), url)
	}

	var items []models.NewsDTO
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse news response: %w", err)
	}

	return items, nil
}
