package overlay

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPFetcher fetches entity lists from the storefront-data HTTP API.
type HTTPFetcher struct {
	client *resty.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second)
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) FetchList(ctx context.Context, tenant, kind string) ([]Row, error) {
	var rows []Row
	resp, err := f.client.R().
		SetContext(ctx).
		// cache buster, matching the admin client's refetch behavior
		SetQueryParam("t", strconv.FormatInt(time.Now().UnixMilli(), 10)).
		SetResult(&rows).
		Get(fmt.Sprintf("/api/%s/%s", tenant, kind))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list %s: %s", kind, resp.Status())
	}
	return rows, nil
}
