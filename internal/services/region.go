package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"greenloop/internal/models"
	"greenloop/internal/pkg/caching"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/samber/do"
)

// builtinRegions serve as the fallback directory when no external region
// service is configured.
var builtinRegions = map[string]models.Region{
	"us-ca": {RegionCode: "us-ca", CountryCode: "US", StateCode: "CA", Label: "California"},
	"us-ny": {RegionCode: "us-ny", CountryCode: "US", StateCode: "NY", Label: "New York"},
	"us-wa": {RegionCode: "us-wa", CountryCode: "US", StateCode: "WA", Label: "Washington"},
	"gb":    {RegionCode: "gb", CountryCode: "GB", StateCode: "", Label: "United Kingdom"},
	"de":    {RegionCode: "de", CountryCode: "DE", StateCode: "", Label: "Germany"},
	"fr":    {RegionCode: "fr", CountryCode: "FR", StateCode: "", Label: "France"},
	"vn":    {RegionCode: "vn", CountryCode: "VN", StateCode: "", Label: "Vietnam"},
	"jp":    {RegionCode: "jp", CountryCode: "JP", StateCode: "", Label: "Japan"},
}

type ServiceRegion struct {
	container     *do.Injector
	client        *httpclient.Client
	baseURL       string
	cache         caching.Cache
	readonlyCache caching.ReadOnlyCache
}

func NewServiceRegion(container *do.Injector) (*ServiceRegion, error) {
	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	backoff := heimdall.NewConstantBackoff(500*time.Millisecond, 100*time.Millisecond)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(5*time.Second),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		httpclient.WithRetryCount(2),
	)

	return &ServiceRegion{container, client, os.Getenv("REGION_DIRECTORY_URL"), cache, readonlyCache}, nil
}

// Lookup resolves a region code to its directory entry, or nil when the code
// is unknown. Lookups only decorate leaderboard buckets and never validate
// checkin data.
func (service *ServiceRegion) Lookup(ctx context.Context, code string) (*models.Region, error) {
	if code == "" {
		return nil, nil
	}

	callback := func() (*models.Region, error) {
		if service.baseURL == "" {
			return service.lookupBuiltin(code), nil
		}

		region, err := service.lookupRemote(ctx, code)
		if err != nil {
			// the directory being down should not fail a leaderboard build
			return service.lookupBuiltin(code), nil
		}

		return region, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyRegion(code), CACHE_TTL_1_DAY, callback)
}

// Label returns the display label for a region code, falling back to the
// code itself.
func (service *ServiceRegion) Label(ctx context.Context, code string) string {
	region, err := service.Lookup(ctx, code)
	if err != nil || region == nil {
		return code
	}

	return region.Label
}

func (service *ServiceRegion) lookupBuiltin(code string) *models.Region {
	region, ok := builtinRegions[code]
	if !ok {
		return nil
	}

	return &region
}

func (service *ServiceRegion) lookupRemote(ctx context.Context, code string) (*models.Region, error) {
	res, err := service.client.Get(fmt.Sprintf("%s/regions/%s", service.baseURL, code), http.Header{})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("region directory status %d", res.StatusCode)
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var region models.Region
	if err := json.Unmarshal(b, &region); err != nil {
		return nil, err
	}

	return &region, nil
}
