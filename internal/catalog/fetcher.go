package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/lis/internal/auth/session"
	"github.com/smallbiznis/lis/internal/observability/tracing"
	productdomain "github.com/smallbiznis/lis/internal/product/domain"
	"github.com/smallbiznis/lis/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/propagation"
)

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks github.com/smallbiznis/lis/internal/catalog Fetcher

// Fetcher loads the product collection shown by the catalog.
type Fetcher interface {
	FetchProducts(ctx context.Context) ([]Product, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]Product, error)

func (f FetcherFunc) FetchProducts(ctx context.Context) ([]Product, error) {
	return f(ctx)
}

var (
	ErrUnauthorized = errors.New("catalog: unauthorized")
	ErrFetchFailed  = errors.New("catalog: fetch failed")
)

const defaultFetchTimeout = 10 * time.Second

// HTTPFetcher reads GET {BaseURL}/api/products with the caller's session cookie.
type HTTPFetcher struct {
	baseURL    string
	token      string
	cookieName string
	header     http.Header
	client     *http.Client
}

type HTTPFetcherOption func(*HTTPFetcher)

func WithHTTPClient(client *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

func WithCookieName(name string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if strings.TrimSpace(name) != "" {
			f.cookieName = name
		}
	}
}

// WithHeader adds a header to every product request.
func WithHeader(key, value string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if value != "" {
			f.header.Set(key, value)
		}
	}
}

func NewHTTPFetcher(baseURL, token string, opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		cookieName: session.DefaultCookieName,
		header:     http.Header{},
		client:     &http.Client{Timeout: defaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *HTTPFetcher) FetchProducts(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/products", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	for key, values := range f.header {
		req.Header[key] = values
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.AddCookie(&http.Cookie{Name: f.cookieName, Value: f.token})
	}
	if id := correlation.ExtractCorrelationID(ctx); id != "" {
		req.Header.Set(correlation.HeaderName, id)
	}
	tracing.InjectContext(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	var products []Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFetchFailed, err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// ServiceFetcher reads products in-process for server-rendered pages.
type ServiceFetcher struct {
	products productdomain.Service
}

func NewServiceFetcher(products productdomain.Service) *ServiceFetcher {
	return &ServiceFetcher{products: products}
}

func (f *ServiceFetcher) FetchProducts(ctx context.Context) ([]Product, error) {
	items, err := f.products.List(ctx, productdomain.ListRequest{})
	if err != nil {
		if errors.Is(err, productdomain.ErrInvalidOrganization) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	products := make([]Product, 0, len(items))
	for _, item := range items {
		products = append(products, FromProductResponse(item))
	}
	return products, nil
}
