package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	productdomain "github.com/smallbiznis/lis/internal/product/domain"
	"github.com/smallbiznis/lis/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherForwardsCookieAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		cookie, err := r.Cookie("lisToken")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "session-token", cookie.Value)
		assert.Equal(t, "corr-1", r.Header.Get(correlation.HeaderName))
		assert.Equal(t, "42", r.Header.Get("X-Org-ID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","code":"CAM-001","type":"Camiseta","name":"Camiseta","color":"Azul","sale_value":"120.5","quantity":3,"supplier_name":"Malharia"},{"id":"2","code":"X","sale_value":80,"quantity":0}]`))
	}))
	defer srv.Close()

	ctx := correlation.ContextWithCorrelationID(context.Background(), "corr-1")
	products, err := NewHTTPFetcher(srv.URL+"/", "session-token", WithHeader("X-Org-ID", "42")).FetchProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "CAM-001", products[0].Code)
	assert.Equal(t, "120.50", products[0].SaleValue.StringFixed(2))
	assert.Equal(t, "Malharia", *products[0].SupplierName)
	assert.Equal(t, "80.00", products[1].SaleValue.StringFixed(2))
}

func TestHTTPFetcherErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"type":"unauthorized"}}`, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, `{}`, ErrFetchFailed},
		{"forbidden", http.StatusForbidden, `{}`, ErrFetchFailed},
		{"bad payload", http.StatusOK, `{"not":"an array"}`, ErrFetchFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewHTTPFetcher(srv.URL, "token").FetchProducts(context.Background())
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestHTTPFetcherTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(url, "token").FetchProducts(context.Background())
	require.ErrorIs(t, err, ErrFetchFailed)
	require.False(t, errors.Is(err, ErrUnauthorized))
}

func TestFetcherFuncAdaptsFunction(t *testing.T) {
	want := []Product{{ID: "1"}}
	var f Fetcher = FetcherFunc(func(context.Context) ([]Product, error) { return want, nil })

	got, err := f.FetchProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

type fakeProductService struct {
	productdomain.Service
	items []productdomain.Response
	err   error
}

func (f *fakeProductService) List(context.Context, productdomain.ListRequest) ([]productdomain.Response, error) {
	return f.items, f.err
}

func TestServiceFetcher(t *testing.T) {
	supplier := "Malharia"
	fetcher := NewServiceFetcher(&fakeProductService{items: []productdomain.Response{
		{ID: "10", Code: "CAM-001", Name: "Camiseta", SupplierName: &supplier, Quantity: 4},
	}})

	products, err := fetcher.FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "10", products[0].ID)
	assert.Equal(t, 4, products[0].Quantity)

	_, err = NewServiceFetcher(&fakeProductService{err: productdomain.ErrInvalidOrganization}).FetchProducts(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = NewServiceFetcher(&fakeProductService{err: errors.New("db down")}).FetchProducts(context.Background())
	require.ErrorIs(t, err, ErrFetchFailed)
}
