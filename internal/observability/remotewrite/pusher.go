// Package remotewrite periodically ships the process's Prometheus registry to a
// remote_write endpoint, for deployments where nothing scrapes /metrics.
package remotewrite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	obstracing "github.com/smallbiznis/lis/internal/observability/tracing"
	"go.opentelemetry.io/otel/propagation"
)

const pushTimeout = 5 * time.Second

var ErrInvalidEndpoint = errors.New("remotewrite: endpoint must be an absolute http(s) url")

type Pusher struct {
	endpoint string
	token    string
	gatherer prometheus.Gatherer
	client   *http.Client
	now      func() time.Time
}

func NewPusher(endpoint, token string, gatherer prometheus.Gatherer) (*Pusher, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidEndpoint
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Pusher{
		endpoint: u.String(),
		token:    strings.TrimSpace(token),
		gatherer: gatherer,
		client:   &http.Client{Timeout: pushTimeout},
		now:      time.Now,
	}, nil
}

// Push sends one snapshot. An empty registry sends nothing.
func (p *Pusher) Push(ctx context.Context) error {
	families, err := p.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}
	series := toSeries(families, p.now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	body, err := (&prompb.WriteRequest{Timeseries: series}).Marshal()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(snappy.Encode(nil, body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	obstracing.InjectContext(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("remote write: %s", resp.Status)
	}
	return nil
}

// toSeries flattens counters and gauges to one sample each. Histograms contribute
// their _sum and _count; buckets are left to scrapers.
func toSeries(families []*dto.MetricFamily, ts int64) []prompb.TimeSeries {
	var out []prompb.TimeSeries
	add := func(name string, labels []*dto.LabelPair, value float64) {
		pl := make([]prompb.Label, 0, len(labels)+1)
		pl = append(pl, prompb.Label{Name: "__name__", Value: name})
		for _, l := range labels {
			pl = append(pl, prompb.Label{Name: l.GetName(), Value: l.GetValue()})
		}
		slices.SortFunc(pl, func(a, b prompb.Label) int { return strings.Compare(a.Name, b.Name) })
		out = append(out, prompb.TimeSeries{
			Labels:  pl,
			Samples: []prompb.Sample{{Value: value, Timestamp: ts}},
		})
	}

	for _, fam := range families {
		name := fam.GetName()
		for _, m := range fam.GetMetric() {
			switch fam.GetType() {
			case dto.MetricType_COUNTER:
				add(name, m.GetLabel(), m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				add(name, m.GetLabel(), m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				add(name+"_sum", m.GetLabel(), h.GetSampleSum())
				add(name+"_count", m.GetLabel(), float64(h.GetSampleCount()))
			}
		}
	}
	return out
}
