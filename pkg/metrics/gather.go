package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// CounterSample is one labelled value of a counter family.
type CounterSample struct {
	Labels string
	Value  float64
}

// Counters returns every sample of the named counter family, sorted by labels.
// Labels are rendered as "k=v,k=v".
func Counters(g prometheus.Gatherer, name string) ([]CounterSample, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return nil, nil
	}
	out := make([]CounterSample, 0, len(mf.GetMetric()))
	for _, metric := range mf.GetMetric() {
		out = append(out, CounterSample{
			Labels: renderLabels(metric.GetLabel()),
			Value:  metric.GetCounter().GetValue(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Labels < out[j].Labels })
	return out, nil
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func renderLabels(labels []*dto.LabelPair) string {
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, label.GetName()+"="+label.GetValue())
	}
	return strings.Join(parts, ",")
}
