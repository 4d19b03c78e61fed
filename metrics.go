/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bincodec

import "github.com/prometheus/client_golang/prometheus"

var (
	MessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bincodec_decoded_messages_total",
		Help: "Total number of messages successfully decoded by the parser facade",
	})
	ParseErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bincodec_parse_errors_total",
		Help: "Total number of parse errors encountered per cause",
	}, []string{"cause"})
	ResyncsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bincodec_resyncs_total",
		Help: "Total number of times the parser facade re-synced after a failed decode",
	})
	TrailingBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bincodec_trailing_bytes_total",
		Help: "Total number of parses that ended with unconsumed trailing bytes",
	})
	DecodeDurationMicroseconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bincodec_decode_duration_microseconds",
		Help:    "Duration of a single message decode in microseconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	EncodeDurationMicroseconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bincodec_encode_duration_microseconds",
		Help:    "Duration of a single message encode in microseconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	ChecksumMismatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bincodec_checksum_mismatches_total",
		Help: "Total number of messages rejected due to checksum mismatch",
	})
)

// initMetrics pre-registers the zero value of every label this package emits, so
// dashboards don't show gaps for causes that simply haven't fired yet.
func initMetrics() {
	MessagesTotal.Add(0)
	ResyncsTotal.Add(0)
	TrailingBytesTotal.Add(0)
	ChecksumMismatchesTotal.Add(0)
	for _, cause := range []string{
		"buffer_underflow", "alignment", "field", "annotation", "loader",
		"template_not_found", "terminator_mismatch", "checksum_mismatch", "trailing_bytes",
	} {
		ParseErrorsTotal.WithLabelValues(cause).Add(0)
	}
}

func init() {
	initMetrics()
}
