package dispatch

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts session traffic. It implements prometheus.Collector and
// reads the queue depth at scrape time.
type Metrics struct {
	framesIn     atomic.Int64
	framesOut    atomic.Int64
	resultErrors atomic.Int64
	items        [len(kindNames)]atomic.Int64
	queue        atomic.Pointer[Queue]

	framesDesc      *prometheus.Desc
	itemsDesc       *prometheus.Desc
	resultErrorDesc *prometheus.Desc
	queueDepthDesc  *prometheus.Desc
}

// NewMetrics creates a zeroed collector.
func NewMetrics() *Metrics {
	return &Metrics{
		framesDesc: prometheus.NewDesc(
			"smartclient_frames_total",
			"Frames exchanged with the server by direction",
			[]string{"direction"}, nil,
		),
		itemsDesc: prometheus.NewDesc(
			"smartclient_work_items_total",
			"Work items processed by the main loop by kind",
			[]string{"kind"}, nil,
		),
		resultErrorDesc: prometheus.NewDesc(
			"smartclient_result_errors_total",
			"Commands answered with an error result",
			nil, nil,
		),
		queueDepthDesc: prometheus.NewDesc(
			"smartclient_queue_depth",
			"Work items waiting for the main loop",
			nil, nil,
		),
	}
}

func (m *Metrics) attach(q *Queue) { m.queue.Store(q) }

// FrameIn counts one received frame.
func (m *Metrics) FrameIn() { m.framesIn.Add(1) }

// FrameOut counts one sent frame.
func (m *Metrics) FrameOut() { m.framesOut.Add(1) }

// ResultError counts one error result sent back to the server.
func (m *Metrics) ResultError() { m.resultErrors.Add(1) }

// Item counts one processed work item.
func (m *Metrics) Item(k Kind) {
	if k >= 0 && int(k) < len(m.items) {
		m.items[k].Add(1)
	}
}

// Snapshot returns the current counter values keyed by metric label.
func (m *Metrics) Snapshot() map[string]int64 {
	s := map[string]int64{
		"frames_in":     m.framesIn.Load(),
		"frames_out":    m.framesOut.Load(),
		"result_errors": m.resultErrors.Load(),
	}
	for i := range m.items {
		s["items_"+Kind(i).String()] = m.items[i].Load()
	}
	return s
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.framesDesc
	ch <- m.itemsDesc
	ch <- m.resultErrorDesc
	ch <- m.queueDepthDesc
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(m.framesDesc, prometheus.CounterValue, float64(m.framesIn.Load()), "in")
	ch <- prometheus.MustNewConstMetric(m.framesDesc, prometheus.CounterValue, float64(m.framesOut.Load()), "out")

	for i := range m.items {
		ch <- prometheus.MustNewConstMetric(m.itemsDesc, prometheus.CounterValue, float64(m.items[i].Load()), Kind(i).String())
	}

	ch <- prometheus.MustNewConstMetric(m.resultErrorDesc, prometheus.CounterValue, float64(m.resultErrors.Load()))

	var depth int
	if q := m.queue.Load(); q != nil {
		depth = q.Len()
	}
	ch <- prometheus.MustNewConstMetric(m.queueDepthDesc, prometheus.GaugeValue, float64(depth))
}
