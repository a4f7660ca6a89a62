package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	documentsUploadedTotal  atomic.Uint64
	documentsCompletedTotal atomic.Uint64
	documentsFailedTotal    atomic.Uint64
	pollAttemptsTotal       atomic.Uint64
	chatTurnsTotal          atomic.Uint64
	chatFailuresTotal       atomic.Uint64
	citationsStoredTotal    atomic.Uint64

	processingDuration = newHistogram([]float64{1000, 5000, 10000, 30000, 60000, 120000, 300000, 600000})
)

// IncDocumentUploaded increments the uploaded counter.
func IncDocumentUploaded() {
	documentsUploadedTotal.Add(1)
}

// IncDocumentCompleted increments the completed counter.
func IncDocumentCompleted() {
	documentsCompletedTotal.Add(1)
}

// IncDocumentFailed increments the failed counter.
func IncDocumentFailed() {
	documentsFailedTotal.Add(1)
}

// IncPollAttempt increments the poll attempt counter.
func IncPollAttempt() {
	pollAttemptsTotal.Add(1)
}

// IncChatTurn increments the chat turn counter.
func IncChatTurn() {
	chatTurnsTotal.Add(1)
}

// IncChatFailure increments the chat failure counter.
func IncChatFailure() {
	chatFailuresTotal.Add(1)
}

// AddCitationsStored adds to the stored citation counter.
func AddCitationsStored(n int) {
	if n > 0 {
		citationsStoredTotal.Add(uint64(n))
	}
}

// ObserveProcessingDurationMs records a document processing duration in milliseconds.
func ObserveProcessingDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	processingDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "documents_uploaded_total", "Total documents uploaded", documentsUploadedTotal.Load())
	writeCounter(&buf, "documents_completed_total", "Total documents that finished processing", documentsCompletedTotal.Load())
	writeCounter(&buf, "documents_failed_total", "Total documents that failed processing", documentsFailedTotal.Load())
	writeCounter(&buf, "poll_attempts_total", "Total status poll attempts", pollAttemptsTotal.Load())
	writeCounter(&buf, "chat_turns_total", "Total chat turns answered", chatTurnsTotal.Load())
	writeCounter(&buf, "chat_failures_total", "Total chat turns that failed at the retrieval service", chatFailuresTotal.Load())
	writeCounter(&buf, "citations_stored_total", "Total citations stored on assistant messages", citationsStoredTotal.Load())
	writeHistogram(&buf, "document_processing_duration_ms", "Document processing duration in milliseconds", processingDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
