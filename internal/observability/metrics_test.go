package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordConvert(t *testing.T) {
	before := testutil.ToFloat64(convertCalls.WithLabelValues(OutcomeFailed))
	RecordConvert(OutcomeFailed, 20*time.Millisecond)
	RecordConvert(OutcomeFailed, 10*time.Millisecond)
	assert.Equal(t, before+2, testutil.ToFloat64(convertCalls.WithLabelValues(OutcomeFailed)))
}

func TestRecordCombine(t *testing.T) {
	before := testutil.ToFloat64(combineCalls.WithLabelValues(OutcomeSuccess))
	RecordCombine(OutcomeSuccess, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(combineCalls.WithLabelValues(OutcomeSuccess)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordHTTPRequest("GET", "/healthz", 200, time.Millisecond)
	RecordDocumentStored("md")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "textpress_http_requests_total"))
	assert.True(t, strings.Contains(text, `textpress_documents_stored_total{source_type="md"}`))
}
