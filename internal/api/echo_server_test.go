package api

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/mnistpng/internal/logger"
	"github.com/samcharles93/mnistpng/pkg/idx"
	"github.com/samcharles93/mnistpng/pkg/idx/idxtest"
)

func newTestEcho(t *testing.T, n int, cfg Config) *echo.Echo {
	t.Helper()
	images, labels := idxtest.Write(t, t.TempDir(), idxtest.Sequential(n, 4, 3))
	c, err := idx.Open(images, labels, idx.WithDirectSeek())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	e := echo.New()
	NewServer(c, cfg, logger.Discard()).Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body=%s", rec.Body.String())
	return v
}

func TestDataset(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 5, Config{})
	rec := do(t, e, http.MethodGet, "/v1/dataset")
	require.Equal(t, http.StatusOK, rec.Code)

	info := decode[DatasetInfo](t, rec)
	assert.Equal(t, DatasetInfo{Object: "dataset", Count: 5, Rows: 4, Cols: 3, Index: 0}, info)
}

func TestRecordImage(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 5, Config{})
	rec := do(t, e, http.MethodGet, "/v1/records/3")
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "3", rec.Header().Get("X-Record-Label"))
	assert.Equal(t, "3", rec.Header().Get("X-Record-Index"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(252)*0x101, r)

	// going back re-positions the cursor
	rec = do(t, e, http.MethodGet, "/v1/records/1/label")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[RecordInfo](t, rec)
	assert.Equal(t, "1", info.Label)
	assert.Equal(t, "/v1/records/1", info.URL)
}

func TestRecordErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 2, Config{})

	tests := []struct {
		path   string
		status int
		typ    string
	}{
		{"/v1/records/2", http.StatusNotFound, "not_found_error"},
		{"/v1/records/99/label", http.StatusNotFound, "not_found_error"},
		{"/v1/records/-1", http.StatusBadRequest, "invalid_request_error"},
		{"/v1/records/abc/label", http.StatusBadRequest, "invalid_request_error"},
	}
	for _, tc := range tests {
		rec := do(t, e, http.MethodGet, tc.path)
		assert.Equal(t, tc.status, rec.Code, tc.path)
		body := decode[map[string]ErrorBody](t, rec)
		assert.Equal(t, tc.typ, body["error"].Type, tc.path)
	}
}

func TestCursorNextWraps(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 3, Config{})
	var labels []string
	var nexts []int
	for i := 0; i < 4; i++ {
		rec := do(t, e, http.MethodPost, "/v1/cursor/next")
		require.Equal(t, http.StatusOK, rec.Code)
		info := decode[RecordInfo](t, rec)
		labels = append(labels, info.Label)
		require.NotNil(t, info.Next)
		nexts = append(nexts, *info.Next)
	}
	assert.Equal(t, []string{"0", "1", "2", "0"}, labels)
	assert.Equal(t, []int{1, 2, 0, 1}, nexts)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, 2, Config{RequestsPerSecond: 0.001, Burst: 1})
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/v1/records/0/label").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, e, http.MethodGet, "/v1/records/0/label").Code)
	// metadata is not limited
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/v1/dataset").Code)
}
