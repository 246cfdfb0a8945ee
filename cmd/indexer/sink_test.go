package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/config"
	"github.com/akozadaev/go_farm_assist/internal/models"
	"github.com/akozadaev/go_farm_assist/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(n int) []models.PriceRecord {
	out := make([]models.PriceRecord, n)
	for i := range out {
		out[i] = models.PriceRecord{
			State:      "Maharashtra",
			District:   "Pune",
			Market:     "Pune APMC",
			Commodity:  "Onion",
			Variety:    "Red",
			PriceDate:  time.Date(2024, 1, 1+i%28, 0, 0, 0, 0, time.UTC),
			ModalPrice: float64(1500 + i),
		}
	}
	return out
}

type recordingWriter struct {
	prepared bool
	offsets  []int
	sizes    []int
	failAt   int
}

func (w *recordingWriter) prepare(context.Context) error {
	w.prepared = true
	return nil
}

func (w *recordingWriter) write(_ context.Context, batch []models.PriceRecord, offset int) error {
	if w.failAt > 0 && offset >= w.failAt {
		return errors.New("disk full")
	}
	w.offsets = append(w.offsets, offset)
	w.sizes = append(w.sizes, len(batch))
	return nil
}

func (w *recordingWriter) abort() error {
	return nil
}

func (w *recordingWriter) Close() error {
	return nil
}

func TestIndexRecordsBatches(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, indexRecords(context.Background(), records(25), w, 10, io.Discard))

	assert.True(t, w.prepared)
	assert.Equal(t, []int{0, 10, 20}, w.offsets)
	assert.Equal(t, []int{10, 10, 5}, w.sizes)
}

func TestIndexRecordsErrors(t *testing.T) {
	err := indexRecords(context.Background(), records(5), &recordingWriter{}, 0, io.Discard)
	assert.Error(t, err)

	err = indexRecords(context.Background(), records(25), &recordingWriter{failAt: 10}, 10, io.Discard)
	assert.ErrorContains(t, err, "write records 10-19")
}

func TestIndexIntoSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prices.db")

	w, err := openWriter("sqlite", path, false, &config.Config{})
	require.NoError(t, err)
	require.NoError(t, indexRecords(ctx, records(7), w, 3, io.Discard))
	require.NoError(t, w.Close())

	src, err := storage.NewSQLSource("sqlite3", path)
	require.NoError(t, err)
	defer src.Close()

	got, err := src.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, got, 7)
	assert.Equal(t, 1506.0, got[6].ModalPrice)
}

func TestIndexIntoSQLiteReplacesOrAppends(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prices.db")

	load := func(appendRows bool, n int) {
		w, err := openWriter("sqlite", path, appendRows, &config.Config{})
		require.NoError(t, err)
		require.NoError(t, indexRecords(ctx, records(n), w, 2, io.Discard))
		require.NoError(t, w.Close())
	}
	count := func() []models.PriceRecord {
		src, err := storage.NewSQLSource("sqlite3", path)
		require.NoError(t, err)
		defer src.Close()
		got, err := src.LoadRecords(ctx)
		require.NoError(t, err)
		return got
	}

	load(false, 5)
	load(false, 5)
	assert.Len(t, count(), 5)

	load(true, 3)
	got := count()
	require.Len(t, got, 8)
	assert.Equal(t, 1502.0, got[7].ModalPrice)
}

func TestXLSXAbortSkipsSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.xlsx")

	w, err := openWriter("xlsx", path, false, &config.Config{})
	require.NoError(t, err)
	require.NoError(t, w.write(context.Background(), records(3), 0))
	require.NoError(t, w.abort())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// fakeBulkES отклоняет документ rejectSeq в первом bulk запросе и принимает его
// при индексации по одному.
type fakeBulkES struct {
	mu        sync.Mutex
	rejectSeq int
	bulked    []int
	single    []string
}

func (f *fakeBulkES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/_bulk":
		scanner := bufio.NewScanner(r.Body)
		items := []map[string]interface{}{}
		errs := false
		for line := 0; scanner.Scan(); line++ {
			if line%2 == 0 {
				continue
			}
			var doc struct {
				Seq int `json:"seq"`
			}
			if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			status := http.StatusCreated
			if doc.Seq == f.rejectSeq {
				status = http.StatusTooManyRequests
				errs = true
			} else {
				f.bulked = append(f.bulked, doc.Seq)
			}
			items = append(items, map[string]interface{}{
				"index": map[string]interface{}{"_id": strconv.Itoa(doc.Seq), "status": status},
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"errors": errs, "items": items})
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/price_records/_doc/"):
		f.single = append(f.single, strings.TrimPrefix(r.URL.Path, "/price_records/_doc/"))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"result":"created"}`)
	default:
		http.NotFound(w, r)
	}
}

func TestESWriterRetriesRejectedRecords(t *testing.T) {
	fake := &fakeBulkES{rejectSeq: 4}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	w, err := openWriter("elasticsearch", "", false, &config.Config{ElasticsearchURL: srv.URL, ElasticsearchIndex: "price_records"})
	require.NoError(t, err)

	require.NoError(t, w.write(context.Background(), records(3), 3))
	assert.Equal(t, []int{3, 5}, fake.bulked)
	assert.Equal(t, []string{"4"}, fake.single)
}

func TestIndexIntoXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.xlsx")

	w, err := openWriter("xlsx", path, false, &config.Config{})
	require.NoError(t, err)
	require.NoError(t, indexRecords(context.Background(), records(4), w, 3, io.Discard))
	require.NoError(t, w.Close())

	src, err := openInput(path, &config.Config{})
	require.NoError(t, err)
	got, err := src.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestOpenWriterErrors(t *testing.T) {
	_, err := openWriter("xlsx", "", false, &config.Config{})
	assert.Error(t, err)

	_, err = openWriter("mongodb", "", false, &config.Config{})
	assert.Error(t, err)
}

func TestOpenInputByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("STATE,District Name,Market Name,Commodity,Variety,Price Date,Modal_Price\nGoa,North Goa,Mapusa,Tomato,Local,2024-01-10,1200\n"), 0o600))

	src, err := openInput(path, &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, &storage.CSVSource{}, src)

	got, err := src.LoadRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mapusa", got[0].Market)
}
