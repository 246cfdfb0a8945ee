package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/config"
	"github.com/akozadaev/go_farm_assist/internal/models"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleRecords() []models.PriceRecord {
	return []models.PriceRecord{
		{State: "Maharashtra", District: "Pune", Market: "Pune APMC", Commodity: "Onion", Variety: "Red", PriceDate: day(2024, 1, 15), ModalPrice: 1800},
		{State: "Maharashtra", District: "Nashik", Market: "Lasalgaon", Commodity: "Onion", Variety: "Red", PriceDate: day(2024, 1, 16), ModalPrice: 2100},
		{State: "Karnataka", District: "Dharwad", Market: "Hubli", Commodity: "Onion", Variety: "Local", PriceDate: day(2024, 2, 1), ModalPrice: 1650.5},
	}
}

func assertRecords(t *testing.T, want, got []models.PriceRecord) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].PriceDate.Equal(got[i].PriceDate), "row %d date: want %s got %s", i, want[i].PriceDate, got[i].PriceDate)
		w, g := want[i], got[i]
		w.PriceDate, g.PriceDate = time.Time{}, time.Time{}
		assert.Equal(t, w, g, "row %d", i)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-01-15", "15-01-2024", "15/01/2024", "2024/01/15", "15-Jan-2024", "15 Jan 2024"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, day(2024, 1, 15), got, s)
	}

	_, err := ParseDate("next tuesday")
	assert.Error(t, err)
}

func TestParsePrice(t *testing.T) {
	v, err := ParsePrice(" 1,800.50 ")
	require.NoError(t, err)
	assert.Equal(t, 1800.5, v)

	_, err = ParsePrice("n/a")
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	data := "\ufeffSTATE,District Name,Market Name,Commodity,Variety,Price_Date,Modal_Price\n" +
		"Maharashtra,Pune,Pune APMC,Onion,Red,2024-01-15,1800\n" +
		"\n" +
		"Maharashtra,Nashik,Lasalgaon,Onion,Red,16/01/2024,2100\n" +
		"Karnataka,Dharwad,Hubli,Onion,Local,01-Feb-2024,1650.5\n"

	got, err := ReadCSV(strings.NewReader(data), DefaultColumns)
	require.NoError(t, err)
	assertRecords(t, sampleRecords(), got)
}

func TestReadCSVColumnOrder(t *testing.T) {
	data := "Modal_Price,Commodity,STATE,Variety,Market Name,District Name,Price Date\n" +
		"1800,Onion,Maharashtra,Red,Pune APMC,Pune,2024-01-15\n"

	got, err := ReadCSV(strings.NewReader(data), DefaultColumns)
	require.NoError(t, err)
	assertRecords(t, sampleRecords()[:1], got)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("STATE,District Name\nGoa,North Goa\n"), DefaultColumns)
	assert.ErrorContains(t, err, "missing column")

	data := "STATE,District Name,Market Name,Commodity,Variety,Price Date,Modal_Price\n" +
		"Maharashtra,Pune,Pune APMC,Onion,Red,2024-01-15,1800\n" +
		"Maharashtra,Pune,Pune APMC,Onion,Red,2024-01-16,free\n"
	_, err = ReadCSV(strings.NewReader(data), DefaultColumns)
	assert.ErrorContains(t, err, "line 3")
}

func TestCSVSourceMissingFile(t *testing.T) {
	src := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"), DefaultColumns)
	_, err := src.LoadRecords(context.Background())
	assert.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	require.NoError(t, WriteXLSX(path, DefaultColumns, sampleRecords()))

	got, err := NewXLSXSource(path, DefaultColumns).LoadRecords(context.Background())
	require.NoError(t, err)
	assertRecords(t, sampleRecords(), got)
}

func TestXLSXSerialDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serial.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"STATE", "District Name", "Market Name", "Commodity", "Variety", "Price Date", "Modal_Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Maharashtra", "Pune", "Pune APMC", "Onion", "Red", 45306, 1800}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := NewXLSXSource(path, DefaultColumns).LoadRecords(context.Background())
	require.NoError(t, err)
	assertRecords(t, sampleRecords()[:1], got)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, err := NewSQLSource("sqlite3", filepath.Join(t.TempDir(), "prices.db"))
	require.NoError(t, err)
	defer src.Close()

	require.NoError(t, src.Migrate(ctx))
	require.NoError(t, src.Migrate(ctx), "migration is idempotent")

	records := sampleRecords()
	require.NoError(t, src.Insert(ctx, records[:2]))
	require.NoError(t, src.Insert(ctx, records[2:]))
	require.NoError(t, src.Insert(ctx, nil))

	got, err := src.LoadRecords(ctx)
	require.NoError(t, err)
	assertRecords(t, records, got)
}

// fakeSearch имитирует bulk, индексацию одного документа и search_after по seq.
// Документы с seq из reject отклоняются один раз со статусом 429.
type fakeSearch struct {
	mu     sync.Mutex
	docs   []map[string]interface{}
	reject map[int]bool
}

func (f *fakeSearch) put(doc map[string]interface{}) {
	for i, d := range f.docs {
		if d["seq"] == doc["seq"] {
			f.docs[i] = doc
			return
		}
	}
	f.docs = append(f.docs, doc)
}

func (f *fakeSearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/_bulk":
		scanner := bufio.NewScanner(r.Body)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		line := 0
		rejected := false
		items := []map[string]interface{}{}
		for scanner.Scan() {
			if line%2 == 1 {
				var doc map[string]interface{}
				if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				seq := int(doc["seq"].(float64))
				status := http.StatusCreated
				if f.reject[seq] {
					delete(f.reject, seq)
					status = http.StatusTooManyRequests
					rejected = true
				} else {
					f.put(doc)
				}
				items = append(items, map[string]interface{}{
					"index": map[string]interface{}{"_id": strconv.Itoa(seq), "status": status},
				})
			}
			line++
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"errors": rejected, "items": items})
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/price_records/_doc/"):
		var doc map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.put(doc)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"_id":%q,"result":"created"}`, strings.TrimPrefix(r.URL.Path, "/price_records/_doc/"))
	case r.URL.Path == "/price_records/_search":
		var query struct {
			Size        int       `json:"size"`
			SearchAfter []float64 `json:"search_after"`
		}
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		after := -1.0
		if len(query.SearchAfter) > 0 {
			after = query.SearchAfter[0]
		}
		docs := append([]map[string]interface{}(nil), f.docs...)
		sort.Slice(docs, func(i, j int) bool { return docs[i]["seq"].(float64) < docs[j]["seq"].(float64) })
		hits := []map[string]interface{}{}
		for _, doc := range docs {
			seq := doc["seq"].(float64)
			if seq > after && len(hits) < query.Size {
				hits = append(hits, map[string]interface{}{"_source": doc, "sort": []float64{seq}})
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"hits": map[string]interface{}{"hits": hits}})
	default:
		http.NotFound(w, r)
	}
}

func newTestElasticsearch(t *testing.T, handler http.Handler) *ElasticsearchStorage {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewElasticsearchStorageWithURL(client, "price_records", srv.URL)
}

func TestElasticsearchBulkAndLoad(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSearch{}
	es := newTestElasticsearch(t, fake)

	records := make([]models.PriceRecord, 0, pageSize+250)
	for i := 0; i < pageSize+250; i++ {
		rec := sampleRecords()[i%3]
		rec.ModalPrice = float64(1000 + i)
		records = append(records, rec)
	}

	require.NoError(t, es.BulkIndexRecords(ctx, records[:600], 0))
	require.NoError(t, es.BulkIndexRecords(ctx, records[600:], 600))
	assert.Len(t, fake.docs, len(records))

	got, err := es.LoadRecords(ctx)
	require.NoError(t, err)
	assertRecords(t, records, got)
}

func TestElasticsearchBulkRejected(t *testing.T) {
	es := newTestElasticsearch(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"errors":true,"items":[]}`)
	}))

	err := es.BulkIndexRecords(context.Background(), sampleRecords(), 0)
	assert.ErrorContains(t, err, "rejected")
}

func TestElasticsearchBulkReportsRejectedSeqs(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSearch{reject: map[int]bool{11: true, 12: true}}
	es := newTestElasticsearch(t, fake)

	err := es.BulkIndexRecords(ctx, sampleRecords(), 10)
	var bulkErr *BulkError
	require.ErrorAs(t, err, &bulkErr)
	assert.Equal(t, []int{11, 12}, bulkErr.Rejected)
	assert.Len(t, fake.docs, 1)
}

func TestElasticsearchIndexRecord(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSearch{}
	es := newTestElasticsearch(t, fake)
	records := sampleRecords()

	require.NoError(t, es.IndexRecord(ctx, 2, records[2]))
	require.NoError(t, es.IndexRecord(ctx, 0, records[0]))
	require.NoError(t, es.IndexRecord(ctx, 1, records[1]))
	// повторная индексация с тем же seq перезаписывает документ
	require.NoError(t, es.IndexRecord(ctx, 1, records[1]))

	got, err := es.LoadRecords(ctx)
	require.NoError(t, err)
	assertRecords(t, records, got)
}

func TestElasticsearchIndexRecordError(t *testing.T) {
	es := newTestElasticsearch(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"mapper_parsing_exception"}}`)
	}))

	err := es.IndexRecord(context.Background(), 0, sampleRecords()[0])
	assert.ErrorContains(t, err, "mapper_parsing_exception")
}

func TestElasticsearchSearchError(t *testing.T) {
	es := newTestElasticsearch(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"index_not_found_exception"}`, http.StatusNotFound)
	}))

	_, err := es.LoadRecords(context.Background())
	assert.ErrorContains(t, err, "status 404")
}

func TestElasticsearchCreateIndex(t *testing.T) {
	var created string
	es := newTestElasticsearch(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/":
			fmt.Fprint(w, `{"name":"node","cluster_name":"test","version":{"number":"8.19.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut:
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body["mappings"] != nil {
				created = r.URL.Path
			}
			fmt.Fprint(w, `{"acknowledged":true}`)
		default:
			http.NotFound(w, r)
		}
	}))

	require.NoError(t, es.CreateIndex(context.Background(), PriceRecordMapping))
	assert.Equal(t, "/price_records", created)
}

func TestOpen(t *testing.T) {
	src, err := Open(&config.Config{DatasetSource: "csv", DatasetPath: "prices.csv"})
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)

	src, err = Open(&config.Config{DatasetSource: "XLSX", DatasetPath: "prices.xlsx"})
	require.NoError(t, err)
	assert.IsType(t, &XLSXSource{}, src)

	src, err = Open(&config.Config{DatasetSource: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLSource{}, src)
	require.NoError(t, src.Close())

	src, err = Open(&config.Config{DatasetSource: "elasticsearch", ElasticsearchURL: "http://localhost:9200", ElasticsearchIndex: "price_records"})
	require.NoError(t, err)
	assert.IsType(t, &ElasticsearchStorage{}, src)

	_, err = Open(&config.Config{DatasetSource: "parquet"})
	assert.ErrorIs(t, err, ErrUnknownSource)
}
