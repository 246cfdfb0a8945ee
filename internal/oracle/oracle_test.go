package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/dataset"
	"github.com/akozadaev/go_farm_assist/internal/modelserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureRowOrder(t *testing.T) {
	row := FeatureRow{State: 1, District: 2, Market: 3, Commodity: 4, Variety: 5, DayOrdinal: 738960}
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 738960}, row.Values())
}

func TestRemoteSendsRowsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Instances [][]float64 `json:"instances"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		preds := make([]float64, len(body.Instances))
		for i, row := range body.Instances {
			preds[i] = row[2] * 100
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"predictions": preds})
	}))
	defer srv.Close()

	o := NewRemote(modelserver.NewClient(srv.URL, time.Second), "price")
	assert.Equal(t, "remote:price", o.Name())

	got, err := o.PredictBatch(context.Background(), []FeatureRow{{Market: 3}, {Market: 1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{300, 100}, got)
}

func TestHistorical(t *testing.T) {
	ds := dataset.New([]dataset.Record{
		{District: 1, Market: 10, Commodity: 1, Variety: 1, DayOrdinal: 100, Price: 1000},
		{District: 1, Market: 10, Commodity: 1, Variety: 1, DayOrdinal: 200, Price: 2000},
		{District: 1, Market: 10, Commodity: 1, Variety: 1, DayOrdinal: 300, Price: 3000},
		{District: 1, Market: 11, Commodity: 1, Variety: 2, DayOrdinal: 300, Price: 500},
		{District: 2, Market: 20, Commodity: 2, Variety: 1, DayOrdinal: 300, Price: 700},
	})
	h := NewHistorical(ds, 2)
	ctx := context.Background()

	t.Run("nearest observations by market", func(t *testing.T) {
		got, err := h.PredictBatch(ctx, []FeatureRow{{District: 1, Market: 10, Commodity: 1, Variety: 1, DayOrdinal: 290}})
		require.NoError(t, err)
		// ближайшие два: 300 (3000) и 200 (2000)
		assert.Equal(t, []float64{2500}, got)
	})

	t.Run("falls back to district", func(t *testing.T) {
		got, err := h.PredictBatch(ctx, []FeatureRow{{District: 1, Market: 99, Commodity: 1, Variety: 1, DayOrdinal: 300}})
		require.NoError(t, err)
		// в районе ближайшие к 300: 3000 и 500
		assert.Equal(t, []float64{1750}, got)
	})

	t.Run("falls back to commodity", func(t *testing.T) {
		got, err := h.PredictBatch(ctx, []FeatureRow{{District: 9, Market: 99, Commodity: 2, DayOrdinal: 1}})
		require.NoError(t, err)
		assert.Equal(t, []float64{700}, got)
	})

	t.Run("unknown commodity", func(t *testing.T) {
		_, err := h.PredictBatch(ctx, []FeatureRow{{Commodity: 5}})
		assert.ErrorIs(t, err, ErrNoHistory)
	})
}

func TestFunc(t *testing.T) {
	var o PriceOracle = Func(func(_ context.Context, rows []FeatureRow) ([]float64, error) {
		return make([]float64, len(rows)), nil
	})
	got, err := o.PredictBatch(context.Background(), []FeatureRow{{}, {}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
