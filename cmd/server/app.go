package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/akozadaev/go_farm_assist/internal/codec"
	"github.com/akozadaev/go_farm_assist/internal/config"
	"github.com/akozadaev/go_farm_assist/internal/crop"
	"github.com/akozadaev/go_farm_assist/internal/dataset"
	"github.com/akozadaev/go_farm_assist/internal/handlers"
	"github.com/akozadaev/go_farm_assist/internal/market"
	"github.com/akozadaev/go_farm_assist/internal/modelserver"
	"github.com/akozadaev/go_farm_assist/internal/oracle"
	"github.com/akozadaev/go_farm_assist/internal/storage"
	"github.com/akozadaev/go_farm_assist/internal/weather"
	httpSwagger "github.com/swaggo/http-swagger"
)

// buildRouter загружает справочные данные и собирает HTTP обработчики.
// Все данные загружаются один раз при старте и дальше только читаются.
func buildRouter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	src, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open dataset source: %w", err)
	}
	defer src.Close()

	raw, err := src.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load price records: %w", err)
	}
	logger.Info("dataset_loaded", "source", cfg.DatasetSource, "records", len(raw))

	var c *codec.Codec
	if cfg.EncodersPath != "" {
		c, err = codec.Load(cfg.EncodersPath)
	} else {
		c, err = codec.Fit(dataset.Vocabulary(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("build encoders: %w", err)
	}

	ds, err := dataset.Encode(raw, c)
	if err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}

	var priceOracle oracle.PriceOracle
	var advisor *crop.Advisor
	if cfg.ModelServerURL != "" {
		client := modelserver.NewClient(cfg.ModelServerURL, cfg.OracleTimeout)
		priceOracle = oracle.NewRemote(client, cfg.PriceModel)
		provider := weather.NewWeatherAPI(cfg.WeatherAPIURL, cfg.WeatherAPIKey, cfg.WeatherTimeout, logger)
		advisor = crop.NewAdvisor(crop.NewRemoteClassifier(client, cfg.CropModel), provider, nil, logger)
	} else {
		priceOracle = oracle.NewHistorical(ds, oracle.DefaultWindow)
		logger.Warn("model_server_not_configured", "oracle", priceOracle.Name(), "crop_endpoint", "disabled")
	}

	engine, err := market.NewEngine(ds, c, priceOracle, market.EngineConfig{
		OracleTimeout: cfg.OracleTimeout,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create market engine: %w", err)
	}
	logger.Info("market_engine_ready",
		"oracle", priceOracle.Name(),
		"states", c.Len(codec.State),
		"markets", c.Len(codec.Market),
		"commodities", c.Len(codec.Commodity),
	)

	h := handlers.NewHandlers(engine, c, advisor, logger)
	router := h.Router()

	// Swagger UI
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	return router, nil
}
