// Package handlers содержит HTTP обработчики REST API FarmAssist.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/akozadaev/go_farm_assist/internal/codec"
	"github.com/akozadaev/go_farm_assist/internal/crop"
	"github.com/akozadaev/go_farm_assist/internal/fertilizer"
	"github.com/akozadaev/go_farm_assist/internal/market"
	"github.com/akozadaev/go_farm_assist/internal/models"
	"github.com/gorilla/mux"
)

// MsgNoDataFound - ответ клиенту, когда у района нет истории по культуре.
const MsgNoDataFound = "No data found for this combination."

// Handlers содержит зависимости для обработки HTTP запросов.
// Все зависимости только читаются, поэтому обработчики безопасны для параллельных запросов.
type Handlers struct {
	engine  *market.Engine // Сравнение рынков
	codec   *codec.Codec   // Словари категориальных признаков
	advisor *crop.Advisor  // Рекомендация культуры; nil - эндпоинт недоступен
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandlers создает новый экземпляр Handlers.
func NewHandlers(engine *market.Engine, c *codec.Codec, advisor *crop.Advisor, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Handlers{
		engine:  engine,
		codec:   c,
		advisor: advisor,
		logger:  logger,
		now:     time.Now,
	}
}

// Router регистрирует все маршруты API и middleware.
func (h *Handlers) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware, RecoveryMiddleware(h.logger), LoggingMiddleware(h.logger), CORSMiddleware)

	router.HandleFunc("/", h.Home).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/predict_market", h.PredictMarket).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/predict_crop", h.PredictCrop).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/predict_fertilizer", h.PredictFertilizer).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/fertilizer/crops", h.FertilizerCrops).Methods(http.MethodGet)
	router.HandleFunc("/categories/{namespace}", h.Categories).Methods(http.MethodGet)
	return router
}

// PredictMarket обрабатывает POST запрос на прогноз цены и сравнение рынков штата.
// Эндпоинт: POST /predict_market
//
// @Summary      Прогноз цены и лучшие рынки
// @Description  Предсказывает модальную цену культуры в районе пользователя и ранжирует рынки штата по предсказанной цене (топ-3). weight по умолчанию 1, cost по умолчанию 0; оба принимаются числом или строкой с числом.
// @Tags         market
// @Accept       json
// @Produce      json
// @Param        request  body      models.MarketRequest  true  "Запрос на прогноз"
// @Success      200      {object}  models.MarketResponse
// @Failure      400      {object}  models.ErrorResponse  "Неверный запрос или неизвестное значение"
// @Failure      404      {object}  models.ErrorResponse  "Нет истории по району и культуре"
// @Failure      502      {object}  models.ErrorResponse  "Модель цены недоступна"
// @Router       /predict_market [post]
func (h *Handlers) PredictMarket(w http.ResponseWriter, r *http.Request) {
	var req models.MarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.State == "" || req.District == "" || req.Commodity == "" {
		writeError(w, http.StatusBadRequest, "state, district and commodity are required")
		return
	}

	weight, cost := 1.0, 0.0
	if req.Weight != nil {
		weight = float64(*req.Weight)
	}
	if req.Cost != nil {
		cost = float64(*req.Cost)
	}

	q := market.Query{Date: h.now(), Weight: weight, Cost: cost}
	for _, f := range []struct {
		ns    codec.Namespace
		value string
		dst   *codec.Code
	}{
		{codec.State, req.State, &q.State},
		{codec.District, req.District, &q.District},
		{codec.Commodity, req.Commodity, &q.Commodity},
	} {
		code, err := h.codec.Encode(f.ns, f.value)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown %s: %s", f.ns, f.value))
			return
		}
		*f.dst = code
	}

	rec, err := h.engine.Recommend(r.Context(), q)
	switch {
	case err == nil:
	case errors.Is(err, market.ErrNoDataFound):
		writeError(w, http.StatusNotFound, MsgNoDataFound)
		return
	case errors.Is(err, market.ErrNoCandidatesFound):
		writeError(w, http.StatusNotFound, "No markets with price history found in this state.")
		return
	case errors.Is(err, market.ErrPrediction):
		writeError(w, http.StatusBadGateway, "Price prediction failed. Please try again later.")
		return
	default:
		h.logger.Error("market_recommendation_failed", "request_id", RequestIDFrom(r.Context()), "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, models.MarketResponse{
		PredictedPrice:  market.RoundPrice(rec.LocalPrice),
		FormattedOutput: rec.Format(req.State, req.District, req.Commodity),
	})
}

// PredictCrop обрабатывает POST запрос на рекомендацию культуры по составу почвы и погоде.
// Эндпоинт: POST /predict_crop
//
// @Summary      Рекомендация культуры
// @Description  Подбирает культуру по N, P, K, pH почвы, текущей погоде в районе и сезону. При недоступности погодного API используются запасные значения.
// @Tags         crop
// @Accept       json
// @Produce      json
// @Param        request  body      models.CropRequest  true  "Состав почвы и район"
// @Success      200      {object}  models.CropResponse
// @Failure      400      {object}  models.ErrorResponse  "Неверный запрос"
// @Failure      502      {object}  models.ErrorResponse  "Классификатор недоступен"
// @Failure      503      {object}  models.ErrorResponse  "Классификатор не настроен"
// @Router       /predict_crop [post]
func (h *Handlers) PredictCrop(w http.ResponseWriter, r *http.Request) {
	if h.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "Crop recommendation is not configured")
		return
	}

	var req models.CropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.advisor.Recommend(r.Context(), crop.Input{
		N:        req.N,
		P:        req.P,
		K:        req.K,
		PH:       req.PH,
		District: req.District,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, "Crop prediction failed. Please try again later.")
		return
	}

	writeJSON(w, http.StatusOK, models.CropResponse{
		RecommendedCrop: result.Crop,
		FormattedOutput: result.Format(),
	})
}

// PredictFertilizer обрабатывает POST запрос на подбор удобрений по уровню NPK.
// Эндпоинт: POST /predict_fertilizer
//
// @Summary      Рекомендации по удобрениям
// @Description  Сравнивает N, P, K почвы с нормой для культуры и возвращает рекомендации по удобрениям.
// @Tags         fertilizer
// @Accept       json
// @Produce      json
// @Param        request  body      models.FertilizerRequest  true  "Культура и уровни NPK"
// @Success      200      {object}  models.FertilizerResponse
// @Failure      400      {object}  models.ErrorResponse  "Неверный запрос"
// @Failure      404      {object}  models.ErrorResponse  "Культура не найдена"
// @Router       /predict_fertilizer [post]
func (h *Handlers) PredictFertilizer(w http.ResponseWriter, r *http.Request) {
	var req models.FertilizerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Crop) == "" {
		writeError(w, http.StatusBadRequest, "crop is required")
		return
	}

	advice, err := fertilizer.Advise(req.Crop, fertilizer.NPK{N: req.N, P: req.P, K: req.K})
	if err != nil {
		writeError(w, http.StatusNotFound, "Sorry, crop not found in fertilizer database.")
		return
	}

	writeJSON(w, http.StatusOK, models.FertilizerResponse{
		Crop:            advice.Crop,
		FormattedOutput: advice.Format(),
	})
}

// FertilizerCrops возвращает культуры, для которых известна норма NPK.
// Эндпоинт: GET /fertilizer/crops
//
// @Summary      Культуры справочника удобрений
// @Description  Возвращает названия культур, которые принимает /predict_fertilizer, в алфавитном порядке.
// @Tags         fertilizer
// @Produce      json
// @Success      200  {object}  models.CategoriesResponse
// @Router       /fertilizer/crops [get]
func (h *Handlers) FertilizerCrops(w http.ResponseWriter, r *http.Request) {
	crops := fertilizer.Crops()
	writeJSON(w, http.StatusOK, models.CategoriesResponse{
		Namespace: "fertilizer_crop",
		Values:    crops,
		Total:     len(crops),
	})
}

// Categories обрабатывает GET запрос на получение словаря категориального признака.
// Эндпоинт: GET /categories/{namespace}
//
// @Summary      Словарь признака
// @Description  Возвращает допустимые значения state, district, market, commodity или variety в порядке кодов.
// @Tags         categories
// @Produce      json
// @Param        namespace  path      string  true  "Пространство имен"  Enums(state, district, market, commodity, variety)
// @Success      200        {object}  models.CategoriesResponse
// @Failure      404        {object}  models.ErrorResponse  "Неизвестное пространство имен"
// @Router       /categories/{namespace} [get]
func (h *Handlers) Categories(w http.ResponseWriter, r *http.Request) {
	ns, err := codec.ParseNamespace(mux.Vars(r)["namespace"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	values := h.codec.Classes(ns)
	writeJSON(w, http.StatusOK, models.CategoriesResponse{
		Namespace: string(ns),
		Values:    values,
		Total:     len(values),
	})
}

// Home отвечает простым текстом, что сервер запущен.
// Эндпоинт: GET /
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "FarmAssist server running")
}

// HealthCheck обрабатывает GET запрос на проверку работоспособности сервиса.
// Эндпоинт: GET /health
//
// @Summary      Проверка работоспособности сервиса
// @Description  Возвращает статус сервиса. Используется для мониторинга и проверки доступности.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
