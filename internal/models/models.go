package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PriceRecord представляет строку исторического датасета цен (до кодирования).
// Этот же документ хранится в Elasticsearch и в таблице price_records.
type PriceRecord struct {
	State      string    `json:"state" db:"state"`
	District   string    `json:"district" db:"district"`
	Market     string    `json:"market" db:"market"`
	Commodity  string    `json:"commodity" db:"commodity"`
	Variety    string    `json:"variety" db:"variety"`
	PriceDate  time.Time `json:"price_date" db:"price_date"`
	ModalPrice float64   `json:"modal_price" db:"modal_price"`
}

// MarketRequest представляет запрос на прогноз рыночной цены
type MarketRequest struct {
	State     string  `json:"state" example:"Maharashtra"`
	District  string  `json:"district" example:"Pune"`
	Commodity string  `json:"commodity" example:"Onion"`
	Weight    *Number `json:"weight,omitempty" swaggertype:"number" example:"2"`
	Cost      *Number `json:"cost,omitempty" swaggertype:"number" example:"500"`
}

// Number - число в JSON, которое клиент может прислать и строкой: 2, 2.5, "2".
type Number float64

// UnmarshalJSON принимает JSON число или строку с числом.
func (n *Number) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid number: %s", data)
	}
	*n = Number(v)
	return nil
}

// MarketResponse представляет ответ с прогнозом цены и текстом для клиента
type MarketResponse struct {
	PredictedPrice  float64 `json:"predicted_price"`
	FormattedOutput string  `json:"formatted_output"`
}

// CropRequest представляет запрос на рекомендацию культуры
type CropRequest struct {
	N        float64 `json:"N" example:"90"`
	P        float64 `json:"P" example:"42"`
	K        float64 `json:"K" example:"43"`
	PH       float64 `json:"ph" example:"6.5"`
	District string  `json:"district" example:"Pune"`
}

// CropResponse представляет ответ с рекомендованной культурой
type CropResponse struct {
	RecommendedCrop string `json:"recommended_crop"`
	FormattedOutput string `json:"formatted_output"`
}

// FertilizerRequest представляет запрос на подбор удобрений
type FertilizerRequest struct {
	Crop string  `json:"crop" example:"rice"`
	N    float64 `json:"N" example:"80"`
	P    float64 `json:"P" example:"40"`
	K    float64 `json:"K" example:"45"`
}

// FertilizerResponse представляет ответ с рекомендациями по удобрениям
type FertilizerResponse struct {
	Crop            string `json:"crop"`
	FormattedOutput string `json:"formatted_output"`
}

// CategoriesResponse представляет словарь одного категориального признака
type CategoriesResponse struct {
	Namespace string   `json:"namespace"`
	Values    []string `json:"values"`
	Total     int      `json:"total"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}
