package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/rl1809/stockcanon/internal/core/domain"
	"github.com/rl1809/stockcanon/internal/core/service"
)

type HTTPHandler struct {
	conversion *service.ConversionService
	stock      *service.StockService
	validate   *validator.Validate
}

type APIResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Data    any               `json:"data,omitempty"`
}

type LocationResponse struct {
	Input    string `json:"input"`
	Location string `json:"location"`
	Status   string `json:"status"`
	Valid    bool   `json:"valid"`
}

type FormatLocationRequest struct {
	Row      string `json:"row" validate:"required,len=1"`
	Level    int    `json:"level"`
	Position int    `json:"position"`
}

type FlatUnitsRequest struct {
	ProductID string                 `json:"product_id" validate:"required,max=64"`
	Quantity  domain.QuantityTriple  `json:"quantity"`
	Fallback  *domain.ConversionRate `json:"fallback,omitempty"`
}

type TripleRequest struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	FlatUnits int    `json:"flat_units"`
}

type SaveRateRequest struct {
	ProductID  string `json:"product_id" validate:"required,max=64"`
	Level1Rate int    `json:"level1_rate" validate:"gte=0"`
	Level2Rate int    `json:"level2_rate" validate:"gte=0"`
}

type RecordStockRequest struct {
	RequestID string                `json:"request_id" validate:"required"`
	ProductID string                `json:"product_id" validate:"required,max=64"`
	Location  string                `json:"location" validate:"required,max=32"`
	Quantity  domain.QuantityTriple `json:"quantity"`
}

type QuantityResponse struct {
	ProductID string                `json:"product_id"`
	Quantity  domain.QuantityTriple `json:"quantity"`
	FlatUnits int                   `json:"flat_units"`
}

type StockResponse struct {
	ID        string                `json:"id"`
	ProductID string                `json:"product_id"`
	Location  string                `json:"location"`
	Quantity  domain.QuantityTriple `json:"quantity"`
}

type LowStockResponse struct {
	ID        string `json:"id"`
	Low       bool   `json:"low"`
	FlatUnits int    `json:"flat_units"`
	Threshold int    `json:"threshold"`
}

func NewHTTPHandler(conversion *service.ConversionService, stock *service.StockService) *HTTPHandler {
	return &HTTPHandler{
		conversion: conversion,
		stock:      stock,
		validate:   validator.New(),
	}
}

// Routes registers every endpoint on a new mux.
func (h *HTTPHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/locations/normalize", h.NormalizeLocation)
	mux.HandleFunc("/api/locations/format", h.FormatLocation)
	mux.HandleFunc("/api/quantities/flat", h.ToFlatUnits)
	mux.HandleFunc("/api/quantities/triple", h.ToTriple)
	mux.HandleFunc("/api/rates", h.SaveRate)
	mux.HandleFunc("/api/stock", h.RecordStock)
	mux.HandleFunc("/api/stock/low", h.LowStock)
	mux.HandleFunc("/api/stock/total", h.ProductTotal)
	return mux
}

func (h *HTTPHandler) NormalizeLocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	if !query.Has("code") {
		writeJSON(w, http.StatusBadRequest, APIResponse{Message: "missing code"})
		return
	}

	res := domain.CanonicalizeLocation(query.Get("code"))
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: LocationResponse{
			Input:    res.Input,
			Location: res.Value,
			Status:   string(res.Status),
			Valid:    res.Valid(),
		},
	})
}

func (h *HTTPHandler) FormatLocation(w http.ResponseWriter, r *http.Request) {
	var req FormatLocationRequest
	if !h.decode(w, r, &req) {
		return
	}

	location, err := domain.FormatLocation(req.Row, req.Level, req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]string{"location": location}})
}

func (h *HTTPHandler) ToFlatUnits(w http.ResponseWriter, r *http.Request) {
	var req FlatUnitsRequest
	if !h.decode(w, r, &req) {
		return
	}

	flat, err := h.conversion.ToFlatUnits(r.Context(), req.ProductID, req.Quantity, req.Fallback)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    QuantityResponse{ProductID: req.ProductID, Quantity: req.Quantity, FlatUnits: flat},
	})
}

func (h *HTTPHandler) ToTriple(w http.ResponseWriter, r *http.Request) {
	var req TripleRequest
	if !h.decode(w, r, &req) {
		return
	}

	q, err := h.conversion.ToTriple(r.Context(), req.ProductID, req.FlatUnits)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    QuantityResponse{ProductID: req.ProductID, Quantity: q, FlatUnits: req.FlatUnits},
	})
}

func (h *HTTPHandler) SaveRate(w http.ResponseWriter, r *http.Request) {
	var req SaveRateRequest
	if !h.decode(w, r, &req) {
		return
	}

	rate := domain.ConversionRate{Level1Rate: req.Level1Rate, Level2Rate: req.Level2Rate}
	if err := h.conversion.SaveRate(r.Context(), req.ProductID, rate); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "rate saved"})
}

func (h *HTTPHandler) RecordStock(w http.ResponseWriter, r *http.Request) {
	var req RecordStockRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.stock.RecordStock(r.Context(), req.RequestID, service.StockInput{
		ProductID: req.ProductID,
		Location:  req.Location,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data: StockResponse{
			ID:        record.ID,
			ProductID: record.ProductID,
			Location:  record.Location,
			Quantity:  record.Quantity,
		},
	})
}

func (h *HTTPHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	threshold, err := strconv.Atoi(r.URL.Query().Get("threshold"))
	if id == "" || err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{Message: "id and numeric threshold are required"})
		return
	}

	low, flat, err := h.stock.IsLowStock(r.Context(), id, threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    LowStockResponse{ID: id, Low: low, FlatUnits: flat, Threshold: threshold},
	})
}

func (h *HTTPHandler) ProductTotal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, APIResponse{Message: "missing product_id"})
		return
	}

	total, flat, err := h.stock.ProductTotal(r.Context(), productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    QuantityResponse{ProductID: productID, Quantity: total, FlatUnits: flat},
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a POST JSON body into dst and validates it, writing the error
// response itself when it returns false.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{Message: "invalid request body"})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make(map[string]string, len(validationErrors))
			for _, fe := range validationErrors {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, APIResponse{Message: "missing required fields", Errors: fields})
			return false
		}
		writeJSON(w, http.StatusBadRequest, APIResponse{Message: "invalid request body"})
		return false
	}
	return true
}

// errorStatus maps core and service errors onto HTTP status codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrRange),
		errors.Is(err, domain.ErrDivision),
		errors.Is(err, domain.ErrMissingRate),
		errors.Is(err, service.ErrInvalidLocation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrRateNotFound),
		errors.Is(err, service.ErrStockNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(w http.ResponseWriter, err error) {
	status, message := errorStatus(err)
	writeJSON(w, status, APIResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
