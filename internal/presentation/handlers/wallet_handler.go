package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-api/internal/application/services"
	"github.com/bimakw/wallet-api/internal/domain/entities"
)

const maxBodyBytes = 1 << 20

// WalletHandler handles HTTP requests for the wallet and its assets
type WalletHandler struct {
	service    *services.WalletService
	logger     *zap.Logger
	validate   *validator.Validate
	strictJSON bool
}

// NewWalletHandler creates a new wallet handler. With strictJSON set, request
// bodies carrying unknown fields are rejected.
func NewWalletHandler(service *services.WalletService, logger *zap.Logger, strictJSON bool) *WalletHandler {
	return &WalletHandler{
		service:    service,
		logger:     logger,
		validate:   newValidator(),
		strictJSON: strictJSON,
	}
}

// RegisterRoutes registers the wallet routes
func (h *WalletHandler) RegisterRoutes(r chi.Router) {
	r.Get("/wallet", h.GetWallet)
	r.Put("/wallet", h.ReplaceWallet)
	r.Post("/wallet/assets", h.AddAsset)
	r.Put("/wallet/assets/{id}", h.UpdateAsset)
	r.Delete("/wallet/assets/{id}", h.DeleteAsset)
}

type pnlRequest struct {
	Value      *float64 `json:"value" validate:"required"`
	Percentage string   `json:"percentage" validate:"required"`
}

type walletAssetRequest struct {
	ID                 string   `json:"id" validate:"omitempty,uuid"`
	Symbol             string   `json:"symbol" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	Balance            *float64 `json:"balance" validate:"required"`
	Equivalent         *float64 `json:"equivalent" validate:"required"`
	EquivalentCurrency string   `json:"equivalentCurrency" validate:"required"`
	Icon               string   `json:"icon" validate:"required"`
}

type walletRequest struct {
	Balance            *float64             `json:"balance" validate:"required"`
	Currency           string               `json:"currency" validate:"required"`
	EquivalentBalance  *float64             `json:"equivalentBalance" validate:"required"`
	EquivalentCurrency string               `json:"equivalentCurrency" validate:"required"`
	Pnl                *pnlRequest          `json:"pnl" validate:"required"`
	Assets             []walletAssetRequest `json:"assets" validate:"required,dive"`
}

type createAssetRequest struct {
	Symbol             string   `json:"symbol" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	Balance            *float64 `json:"balance" validate:"required"`
	Equivalent         *float64 `json:"equivalent" validate:"required"`
	EquivalentCurrency string   `json:"equivalentCurrency" validate:"required"`
	Icon               string   `json:"icon"`
}

type updateAssetRequest struct {
	ID                 string   `json:"id" validate:"required,uuid"`
	Symbol             string   `json:"symbol" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	Balance            *float64 `json:"balance" validate:"required"`
	Equivalent         *float64 `json:"equivalent" validate:"required"`
	EquivalentCurrency string   `json:"equivalentCurrency" validate:"required"`
	Icon               string   `json:"icon"`
}

// GetWallet handles GET /api/wallet
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.GetWallet(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "Failed to get wallet")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// ReplaceWallet handles PUT /api/wallet
func (h *WalletHandler) ReplaceWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	input := services.WalletInput{
		Balance:            *req.Balance,
		Currency:           req.Currency,
		EquivalentBalance:  *req.EquivalentBalance,
		EquivalentCurrency: req.EquivalentCurrency,
		Pnl: entities.Pnl{
			Value:      *req.Pnl.Value,
			Percentage: req.Pnl.Percentage,
		},
		Assets: make([]services.AssetInput, len(req.Assets)),
	}
	for i, a := range req.Assets {
		input.Assets[i] = services.AssetInput{
			ID:                 a.ID,
			Symbol:             a.Symbol,
			Name:               a.Name,
			Balance:            *a.Balance,
			Equivalent:         *a.Equivalent,
			EquivalentCurrency: a.EquivalentCurrency,
			Icon:               a.Icon,
		}
	}

	response, err := h.service.ReplaceWallet(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err, "Failed to update wallet")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// AddAsset handles POST /api/wallet/assets
func (h *WalletHandler) AddAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	response, err := h.service.AddAsset(r.Context(), services.AssetInput{
		Symbol:             req.Symbol,
		Name:               req.Name,
		Balance:            *req.Balance,
		Equivalent:         *req.Equivalent,
		EquivalentCurrency: req.EquivalentCurrency,
		Icon:               req.Icon,
	})
	if err != nil {
		h.handleServiceError(w, err, "Failed to add asset")
		return
	}

	h.respondJSON(w, http.StatusCreated, response)
}

// UpdateAsset handles PUT /api/wallet/assets/{id}
func (h *WalletHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateAssetRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	response, err := h.service.UpdateAsset(r.Context(), id, services.AssetInput{
		Symbol:             req.Symbol,
		Name:               req.Name,
		Balance:            *req.Balance,
		Equivalent:         *req.Equivalent,
		EquivalentCurrency: req.EquivalentCurrency,
		Icon:               req.Icon,
	})
	if err != nil {
		h.handleServiceError(w, err, "Failed to update asset", zap.String("asset_id", id))
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// DeleteAsset handles DELETE /api/wallet/assets/{id}
func (h *WalletHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteAsset(r.Context(), id); err != nil {
		h.handleServiceError(w, err, "Failed to delete asset", zap.String("asset_id", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeAndValidate reads the JSON body into dst and runs struct validation.
// It writes a 400 response and returns false on any failure.
func (h *WalletHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if h.strictJSON {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, decodeErrorMessage(err))
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "Request body must contain a single JSON object")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}

	return true
}

func (h *WalletHandler) handleServiceError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, services.ErrWalletNotFound):
		h.respondError(w, http.StatusNotFound, "Wallet not found")
	case errors.Is(err, services.ErrAssetNotFound):
		h.respondError(w, http.StatusNotFound, assetNotFoundMessage(err))
	case errors.Is(err, services.ErrDuplicateAssetID):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict):
		h.respondError(w, http.StatusConflict, "Wallet was modified concurrently, retry the request")
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		h.respondError(w, http.StatusInternalServerError, msg)
	}
}

func (h *WalletHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *WalletHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func assetNotFoundMessage(err error) string {
	var notFound *services.AssetNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("Asset with ID %s not found", notFound.ID)
	}
	return "Asset not found"
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func decodeErrorMessage(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return "Request body is required"
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "Malformed JSON body"
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return "Request body must be a JSON object"
		}
		return fmt.Sprintf("%s must be a %s", typeErr.Field, jsonTypeName(typeErr.Type))
	case errors.As(err, &maxErr):
		return "Request body too large"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "Unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	default:
		return "Invalid request body"
	}
}

func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Slice:
		return "array"
	case reflect.Struct:
		return "object"
	default:
		return t.Kind().String()
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "uuid":
			msgs = append(msgs, field+" must be a valid UUID")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
