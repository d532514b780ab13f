package handler

import (
	"net/http"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/service"
	"github.com/go-chi/chi/v5"
)

const timeFormat = "2006-01-02T15:04:05Z"

// MarketHandler handles catalog, instrument and portfolio endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

type healthResponse struct {
	Status    string `json:"status"`
	Loaded    bool   `json:"loaded"`
	Scheduler string `json:"scheduler"`
}

type loadResponse struct {
	Instruments []instrumentResponse `json:"instruments"`
	Cash        string               `json:"cash"`
	LoadedAt    string               `json:"loaded_at"`
}

type pricePointResponse struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type instrumentResponse struct {
	Name       string               `json:"name"`
	Price      string               `json:"price"`
	Volatility float64              `json:"volatility"`
	Quantity   int64                `json:"quantity"`
	Change     string               `json:"change"`
	History    []pricePointResponse `json:"history,omitempty"`
}

type instrumentListResponse struct {
	Instruments []instrumentResponse `json:"instruments"`
}

type holdingResponse struct {
	Instrument string `json:"instrument"`
	Quantity   int64  `json:"quantity"`
	Price      string `json:"price"`
	Value      string `json:"value"`
}

type portfolioResponse struct {
	Cash          string            `json:"cash"`
	Holdings      []holdingResponse `json:"holdings"`
	HoldingsValue string            `json:"holdings_value"`
	TotalValue    string            `json:"total_value"`
	UpdatedAt     string            `json:"updated_at"`
}

// Healthz handles GET /healthz.
func (h *MarketHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Loaded:    h.marketSvc.Loaded(),
		Scheduler: h.marketSvc.SchedulerState().String(),
	})
}

// LoadCatalog handles POST /catalog/load.
func (h *MarketHandler) LoadCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := h.marketSvc.Load(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	instruments := snap.Instruments()
	resp := loadResponse{
		Instruments: make([]instrumentResponse, len(instruments)),
		Cash:        snap.Cash.String(),
		LoadedAt:    formatTime(snap.UpdatedAt),
	}
	for i, inst := range instruments {
		resp.Instruments[i] = buildInstrumentResponse(inst.Summary())
	}
	WriteJSON(w, http.StatusCreated, resp)
}

// ListInstruments handles GET /instruments.
func (h *MarketHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.marketSvc.Instruments()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := instrumentListResponse{Instruments: make([]instrumentResponse, len(instruments))}
	for i, inst := range instruments {
		resp.Instruments[i] = buildInstrumentResponse(inst)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetInstrument handles GET /instruments/{name}.
func (h *MarketHandler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	inst, err := h.marketSvc.Instrument(chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInstrumentResponse(inst))
}

// GetPortfolio handles GET /portfolio.
func (h *MarketHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.marketSvc.Portfolio()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := portfolioResponse{
		Cash:          p.Cash.String(),
		Holdings:      make([]holdingResponse, len(p.Holdings)),
		HoldingsValue: p.HoldingsValue.String(),
		TotalValue:    p.TotalValue.String(),
		UpdatedAt:     formatTime(p.UpdatedAt),
	}
	for i, hld := range p.Holdings {
		resp.Holdings[i] = holdingResponse{
			Instrument: hld.Instrument,
			Quantity:   hld.Quantity,
			Price:      hld.Price.String(),
			Value:      hld.Value.String(),
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

func buildInstrumentResponse(inst domain.Instrument) instrumentResponse {
	resp := instrumentResponse{
		Name:       inst.Name,
		Price:      inst.Price.String(),
		Volatility: inst.Volatility,
		Quantity:   inst.Quantity,
		Change:     inst.Change.String(),
	}
	if len(inst.History) > 0 {
		resp.History = make([]pricePointResponse, len(inst.History))
		for i, p := range inst.History {
			resp.History[i] = pricePointResponse{Date: formatTime(p.Time), Value: p.Value.String()}
		}
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
