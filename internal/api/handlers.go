package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"MomentumWatch/internal/calculator"
	"MomentumWatch/internal/model"
	"MomentumWatch/internal/scanner"
	"MomentumWatch/internal/scheduler"
)

type scanResponse struct {
	Status      model.Status          `json:"status"`
	Source      model.Source          `json:"source,omitempty"`
	Demo        bool                  `json:"demo"`
	LastError   string                `json:"last_error,omitempty"`
	LastRun     time.Time             `json:"last_run"`
	ScannedAt   time.Time             `json:"scanned_at"`
	Universe    int                   `json:"universe"`
	Gappers     []model.DerivedRecord `json:"gappers"`
	Momentum    []model.DerivedRecord `json:"momentum"`
	HighRVol    []model.DerivedRecord `json:"high_rvol"`
	Highlighted []string              `json:"highlighted"`
}

type viewResponse struct {
	View    model.View            `json:"view"`
	Status  model.Status          `json:"status"`
	Records []model.DerivedRecord `json:"records"`
}

type tickerResponse struct {
	Record       model.DerivedRecord `json:"record"`
	Fundamentals *model.Fundamentals `json:"fundamentals,omitempty"`
}

func nonNil(list []model.DerivedRecord) []model.DerivedRecord {
	if list == nil {
		return []model.DerivedRecord{}
	}
	return list
}

func newScanResponse(st scheduler.State, alerts Alerts) scanResponse {
	resp := scanResponse{
		Status:      st.Status,
		Demo:        st.Demo,
		LastError:   st.LastError,
		LastRun:     st.LastRun,
		Highlighted: []string{},
	}
	if res := st.Result; res != nil {
		resp.Source = res.Source
		resp.ScannedAt = res.ScannedAt
		resp.Universe = res.Universe
		resp.Gappers = res.Gappers
		resp.Momentum = res.Momentum
		resp.HighRVol = res.HighRVol
	}
	resp.Gappers = nonNil(resp.Gappers)
	resp.Momentum = nonNil(resp.Momentum)
	resp.HighRVol = nonNil(resp.HighRVol)
	if alerts != nil {
		if hl := alerts.Highlights(); hl != nil {
			resp.Highlighted = hl
		}
	}
	return resp
}

func (api *API) snapshotMessage() Message {
	scan := newScanResponse(api.Scanner.State(), api.Alerts)
	return Message{Type: "snapshot", Scan: &scan}
}

func (api *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := api.Scanner.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"status": st.Status,
		"demo":   st.Demo,
	})
}

func (api *API) handleScan(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newScanResponse(api.Scanner.State(), api.Alerts))
}

func (api *API) handleScanView(w http.ResponseWriter, r *http.Request) {
	view := model.View(chi.URLParam(r, "view"))
	switch view {
	case model.ViewGappers, model.ViewMomentum, model.ViewHighRVol:
	default:
		writeError(w, http.StatusNotFound, "unknown view: "+string(view))
		return
	}

	st := api.Scanner.State()
	records := st.Result.View(view)
	if v := r.URL.Query().Get("setups"); v != "" {
		only, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "setups must be a boolean")
			return
		}
		if only {
			records = scanner.SetupsOnly(records)
		}
	}
	writeJSON(w, http.StatusOK, viewResponse{View: view, Status: st.Status, Records: nonNil(records)})
}

func (api *API) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := []model.Alert{}
	if api.Alerts != nil {
		if recent := api.Alerts.Recent(); recent != nil {
			alerts = recent
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (api *API) handleTicker(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	t, found, err := api.Quotes.Ticker(r.Context(), symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("ticker lookup failed")
		writeError(w, http.StatusBadGateway, "quotes provider unavailable")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown symbol: "+symbol)
		return
	}

	var prev *model.DerivedRecord
	if rec, ok := api.Scanner.State().Result.Union()[t.Symbol]; ok {
		prev = &rec
	}
	resp := tickerResponse{}
	if f, ok := api.Fundamentals.Lookup(t.Symbol); ok {
		resp.Fundamentals = &f
	}
	resp.Record = calculator.Derive(t, prev, resp.Fundamentals)
	writeJSON(w, http.StatusOK, resp)
}

func (api *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	results, err := api.Quotes.Search(r.Context(), query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("search failed")
		writeError(w, http.StatusBadGateway, "quotes provider unavailable")
		return
	}
	if results == nil {
		results = []model.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (api *API) handleLosers(w http.ResponseWriter, r *http.Request) {
	tickers, err := api.Quotes.Losers(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("losers fetch failed")
		writeError(w, http.StatusBadGateway, "quotes provider unavailable")
		return
	}
	records := make([]model.DerivedRecord, 0, len(tickers))
	for _, t := range tickers {
		var f *model.Fundamentals
		if v, ok := api.Fundamentals.Lookup(t.Symbol); ok {
			f = &v
		}
		rec := calculator.Derive(t, nil, f)
		if rec.Price <= 0 {
			continue
		}
		records = append(records, rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (api *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// The cycle is shared state; a client going away must not abort it.
	_, err := api.Scanner.RunNow(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, scheduler.ErrCycleInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, newScanResponse(api.Scanner.State(), api.Alerts))
	}
}
