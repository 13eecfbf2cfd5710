package api

import (
	"net/http"

	"github.com/seenimoa/optiscreen/pkg/models"
)

var investmentConflict = models.FieldErrors{"ticker": "investment with this ticker already exists."}

func bindInvestment(p payload, inv *models.Investment, errs models.FieldErrors) {
	p.str(errs, "ticker", &inv.Ticker)
	p.str(errs, "category", &inv.Category)
	p.str(errs, "screener_type", &inv.ScreenerType)
	p.decimal(errs, "price", models.PriceSpec, &inv.Price)
	p.int64Ptr(errs, "volume", &inv.Volume)
	p.decimal(errs, "market_cap", models.MarketCapSpec, &inv.MarketCap)
	p.intPtr(errs, "options_suitability", &inv.OptionsSuitability)
	p.date(errs, "option_exp", &inv.OptionExp)
	p.str(errs, "description", &inv.Description)
	p.decimal(errs, "opt_val", models.OptValSpec, &inv.OptVal)
	p.decimal(errs, "rsi", models.RSISpec, &inv.RSI)
	p.decimal(errs, "roi", models.ROISpec, &inv.ROI)
	p.decimal(errs, "delta", models.DeltaSpec, &inv.Delta)
	p.boolean(errs, "weekly_options", &inv.WeeklyOptions)

	inv.Normalize()
	_ = merge(errs, inv.Validate())
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	f, errs := investmentFilter(r.URL.Query())
	if errs != nil {
		writeFieldErrors(w, r, errs)
		return
	}
	items, err := s.store.Investments.List(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, listOf(items))
}

func (s *Server) handleGetInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := s.store.Investments.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, inv)
}

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	errs := models.FieldErrors{}
	p.require(errs, "ticker", "category")
	var inv models.Investment
	bindInvestment(p, &inv, errs)
	if len(errs) > 0 {
		writeFieldErrors(w, r, errs)
		return
	}
	if err := s.store.Investments.Create(r.Context(), &inv); err != nil {
		writeStoreError(w, r, err, investmentConflict)
		return
	}
	writeData(w, r, http.StatusCreated, inv)
}

// handleUpdateInvestment serves PUT and, when partial, PATCH.
func (s *Server) handleUpdateInvestment(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		inv, err := s.store.Investments.Get(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, nil)
			return
		}
		p, err := decodePayload(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		errs := models.FieldErrors{}
		if !partial {
			p.require(errs, "ticker", "category")
		}
		bindInvestment(p, inv, errs)
		if len(errs) > 0 {
			writeFieldErrors(w, r, errs)
			return
		}
		if err := s.store.Investments.Update(r.Context(), inv); err != nil {
			writeStoreError(w, r, err, investmentConflict)
			return
		}
		writeData(w, r, http.StatusOK, inv)
	}
}

func (s *Server) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.store.Investments.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
