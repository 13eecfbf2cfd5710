package api

import (
	"net/http"

	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

var statementConflict = models.FieldErrors{
	"non_field_errors": "The fields symbol, target_currency, period_type, statement_type must make a unique set.",
}

func (s *Server) handleListFinancials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := s.store.Financials.List(r.Context(), store.FinancialFilter{
		Symbol:         q.Get("symbol"),
		TargetCurrency: q.Get("target_currency"),
		PeriodType:     q.Get("period_type"),
		StatementType:  q.Get("statement_type"),
	})
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, listOf(items))
}

func (s *Server) handleGetFinancial(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	fs, err := s.store.Financials.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, fs)
}

func bindFinancial(p payload, fs *models.FinancialStatement, errs models.FieldErrors) {
	p.str(errs, "symbol", &fs.Symbol)
	p.str(errs, "target_currency", &fs.TargetCurrency)
	p.str(errs, "period_type", &fs.PeriodType)
	p.str(errs, "statement_type", &fs.StatementType)
	p.rawJSON(errs, "payload", false, &fs.Payload)
	fs.Normalize()
	_ = merge(errs, fs.Validate())
}

func (s *Server) handleCreateFinancial(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	errs := models.FieldErrors{}
	p.require(errs, "symbol", "statement_type")
	fs := models.FinancialStatement{
		TargetCurrency: models.DefaultTargetCurrency,
		PeriodType:     models.DefaultPeriodType,
	}
	bindFinancial(p, &fs, errs)
	if len(errs) > 0 {
		writeFieldErrors(w, r, errs)
		return
	}
	if err := s.store.Financials.Create(r.Context(), &fs); err != nil {
		writeStoreError(w, r, err, statementConflict)
		return
	}
	writeData(w, r, http.StatusCreated, fs)
}

func (s *Server) handleUpdateFinancial(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		fs, err := s.store.Financials.Get(r.Context(), id)
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
			p.require(errs, "symbol", "statement_type")
		}
		bindFinancial(p, fs, errs)
		if len(errs) > 0 {
			writeFieldErrors(w, r, errs)
			return
		}
		if err := s.store.Financials.Update(r.Context(), fs); err != nil {
			writeStoreError(w, r, err, statementConflict)
			return
		}
		writeData(w, r, http.StatusOK, fs)
	}
}

func (s *Server) handleDeleteFinancial(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.store.Financials.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := s.store.Reports.List(r.Context(), store.ReportFilter{
		Symbol: q.Get("symbol"),
		Rating: q.Get("rating"),
	})
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, listOf(items))
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	rep, err := s.store.Reports.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, rep)
}

func bindReport(p payload, rep *models.DueDiligenceReport, errs models.FieldErrors) {
	p.str(errs, "symbol", &rep.Symbol)
	p.str(errs, "rating", &rep.Rating)
	p.float(errs, "confidence", &rep.Confidence)
	p.str(errs, "model_name", &rep.ModelName)
	p.rawJSON(errs, "report", false, &rep.Report)
	p.rawJSON(errs, "financial_data", false, &rep.FinancialData)
	rep.Normalize()
	_ = merge(errs, rep.Validate())
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	errs := models.FieldErrors{}
	p.require(errs, "symbol", "rating")
	var rep models.DueDiligenceReport
	bindReport(p, &rep, errs)
	if len(errs) > 0 {
		writeFieldErrors(w, r, errs)
		return
	}
	if err := s.store.Reports.Create(r.Context(), &rep); err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusCreated, rep)
}

func (s *Server) handleUpdateReport(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		rep, err := s.store.Reports.Get(r.Context(), id)
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
			p.require(errs, "symbol", "rating")
		}
		bindReport(p, rep, errs)
		if len(errs) > 0 {
			writeFieldErrors(w, r, errs)
			return
		}
		if err := s.store.Reports.Update(r.Context(), rep); err != nil {
			writeStoreError(w, r, err, nil)
			return
		}
		writeData(w, r, http.StatusOK, rep)
	}
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.store.Reports.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCboe(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.Cboe.List(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, listOf(items))
}

func (s *Server) handleGetCboe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	sec, err := s.store.Cboe.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, sec)
}
