package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/seenimoa/optiscreen/internal/store"
	"github.com/seenimoa/optiscreen/pkg/models"
)

var screenerTypeConflict = models.FieldErrors{"name": "screener type with this name already exists."}

func (s *Server) handleListScreenerTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.store.Screeners.ListTypes(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, listOf(types))
}

func (s *Server) handleGetScreenerType(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	st, err := s.store.Screeners.GetType(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, st)
}

func bindScreenerType(p payload, st *models.ScreenerType, errs models.FieldErrors) {
	p.str(errs, "name", &st.Name)
	p.str(errs, "description", &st.Description)
	st.Normalize()
	_ = merge(errs, st.Validate())
}

func (s *Server) handleCreateScreenerType(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	errs := models.FieldErrors{}
	p.require(errs, "name")
	var st models.ScreenerType
	bindScreenerType(p, &st, errs)
	if len(errs) > 0 {
		writeFieldErrors(w, r, errs)
		return
	}
	if err := s.store.Screeners.CreateType(r.Context(), &st); err != nil {
		writeStoreError(w, r, err, screenerTypeConflict)
		return
	}
	writeData(w, r, http.StatusCreated, st)
}

func (s *Server) handleUpdateScreenerType(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		st, err := s.store.Screeners.GetType(r.Context(), id)
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
			p.require(errs, "name")
		}
		bindScreenerType(p, st, errs)
		if len(errs) > 0 {
			writeFieldErrors(w, r, errs)
			return
		}
		if err := s.store.Screeners.UpdateType(r.Context(), st); err != nil {
			writeStoreError(w, r, err, screenerTypeConflict)
			return
		}
		writeData(w, r, http.StatusOK, st)
	}
}

func (s *Server) handleDeleteScreenerType(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.store.Screeners.DeleteType(r.Context(), id); err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListScreenerFilters(w http.ResponseWriter, r *http.Request) {
	var typeID int64
	errs := models.FieldErrors{}
	if n := intParam(r.URL.Query(), errs, "screener_type"); n != nil {
		typeID = *n
	}
	if len(errs) > 0 {
		writeFieldErrors(w, r, errs)
		return
	}
	filters, err := s.store.Screeners.ListFilters(r.Context(), typeID)
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, listOf(filters))
}

func (s *Server) handleGetScreenerFilter(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	f, err := s.store.Screeners.GetFilter(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusOK, f)
}

// bindScreenerFilter also checks that the referenced screener type exists.
func (s *Server) bindScreenerFilter(r *http.Request, p payload, f *models.ScreenerFilter, errs models.FieldErrors) error {
	p.requiredInt64(errs, "screener_type", &f.ScreenerTypeID)
	p.str(errs, "label", &f.Label)
	p.rawJSON(errs, "payload", false, &f.Payload)
	p.requiredInt(errs, "display_order", &f.DisplayOrder)
	f.Normalize()
	_ = merge(errs, f.Validate())

	if _, bad := errs["screener_type"]; bad {
		return nil
	}
	_, err := s.store.Screeners.GetType(r.Context(), f.ScreenerTypeID)
	if errors.Is(err, store.ErrNotFound) {
		errs.Add("screener_type", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", f.ScreenerTypeID))
		return nil
	}
	return err
}

func (s *Server) handleCreateScreenerFilter(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	errs := models.FieldErrors{}
	p.require(errs, "screener_type", "label", "payload")
	var f models.ScreenerFilter
	if err := s.bindScreenerFilter(r, p, &f, errs); err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	if len(errs) > 0 {
		writeFieldErrors(w, r, errs)
		return
	}
	if err := s.store.Screeners.CreateFilter(r.Context(), &f); err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	writeData(w, r, http.StatusCreated, f)
}

func (s *Server) handleUpdateScreenerFilter(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		f, err := s.store.Screeners.GetFilter(r.Context(), id)
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
			p.require(errs, "screener_type", "label", "payload")
		}
		if err := s.bindScreenerFilter(r, p, f, errs); err != nil {
			writeStoreError(w, r, err, nil)
			return
		}
		if len(errs) > 0 {
			writeFieldErrors(w, r, errs)
			return
		}
		if err := s.store.Screeners.UpdateFilter(r.Context(), f); err != nil {
			writeStoreError(w, r, err, nil)
			return
		}
		writeData(w, r, http.StatusOK, f)
	}
}

func (s *Server) handleDeleteScreenerFilter(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.store.Screeners.DeleteFilter(r.Context(), id); err != nil {
		writeStoreError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
