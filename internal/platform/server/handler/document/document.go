package document

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"DocDB/internal/application/service"
	"DocDB/internal/domain"
)

type DocumentHandler struct {
	saveService   *service.SaveDocumentService
	deleteService *service.DeleteDocumentService
	getService    *service.GetDocumentService
	listService   *service.ListDocumentsService
	changeService *service.ChangesService
}

func NewDocumentHandler(saveService *service.SaveDocumentService,
	deleteService *service.DeleteDocumentService,
	getService *service.GetDocumentService,
	listService *service.ListDocumentsService,
	changeService *service.ChangesService) *DocumentHandler {
	return &DocumentHandler{
		saveService:   saveService,
		deleteService: deleteService,
		getService:    getService,
		listService:   listService,
		changeService: changeService,
	}
}

type SaveDocumentRequest struct {
	Body     json.RawMessage `json:"body"`
	Revision string          `json:"rev,omitempty"`
}

type DocumentResponse struct {
	ID       string          `json:"id"`
	Revision string          `json:"rev"`
	Deleted  bool            `json:"deleted,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
}

type ChangesResponse struct {
	Changes      []domain.DocumentChange `json:"changes"`
	NextSequence uint64                  `json:"nextSeq"`
}

func (h *DocumentHandler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	var request SaveDocumentRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := h.saveService.Execute(r.Context(), service.SaveDocumentCommand{
		ID:            id,
		Body:          request.Body,
		PriorRevision: request.Revision,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DocumentResponse{ID: result.ID, Revision: result.Revision})
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.getService.Execute(r.Context(), service.GetDocumentQuery{ID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	if !result.Found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		ID:       result.Document.ID,
		Revision: result.Document.Revision,
		Body:     result.Document.Body,
	})
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.deleteService.Execute(r.Context(), service.DeleteDocumentCommand{
		ID:            id,
		PriorRevision: r.URL.Query().Get("rev"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{ID: result.ID, Revision: result.Revision, Deleted: true})
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	result, err := h.listService.Execute(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.IDs)
}

func (h *DocumentHandler) Changes(w http.ResponseWriter, r *http.Request) {
	result, err := h.changeService.Execute(r.Context(), service.ChangesQuery{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangesResponse{Changes: result.Changes, NextSequence: result.NextSequence})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var appConflict *domain.ApplicationConflictError
	switch {
	case errors.As(err, &appConflict):
		http.Error(w, appConflict.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrRetriesExhausted):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
