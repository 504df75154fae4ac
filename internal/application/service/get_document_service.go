package service

import (
	"context"

	"DocDB/internal/domain"
	"DocDB/internal/platform/repository/logstore"
)

type GetDocumentService struct {
	engine *logstore.Store
}

func NewGetDocumentService(engine *logstore.Store) *GetDocumentService {
	return &GetDocumentService{
		engine: engine,
	}
}

type GetDocumentQuery struct {
	ID string
}

type GetDocumentResult struct {
	Document domain.Document
	Found    bool
}

func (s *GetDocumentService) Execute(ctx context.Context, query GetDocumentQuery) (GetDocumentResult, error) {
	doc, err := s.engine.Get(ctx, query.ID)
	if err != nil {
		return GetDocumentResult{}, err
	}
	if doc == nil {
		return GetDocumentResult{Found: false}, nil
	}
	return GetDocumentResult{
		Document: *doc,
		Found:    true,
	}, nil
}

type GetDocumentsQuery struct {
	IDs []string
}

type GetDocumentsResult struct {
	Documents []*domain.Document
}

// ExecuteMulti fetches several documents at once, one remote transfer per
// distinct backing object. Missing ids come back as nil entries.
func (s *GetDocumentService) ExecuteMulti(ctx context.Context, query GetDocumentsQuery) (GetDocumentsResult, error) {
	docs, err := s.engine.GetMulti(ctx, query.IDs)
	if err != nil {
		return GetDocumentsResult{}, err
	}
	return GetDocumentsResult{Documents: docs}, nil
}
