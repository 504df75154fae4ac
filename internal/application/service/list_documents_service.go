package service

import (
	"context"

	"DocDB/internal/platform/repository/logstore"
)

type ListDocumentsService struct {
	engine *logstore.Store
}

func NewListDocumentsService(engine *logstore.Store) *ListDocumentsService {
	return &ListDocumentsService{
		engine: engine,
	}
}

type ListDocumentsResult struct {
	IDs []string
}

func (s *ListDocumentsService) Execute(ctx context.Context) (ListDocumentsResult, error) {
	ids, err := s.engine.GetIndexKeys(ctx)
	if err != nil {
		return ListDocumentsResult{}, err
	}
	return ListDocumentsResult{IDs: ids}, nil
}
