package service

import (
	"context"
	"encoding/json"

	"DocDB/internal/domain"
	"DocDB/internal/platform/repository/logstore"
)

type SaveDocumentService struct {
	engine *logstore.Store
}

func NewSaveDocumentService(engine *logstore.Store) *SaveDocumentService {
	return &SaveDocumentService{
		engine: engine,
	}
}

type SaveDocumentCommand struct {
	ID            string
	Body          json.RawMessage
	PriorRevision string
}

type SaveDocumentResult struct {
	ID       string
	Revision string
	Sequence uint64
}

func (s *SaveDocumentService) Execute(ctx context.Context, command SaveDocumentCommand) (SaveDocumentResult, error) {
	entries, err := s.engine.AppendChanges(ctx, []domain.PendingChange{{
		DocumentID:    command.ID,
		Body:          command.Body,
		PriorRevision: command.PriorRevision,
	}})
	if err != nil {
		return SaveDocumentResult{}, err
	}
	return SaveDocumentResult{
		ID:       entries[0].DocumentID,
		Revision: entries[0].Revision,
		Sequence: entries[0].Sequence,
	}, nil
}
