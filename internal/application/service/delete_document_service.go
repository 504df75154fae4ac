package service

import (
	"context"

	"DocDB/internal/domain"
	"DocDB/internal/platform/repository/logstore"
)

type DeleteDocumentService struct {
	engine *logstore.Store
}

func NewDeleteDocumentService(engine *logstore.Store) *DeleteDocumentService {
	return &DeleteDocumentService{
		engine: engine,
	}
}

type DeleteDocumentCommand struct {
	ID            string
	PriorRevision string
}

type DeleteDocumentResult struct {
	ID       string
	Revision string
	Sequence uint64
}

func (s *DeleteDocumentService) Execute(ctx context.Context, command DeleteDocumentCommand) (DeleteDocumentResult, error) {
	entries, err := s.engine.AppendChanges(ctx, []domain.PendingChange{{
		DocumentID:    command.ID,
		Deleted:       true,
		PriorRevision: command.PriorRevision,
	}})
	if err != nil {
		return DeleteDocumentResult{}, err
	}
	return DeleteDocumentResult{
		ID:       entries[0].DocumentID,
		Revision: entries[0].Revision,
		Sequence: entries[0].Sequence,
	}, nil
}
