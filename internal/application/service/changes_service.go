package service

import (
	"context"

	"DocDB/internal/domain"
	"DocDB/internal/platform/repository/logstore"
)

type ChangesService struct {
	engine *logstore.Store
}

func NewChangesService(engine *logstore.Store) *ChangesService {
	return &ChangesService{
		engine: engine,
	}
}

type ChangesQuery struct {
}

type ChangesResult struct {
	Changes      []domain.DocumentChange
	NextSequence uint64
}

func (s *ChangesService) Execute(ctx context.Context, _ ChangesQuery) (ChangesResult, error) {
	changes, err := s.engine.Changes(ctx)
	if err != nil {
		return ChangesResult{}, err
	}
	return ChangesResult{
		Changes:      changes,
		NextSequence: s.engine.NextSequence(),
	}, nil
}
