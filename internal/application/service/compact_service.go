package service

import (
	"context"

	"DocDB/internal/platform/repository/logstore"
)

type CompactService struct {
	engine *logstore.Store
}

func NewCompactService(engine *logstore.Store) *CompactService {
	return &CompactService{
		engine: engine,
	}
}

func (s *CompactService) Execute(ctx context.Context) error {
	return s.engine.Compact(ctx)
}
