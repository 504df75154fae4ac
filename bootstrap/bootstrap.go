package bootstrap

import (
	"go.uber.org/dig"

	"DocDB/internal/application/service"
	"DocDB/internal/platform/config"
	"DocDB/internal/platform/messaging/zeromq/publisher"
	"DocDB/internal/platform/objstore"
	"DocDB/internal/platform/objstore/httpblob"
	"DocDB/internal/platform/objstore/memory"
	"DocDB/internal/platform/repository/logstore"
	"DocDB/internal/platform/server"
	"DocDB/internal/platform/server/handler/document"
)

func Run() (bool, error) {
	container := dig.New()
	serviceConstructors := []interface{}{
		config.LoadConfig,
		objectStore,
		engine,
		service.NewSaveDocumentService,
		service.NewDeleteDocumentService,
		service.NewGetDocumentService,
		service.NewListDocumentsService,
		service.NewChangesService,
		service.NewCompactService,
		document.NewDocumentHandler,
		httpServer,
	}
	for _, constructor := range serviceConstructors {
		if err := container.Provide(constructor); err != nil {
			return false, err
		}
	}
	err := container.Invoke(func(cfg config.Config, s server.Server, engine *logstore.Store) error {
		if cfg.ChangesPubPort > 0 {
			pub := publisher.NewZeroMQChangesPublisher(cfg.ChangesPubPort)
			if err := pub.Start(engine.OnChange); err != nil {
				return err
			}
			defer pub.Close()
		}
		return s.Run()
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func objectStore(cfg config.Config) objstore.ObjectStore {
	if cfg.StoreURL == "" {
		return memory.New()
	}
	return httpblob.New(cfg.StoreURL, cfg.StoreContainer, cfg.StoreToken)
}

func engine(cfg config.Config, objects objstore.ObjectStore) *logstore.Store {
	return logstore.NewStore(objects, logstore.Options{
		Database:          cfg.DatabaseName,
		CacheCapacity:     cfg.CacheCapacity,
		CompactMinEntries: cfg.CompactMinEntries,
		CompactMinBytes:   cfg.CompactMinBytes,
		PollInterval:      cfg.PollInterval,
	})
}

func httpServer(cfg config.Config, documents *document.DocumentHandler, compactService *service.CompactService) server.Server {
	return server.NewServer(cfg.ServerHost, cfg.ServerPort, documents, compactService)
}
