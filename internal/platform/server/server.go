package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"DocDB/internal/application/service"
	"DocDB/internal/platform/server/handler/document"
	"DocDB/internal/platform/server/handler/health"
)

type Server struct {
	httpAddr string
	engine   *chi.Mux
}

func NewServer(host string, port int, documents *document.DocumentHandler, compactService *service.CompactService) Server {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := Server{
		engine:   chi.NewRouter(),
		httpAddr: addr,
	}
	srv.engine.Use(middleware.Logger)
	srv.registerRoutes(documents, compactService)
	return srv
}

func (s *Server) Run() error {
	logrus.WithField("addr", s.httpAddr).Info("server running")
	return http.ListenAndServe(s.httpAddr, s.engine)
}

func (s *Server) registerRoutes(documents *document.DocumentHandler, compactService *service.CompactService) {
	s.engine.Get("/health", health.CheckHandler)
	s.engine.Get("/db", documents.ListDocuments)
	s.engine.Get("/db/_changes", documents.Changes)
	s.engine.Get("/db/{id}", documents.GetDocument)
	s.engine.Post("/db/{id}", documents.SaveDocument)
	s.engine.Delete("/db/{id}", documents.DeleteDocument)
	s.engine.Post("/db/_compact", func(w http.ResponseWriter, r *http.Request) {
		if err := compactService.Execute(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}
