package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/klausbr/readium-api/internal/api"
	"github.com/klausbr/readium-api/internal/api/middleware"
)

// setupRouter builds the HTTP routing table for the API.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	bookHandler := api.NewBookHandler(app.bookService, app.logger)
	translationHandler := api.NewTranslationHandler(app.translationService, app.logger)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/books", func(r chi.Router) {
			r.Post("/", bookHandler.UploadBook)
			r.Get("/", bookHandler.ListBooks)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", bookHandler.GetBook)
				r.Delete("/", bookHandler.DeleteBook)
				r.Patch("/status", bookHandler.UpdateStatus)
				r.Patch("/progress", bookHandler.UpdateProgress)
				r.Get("/file", bookHandler.GetFile)
				r.Get("/cover", bookHandler.GetCover)
				r.Post("/ocr", bookHandler.QueueOcr)
				r.Get("/ocr-status", bookHandler.GetOcrStatus)
				r.Get("/translations", translationHandler.ListForBook)
			})
		})

		r.Route("/translations", func(r chi.Router) {
			r.Post("/", translationHandler.SaveTranslation)
			r.Get("/", translationHandler.ListGlobal)
			r.Post("/auto", translationHandler.AutoTranslate)
		})
	})

	return r
}
