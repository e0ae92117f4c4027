// Package v1 wires the HTTP surface of the bookkeeping service.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
    "log/slog"
    "net/http"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"

    "github.com/tinoosan/bizbooks/internal/ledger"
    "github.com/tinoosan/bizbooks/internal/service/account"
    "github.com/tinoosan/bizbooks/internal/service/document"
    "github.com/tinoosan/bizbooks/internal/service/journal"
)

// Options carries settings that do not come from the store.
type Options struct {
    // Submitter sends sales invoices to FBR. Nil disables submission.
    Submitter document.Submitter
    // Seller is printed on PDFs.
    Seller ledger.Org
    // DefaultCurrency fills requests that omit a currency.
    DefaultCurrency string
}

// Server wires handlers and middleware using Chi.
type Server struct {
    accounts  account.Service
    journal   journal.Service
    documents document.Service
    idem      IdempotencyStore
    store     Store
    seller    ledger.Org
    currency  string
    log       *slog.Logger
    rt        *chi.Mux
}

// New constructs the HTTP server with routes and middleware. The store backs
// every service; the logger is used by request logging and panic recovery.
func New(store Store, opts Options, logger *slog.Logger) *Server {
    r := chi.NewRouter()
    r.Use(chimw.RequestID)
    r.Use(requestLogger(logger))
    r.Use(recoverer(logger))
    r.Use(metricsMiddleware)

    accounts := account.New(store, store)
    entries := journal.New(store, store)
    currency := opts.DefaultCurrency
    if currency == "" { currency = ledger.DefaultCurrency }
    s := &Server{
        accounts:  accounts,
        journal:   entries,
        documents: document.New(store, store, accounts, entries, opts.Submitter),
        idem:      store,
        store:     store,
        seller:    opts.Seller,
        currency:  currency,
        log:       logger,
        rt:        r,
    }
    s.routes()
    return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
    // Health and metrics (unversioned)
    s.rt.Get("/healthz", s.healthz)
    s.rt.Get("/readyz", s.readyz)
    s.rt.Handle("/metrics", metricsHandler())

    s.rt.Route("/v1", func(r chi.Router) {
        // Stateless helpers need no org.
        r.Post("/calculate", s.calculate)
        r.Post("/balance-check", s.balanceCheck)
        r.Get("/dictionary/groups", s.getGroupsDictionary)

        r.Group(func(r chi.Router) {
            r.Use(orgScope)

            r.Post("/accounts", s.postAccount)
            r.Get("/accounts", s.listAccounts)
            r.Post("/accounts/system", s.ensureSystemAccounts)
            r.Get("/accounts/{id}", s.getAccount)
            r.Patch("/accounts/{id}", s.updateAccount)
            r.Delete("/accounts/{id}", s.deactivateAccount)
            r.Get("/accounts/{id}/balance", s.getAccountBalance)
            r.Get("/accounts/{id}/ledger", s.getAccountLedger)

            r.Post("/journal-entries", s.postEntry)
            r.Get("/journal-entries", s.listEntries)
            r.Get("/journal-entries/{id}", s.getEntry)
            r.Put("/journal-entries/{id}", s.putEntry)
            r.Delete("/journal-entries/{id}", s.deleteEntry)
            r.Post("/journal-entries/{id}/post", s.postDraftEntry)
            r.Post("/journal-entries/{id}/reverse", s.reverseEntry)
            r.Get("/trial-balance", s.trialBalance)

            r.Post("/documents", s.postDocument)
            r.Get("/documents", s.listDocuments)
            r.Get("/documents/{id}", s.getDocument)
            r.Put("/documents/{id}", s.putDocument)
            r.Delete("/documents/{id}", s.deleteDocument)
            r.Post("/documents/{id}/post", s.postDraftDocument)
            r.Post("/documents/{id}/reverse", s.reverseDocument)
            r.Post("/documents/{id}/fbr", s.submitDocument)
            r.Get("/documents/{id}/pdf", s.documentPDF)
        })
    })
}
