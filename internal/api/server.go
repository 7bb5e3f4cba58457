package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stenolabs/demandgen/internal/ai"
	"github.com/stenolabs/demandgen/internal/auth"
	"github.com/stenolabs/demandgen/internal/common"
	"github.com/stenolabs/demandgen/internal/export"
	"github.com/stenolabs/demandgen/internal/store"
)

// maxUploadBytes caps a single source document upload.
const maxUploadBytes = 20 << 20

type Server struct {
	router     chi.Router
	store      *store.Store
	issuer     *auth.TokenIssuer
	sessions   auth.SessionStore
	generator  *ai.Generator
	provider   ai.Provider
	exporter   *export.Exporter
	validate   *validator.Validate
	uploadRoot string
}

// Config controls where the API server keeps uploaded documents and export
// artifacts.
type Config struct {
	UploadRoot string
	ExportRoot string
}

// DefaultConfig returns the standard configuration used when no overrides
// are provided.
func DefaultConfig() Config {
	return Config{
		UploadRoot: filepath.Join(os.TempDir(), "demandgen_uploads"),
		ExportRoot: filepath.Join(os.TempDir(), "demandgen_exports"),
	}
}

// Merge overlays non-empty configuration values from the override onto the
// base configuration.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.UploadRoot) != "" {
		result.UploadRoot = strings.TrimSpace(override.UploadRoot)
	}
	if strings.TrimSpace(override.ExportRoot) != "" {
		result.ExportRoot = strings.TrimSpace(override.ExportRoot)
	}
	return result
}

func NewServer(st *store.Store, provider ai.Provider, issuer *auth.TokenIssuer, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if st == nil {
		return nil, fmt.Errorf("store required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("token issuer required")
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}
	if err := os.MkdirAll(configuration.UploadRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}

	providerName := "none"
	if provider != nil {
		providerName = provider.Name()
	}
	logger.Info("api: building server", "provider", providerName, "uploads", configuration.UploadRoot, "exports", configuration.ExportRoot)

	srv := &Server{
		router:     chi.NewRouter(),
		store:      st,
		issuer:     issuer,
		sessions:   st.Sessions(),
		generator:  ai.NewGenerator(provider),
		provider:   provider,
		exporter:   export.NewExporter(configuration.ExportRoot),
		validate:   validator.New(),
		uploadRoot: configuration.UploadRoot,
	}
	srv.routes()
	logger.Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/accept-invitation", s.handleAcceptInvitation)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
			r.Post("/password", s.handleChangePassword)
		})
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/v1/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Get("/variables", s.handleVariables)
			r.Get("/defaults", s.handleDefaultSections)
			r.Post("/validate", s.handleValidateTemplate)
			r.Route("/{templateID}", func(r chi.Router) {
				r.Get("/", s.handleGetTemplate)
				r.Put("/", s.handleUpdateTemplate)
				r.Delete("/", s.handleDeleteTemplate)
				r.Get("/versions", s.handleTemplateVersions)
				r.Post("/default", s.handleSetDefaultTemplate)
				r.Post("/duplicate", s.handleDuplicateTemplate)
				r.Post("/preview", s.handlePreviewTemplate)
			})
		})

		r.Route("/v1/letters", func(r chi.Router) {
			r.Get("/", s.handleListLetters)
			r.Post("/", s.handleCreateLetter)
			r.Route("/{letterID}", func(r chi.Router) {
				r.Get("/", s.handleGetLetter)
				r.Put("/", s.handleUpdateLetter)
				r.Delete("/", s.handleDeleteLetter)
				r.Put("/content", s.handleUpdateLetterContent)
				r.Post("/status", s.handleUpdateLetterStatus)
				r.Get("/versions", s.handleLetterVersions)
				r.Post("/versions", s.handleSnapshotLetter)
				r.Post("/versions/{versionID}/restore", s.handleRestoreLetterVersion)
				r.Post("/generate", s.handleGenerateLetter)
				r.Get("/generations", s.handleLetterGenerations)
				r.Post("/documents", s.handleUploadDocument)
				r.Get("/documents", s.handleListDocuments)
				r.Group(func(r chi.Router) {
					r.Use(s.requireAttorney)
					r.Post("/finalize", s.handleFinalizeLetter)
					r.Post("/export", s.handleExportLetter)
				})
				r.Get("/exports", s.handleListExports)
			})
		})

		r.Delete("/v1/documents/{documentID}", s.handleDeleteDocument)
		r.Get("/v1/documents/{documentID}/text", s.handleDocumentText)
		r.Get("/v1/exports/{exportID}/download", s.handleDownloadExport)
		r.Get("/v1/dashboard/stats", s.handleDashboardStats)
		r.Get("/v1/users", s.handleListUsers)
		r.Put("/v1/users/me", s.handleUpdateSelf)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Put("/v1/users/{userID}", s.handleUpdateUser)
			r.Delete("/v1/users/{userID}", s.handleDeactivateUser)
			r.Get("/v1/firm", s.handleGetFirm)
			r.Put("/v1/firm", s.handleUpdateFirm)
			r.Get("/v1/invitations", s.handleListInvitations)
			r.Post("/v1/invitations", s.handleCreateInvitations)
			r.Post("/v1/invitations/{invitationID}/resend", s.handleResendInvitation)
			r.Delete("/v1/invitations/{invitationID}", s.handleDeleteInvitation)
			r.Get("/v1/logs", s.handleLogs)
		})
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := common.LogEntries()
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
