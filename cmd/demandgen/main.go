package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/stenolabs/demandgen/internal/ai"
	"github.com/stenolabs/demandgen/internal/api"
	"github.com/stenolabs/demandgen/internal/auth"
	"github.com/stenolabs/demandgen/internal/common"
	"github.com/stenolabs/demandgen/internal/store"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("demandgen: .env file not loaded", "error", err)
	} else {
		logger.Info("demandgen: environment loaded from .env")
	}

	addr := flag.String("addr", ":8080", "listen address")
	dbTarget := flag.String("db", "", "database target: postgres:// URL or SQLite file path (defaults to DATABASE_URL / DEMANDGEN_DB_PATH)")
	uploadDir := flag.String("uploads", defaultDir("UPLOAD_DIR", "uploads"), "directory for uploaded source documents")
	exportDir := flag.String("exports", defaultDir("EXPORT_DIR", "exports"), "directory for exported letters")
	flag.Parse()

	logger.Info("demandgen: startup initiated", "addr", *addr)

	st, err := store.Open(*dbTarget)
	if err != nil {
		logger.Error("demandgen: store initialization failed", "error", err)
		fmt.Println("store error:", err)
		os.Exit(1)
	}
	defer st.Close()

	issuer, err := auth.NewTokenIssuer()
	if err != nil {
		logger.Error("demandgen: token issuer setup failed", "error", err)
		fmt.Println("auth error:", err)
		os.Exit(1)
	}

	provider := ai.NewProvider()
	if provider != nil {
		logger.Info("demandgen: generation provider ready", "provider", provider.Name())
	} else {
		logger.Warn("demandgen: no generation provider configured; generation requests will fail fast")
	}

	cfg := api.DefaultConfig()
	cfg = cfg.Merge(api.Config{UploadRoot: *uploadDir, ExportRoot: *exportDir})
	server, err := api.NewServer(st, provider, issuer, &cfg)
	if err != nil {
		logger.Error("demandgen: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("demandgen: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("demandgen: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("demandgen: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultDir(env, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(env)); value != "" {
		return value
	}
	return filepath.Join("data", fallback)
}
