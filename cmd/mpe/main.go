package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nicodishanthj/Modeval_phase1/internal/api"
	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
	"github.com/nicodishanthj/Modeval_phase1/internal/sqlite"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("modeval: .env file not loaded", "error", err)
	} else {
		logger.Info("modeval: environment loaded from .env")
	}

	addr := flag.String("addr", defaultAddr(), "listen address")
	catalogPath := flag.String("catalog", defaultCatalogPath(), "path to the SQLite catalog database")
	specPath := flag.String("spec", strings.TrimSpace(os.Getenv("MODEVAL_SPEC_PATH")), "path to an assessment framework YAML (empty uses the embedded framework)")
	outputRoot := flag.String("output-root", defaultOutputRoot(), "directory where generated proposal artifacts are written")
	historyLimit := flag.Int("history-limit", historyLimitDefault(), "maximum records returned by history and export endpoints")
	noStore := flag.Bool("no-store", false, "disable the run history catalog entirely")
	flag.Parse()

	logger.Info("modeval: startup initiated", "addr", *addr, "catalog", *catalogPath)

	var store *sqlite.Store
	if *noStore {
		logger.Info("modeval: run history catalog disabled")
	} else {
		opened, err := sqlite.Open(*catalogPath)
		if err != nil {
			logger.Error("modeval: catalog open failed", "path", *catalogPath, "error", err)
			fmt.Println("catalog error:", err)
			os.Exit(1)
		}
		store = opened
		defer store.Close()
	}

	provider := llm.NewProvider()
	logger.Info("modeval: llm provider ready", "provider", provider.Name())

	cfg := api.DefaultConfig()
	cfg.SpecPath = strings.TrimSpace(*specPath)
	cfg.OutputRoot = strings.TrimSpace(*outputRoot)
	if *historyLimit > 0 {
		cfg.HistoryLimit = *historyLimit
	}

	server, err := api.NewServer(provider, store, &cfg)
	if err != nil {
		logger.Error("modeval: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("modeval: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("modeval: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("modeval: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultAddr() string {
	if env := strings.TrimSpace(os.Getenv("MODEVAL_ADDR")); env != "" {
		return env
	}
	return ":8082"
}

func defaultCatalogPath() string {
	if env := strings.TrimSpace(os.Getenv("MODEVAL_SQLITE_PATH")); env != "" {
		return env
	}
	return filepath.Join("data", "catalog.db")
}

func defaultOutputRoot() string {
	if env := strings.TrimSpace(os.Getenv("MODEVAL_OUTPUT_ROOT")); env != "" {
		return env
	}
	return "outputs"
}

func historyLimitDefault() int {
	if env := strings.TrimSpace(os.Getenv("MODEVAL_HISTORY_LIMIT")); env != "" {
		if parsed, err := strconv.Atoi(env); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}
