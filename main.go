package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/noolang/noolang-lsp/internal/config"
	"github.com/noolang/noolang-lsp/internal/indexer"
	"github.com/noolang/noolang-lsp/internal/lsp"
	"github.com/noolang/noolang-lsp/internal/lsp/codelens"
	"github.com/noolang/noolang-lsp/internal/lsp/completion"
	"github.com/noolang/noolang-lsp/internal/lsp/definition"
	"github.com/noolang/noolang-lsp/internal/lsp/diagnostics"
	"github.com/noolang/noolang-lsp/internal/lsp/hover"
	"github.com/noolang/noolang-lsp/internal/lsp/reference"
	"github.com/noolang/noolang-lsp/internal/lsp/symbol"
	"github.com/noolang/noolang-lsp/internal/resolve"
	"github.com/noolang/noolang-lsp/internal/symbolindex"
	"github.com/noolang/noolang-lsp/internal/toolchain"
)

func main() {
	log.SetFlags(0)

	configPath := flag.String("config", "", "settings file (default <project>/"+config.FileName+")")
	verbose := flag.Bool("verbose", false, "log debug output")
	flag.Parse()

	// Get the current working directory as project root
	projectRoot, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load(projectRoot)
	}
	if err != nil {
		log.Printf("Error loading config, using defaults: %v", err)
	}
	if *verbose {
		cfg.Log.Verbose = true
	}

	if cfg.Log.File != "" {
		logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("Error opening log file %s: %v", cfg.Log.File, err)
		} else {
			defer logFile.Close()
			log.SetOutput(logFile)
		}
	}

	cacheDir, err := getProjectConfigFolder(projectRoot)
	if err != nil {
		log.Fatalf("Failed to get project cache folder: %v", err)
	}

	if cleared, err := indexer.CheckAndMigrateCache(cacheDir); err != nil {
		log.Printf("Error checking cache version: %v", err)
	} else if cleared {
		log.Printf("Cache in %s was reset, the workspace will be reindexed", cacheDir)
	}

	runner := toolchain.NewRunner(cfg.Tool.Command, cfg.ResolveArgs(projectRoot), cfg.Tool.Timeout.Duration)
	runner.Dir = projectRoot
	resolver := resolve.NewResolver(runner, runner)

	var scanner *indexer.FileScanner
	if cfg.Index.Enabled {
		scanner, err = indexer.NewFileScanner(projectRoot, filepath.Join(cacheDir, "files.db"), runner, indexer.ScannerOptions{
			Extensions: cfg.Index.Extensions,
			Workers:    cfg.Index.Workers,
		})
		if err != nil {
			log.Printf("Error creating file scanner, workspace indexing is disabled: %v", err)
			scanner = nil
		}
	}

	documentManager := lsp.NewDocumentManager(filepath.Join(cacheDir, "snapshots"))
	server := lsp.NewServer(scanner, documentManager, lsp.Options{
		DiagnosticsDelay: cfg.Diagnostics.Debounce.Duration,
		Verbose:          cfg.Log.Verbose,
	})

	if scanner != nil {
		symbolIndexer, err := symbolindex.NewSymbolIndexer(cacheDir)
		if err != nil {
			log.Printf("Error creating symbol indexer: %v", err)
		} else {
			server.RegisterIndexer(symbolIndexer)
			server.RegisterWorkspaceSymbolProvider(symbol.NewWorkspaceSymbolProvider(server))
		}

		if err := scanner.StartWatcher(); err != nil {
			log.Printf("Error starting file watcher: %v", err)
		}
	}

	server.RegisterDefinitionProvider(definition.NewDefinitionProvider(resolver))
	server.RegisterReferencesProvider(reference.NewReferenceProvider(resolver))
	server.RegisterHoverProvider(hover.NewTypeHoverProvider(resolver))
	server.RegisterDocumentSymbolProvider(symbol.NewDocumentSymbolProvider(resolver))
	server.RegisterCompletionProvider(completion.NewNoolangCompletionProvider(resolver))
	server.RegisterCodeLensProvider(codelens.NewReferenceCodeLensProvider(resolver))

	if cfg.Diagnostics.Enabled {
		server.RegisterDiagnosticsProvider(diagnostics.NewToolDiagnosticsProvider(runner))
	}

	if err := server.Start(os.Stdin, os.Stdout); err != nil {
		log.Fatalf("LSP server error: %v", err)
	}
}
