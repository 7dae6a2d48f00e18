package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/quidditch/quidditch/pkg/common/config"
	"github.com/quidditch/quidditch/pkg/search"
	"github.com/quidditch/quidditch/pkg/search/catalog"
	"github.com/quidditch/quidditch/pkg/search/docmapper"
	"github.com/quidditch/quidditch/pkg/search/httpapi"
	"github.com/quidditch/quidditch/pkg/search/leaf"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	logger  *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "quidditch-root",
	Short: "Quidditch Root Node",
	Long:  `Quidditch Root Node plans distributed search queries and aggregates leaf results.`,
	RunE:  run,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/quidditch/root.yaml)")
}

func initConfig() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadRootConfig(cfgFile)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Starting Quidditch Root Node",
		zap.String("node_id", cfg.NodeID),
		zap.String("bind_addr", cfg.BindAddr),
		zap.Int("rest_port", cfg.RESTPort),
		zap.String("metastore_addr", cfg.MetastoreAddr),
	)

	// The catalog and leaf pool here are the in-memory reference
	// implementations; a production deployment backs search.CatalogClient
	// and search.LeafClientPool with networked clients to the metastore
	// and leaf workers instead (out of scope, see SPEC_FULL.md §3).
	mem := catalog.NewMemCatalog()
	pool := leaf.NewStaticLeafClientPool(nil, nil)

	metrics := search.NewMetrics()
	searcher := search.NewRootSearcher(mem, docmapper.NewBuilder(), pool,
		search.WithLogger(logger),
		search.WithMetrics(metrics),
	)

	addr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.RESTPort)
	server := httpapi.NewServer(addr, searcher, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("Root node started successfully",
		zap.String("rest_endpoint", fmt.Sprintf("http://%s", addr)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal, stopping root node...", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("Root HTTP server failed", zap.Error(err))
	}

	if err := server.Stop(ctx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return err
	}

	logger.Info("Root node stopped successfully")
	return nil
}
