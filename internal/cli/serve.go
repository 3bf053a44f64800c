package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aeolus-crawl/crawlsearch/internal/env"
	"github.com/aeolus-crawl/crawlsearch/internal/events"
	"github.com/aeolus-crawl/crawlsearch/internal/indexer"
	"github.com/aeolus-crawl/crawlsearch/internal/rpc"
	"github.com/aeolus-crawl/crawlsearch/internal/search"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RPC façade",
	Long:  "Start the JSON-over-HTTP RPC façade exposing Index and Search.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	env.Load()

	logger := newLogger()
	addr := env.GetEnv("CRAWLSEARCH_ADDR", rpc.DefaultAddr)
	eventBufferSize := env.GetEnvAsInt("CRAWLSEARCH_EVENT_BUFFER", 256)

	engine, err := search.New()
	if err != nil {
		return fmt.Errorf("creating search engine: %w", err)
	}
	defer engine.Close()

	bus := events.NewBus(eventBufferSize)
	svc := indexer.New(engine, logger, bus)
	defer svc.Close()

	server := rpc.New(addr, svc, logger)

	logger.WithField("addr", addr).Info("crawlsearchd starting")
	return server.ListenAndServe(context.Background())
}

func newLogger() *logrus.Entry {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(env.GetEnv("CRAWLSEARCH_LOG_LEVEL", "info")); err == nil {
		l.SetLevel(lvl)
	}
	return logrus.NewEntry(l)
}
