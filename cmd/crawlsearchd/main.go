// Command crawlsearchd runs the bounded crawler and full-text search
// daemon.
package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/aeolus-crawl/crawlsearch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logrus.WithError(err).Error("crawlsearchd exited with an error")
		os.Exit(1)
	}
}
