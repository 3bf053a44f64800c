package search

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/kljensen/snowball"
)

// snowballFilterName is registered with bleve's analyzer registry so it can
// be referenced by name from a custom analyzer configuration, the same way
// bleve's own language analyzers wire up their stemmers.
const snowballFilterName = "snowball_en"

// snowballFilter stems each token with kljensen/snowball's English
// algorithm, replacing the crawler's indexed body text with stemmed terms
// so that e.g. a query for "crawling" matches a document containing
// "crawl".
type snowballFilter struct{}

func newSnowballFilter() *snowballFilter {
	return &snowballFilter{}
}

func (s *snowballFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, token := range input {
		if stemmed, err := snowball.Stem(string(token.Term), "english", true); err == nil {
			token.Term = []byte(stemmed)
		}
	}
	return input
}

func init() {
	registry.RegisterTokenFilter(snowballFilterName,
		func(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
			return newSnowballFilter(), nil
		})
}
