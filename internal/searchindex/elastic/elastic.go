// Package elastic implements searchindex.SearchIndex against an
// Elasticsearch node via the official v7 client.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"

	indexererrors "github.com/mdbarr/indexer/internal/errors"
)

// Index is a SearchIndex backed by a configured Elasticsearch node.
type Index struct {
	client *elasticsearch.Client
}

// New connects to the node named by addr.
func New(addr string) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, indexererrors.NewFatalError("searchindex.elastic.connect", err)
	}
	return &Index{client: client}, nil
}

// Index upserts body as doc docID in idx.
func (i *Index) Index(ctx context.Context, idx, docID string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return indexererrors.NewSearchError("encode", idx, err)
	}

	req := esapi.IndexRequest{
		Index:      idx,
		DocumentID: docID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return indexererrors.NewSearchError("index", idx, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return indexererrors.NewSearchError("index", idx, fmt.Errorf("elasticsearch returned %s", res.Status()))
	}
	return nil
}

// Refresh forces idx's changes to become searchable immediately.
func (i *Index) Refresh(ctx context.Context, idx string) error {
	res, err := i.client.Indices.Refresh(
		i.client.Indices.Refresh.WithContext(ctx),
		i.client.Indices.Refresh.WithIndex(idx),
	)
	if err != nil {
		return indexererrors.NewSearchError("refresh", idx, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return indexererrors.NewSearchError("refresh", idx, fmt.Errorf("elasticsearch returned %s", res.Status()))
	}
	return nil
}

// Close is a no-op: the underlying client pools its own HTTP connections.
func (i *Index) Close() error { return nil }
