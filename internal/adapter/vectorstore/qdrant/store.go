package qdrant

/*
	Qdrant REST adapter. Points are expected to carry the passage text in
	payload.text, which is how the indexer writes them. Search results come
	back in score order and that order is kept.
*/

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/mineradorx/relay/internal/adapter/vectorstore"
	"github.com/mineradorx/relay/internal/core/constants"
)

const payloadTextField = "text"

type Options struct {
	URL        string
	APIKey     string
	Collection string
}

type Store struct {
	client     *http.Client
	embedder   vectorstore.Embedder
	baseURL    string
	apiKey     string
	collection string
}

type searchRequest struct {
	Vector      []float64 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

func NewStore(client *http.Client, embedder vectorstore.Embedder, opts Options) *Store {
	return &Store{
		client:     client,
		embedder:   embedder,
		baseURL:    strings.TrimRight(opts.URL, "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		collection: opts.Collection,
	}
}

func (s *Store) collectionURL() string {
	return s.baseURL + "/collections/" + url.PathEscape(s.collection)
}

func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = constants.DefaultRetrievalK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	body, err := jsoniter.Marshal(searchRequest{Vector: vector, Limit: k, WithPayload: true})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	raw, status, err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qdrant search in %s failed: HTTP %d: %s", s.collection, status,
			gjson.GetBytes(raw, "status.error").String())
	}

	var passages []string
	gjson.GetBytes(raw, "result").ForEach(func(_, point gjson.Result) bool {
		if text := point.Get("payload." + payloadTextField); text.Exists() && text.String() != "" {
			passages = append(passages, text.String())
		}
		return true
	})
	return passages, nil
}

// Exists reports whether the collection has been created, i.e. indexed
func (s *Store) Exists(ctx context.Context) (bool, error) {
	_, status, err := s.do(ctx, http.MethodGet, s.collectionURL(), nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("qdrant collection check failed: HTTP %d", status)
	}
}

func (s *Store) do(ctx context.Context, method, target string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("building qdrant request: %w", err)
	}
	if body != nil {
		req.Header.Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("qdrant %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading qdrant response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

var _ vectorstore.Store = (*Store)(nil)
