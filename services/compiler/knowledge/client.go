// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// Remote service paths. These match the routes this service itself exposes,
// so one deployment can act as another's remote knowledge backend.
const (
	ingestPath   = "/v1/datasets/documents"
	retrievePath = "/v1/retrieve"
)

// defaultClientTimeout bounds every remote knowledge call.
const defaultClientTimeout = 15 * time.Second

// Client is the dual-mode knowledge façade. With a base URL configured,
// every call is an HTTP request to the remote knowledge service; otherwise
// calls dispatch directly to the local store.
//
// This layer performs no retries and never swallows remote failures:
// retrieval errors propagate so the compile pipeline can downgrade them to
// an empty snippet list with a telemetry event. Retry policy belongs to
// callers, which keeps double-retry bugs out of the stack.
type Client struct {
	baseURL    string
	store      Store
	httpClient *http.Client
}

// NewLocalClient creates a client that dispatches directly to store.
func NewLocalClient(store Store) (*Client, error) {
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	return &Client{store: store}, nil
}

// NewRemoteClient creates a client that calls a remote knowledge service.
// A non-positive timeout falls back to the default.
func NewRemoteClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL must not be empty")
	}
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Remote reports whether the client talks to a remote service.
func (c *Client) Remote() bool {
	return c.baseURL != ""
}

// Ingest stores one document.
func (c *Client) Ingest(ctx context.Context, doc datatypes.KnowledgeDocument) error {
	if c.Remote() {
		return c.post(ctx, ingestPath, doc, nil)
	}
	return c.store.Upsert(ctx, doc)
}

// BatchIngest stores documents sequentially, stopping at the first failure.
func (c *Client) BatchIngest(ctx context.Context, docs []datatypes.KnowledgeDocument) error {
	if c.Remote() {
		for i, doc := range docs {
			if err := c.post(ctx, ingestPath, doc, nil); err != nil {
				return fmt.Errorf("batch ingest failed at index %d (document %q): %w", i, doc.DocumentID, err)
			}
		}
		return nil
	}
	return c.store.BatchUpsert(ctx, docs)
}

// Retrieve returns ranked snippets for the request. Remote failures
// propagate as errors; downgrading them to "no snippets" is the compile
// pipeline's job, not this client's.
func (c *Client) Retrieve(ctx context.Context, req datatypes.RetrievalRequest) (*datatypes.RetrievalResponse, error) {
	if c.Remote() {
		var resp datatypes.RetrievalResponse
		if err := c.post(ctx, retrievePath, req, &resp); err != nil {
			return nil, err
		}
		if resp.Snippets == nil {
			resp.Snippets = []datatypes.KnowledgeSnippet{}
		}
		return &resp, nil
	}
	return c.store.Retrieve(ctx, req)
}

// post issues one JSON request to the remote service. Non-2xx responses and
// transport failures surface as errors with the response body attached.
func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal knowledge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create knowledge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("knowledge service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read knowledge service response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("knowledge service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse knowledge service response: %w", err)
		}
	}
	return nil
}
