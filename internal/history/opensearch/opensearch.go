// Package opensearch indexes history rows as OpenSearch documents.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/stationprobe/internal/history"
)

// errBodyLimit caps how much of an error response ends up in the error.
const errBodyLimit = 256

// document is a flattened row plus the timestamp field dashboards sort on.
type document struct {
	Timestamp time.Time `json:"@timestamp"`
	history.Row
}

// Sink POSTs every event to baseURL/index/_doc.
type Sink struct {
	client  *http.Client
	baseURL string
	index   string
}

func New(baseURL, index string) *Sink {
	return &Sink{
		client:  &http.Client{Timeout: history.DefaultSendTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		index:   index,
	}
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	row := history.Flatten(e)
	b, err := json.Marshal(document{Timestamp: row.OccurredAt, Row: row})
	if err != nil {
		return fmt.Errorf("encode history document: %w", err)
	}
	u := fmt.Sprintf("%s/%s/_doc", s.baseURL, s.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return fmt.Errorf("opensearch sink status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
