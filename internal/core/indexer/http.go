package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// queryRequest is the body sent to the indexer's entity endpoint.
type queryRequest struct {
	World     string   `json:"world"`
	Namespace string   `json:"namespace"`
	Keys      []string `json:"keys"`
	Models    []string `json:"models,omitempty"`
}

// fetchEntities runs a one-shot entity query and returns the raw response
// body. Both client implementations share it; the restricted one also
// digests the body for poll change detection.
func fetchEntities(ctx context.Context, hc *http.Client, opts Options, q Query) ([]byte, error) {
	body, err := json.Marshal(queryRequest{
		World:     opts.WorldAddress,
		Namespace: opts.Namespace,
		Keys:      q.Keys,
		Models:    q.Models,
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(opts.IndexerURL, "/") + "/entities"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer returned status %d", resp.StatusCode)
	}
	return raw, nil
}

// parseEntities extracts the entity list from an indexer response without
// binding the full payload to a schema. Model data stays raw.
func parseEntities(raw []byte) []Entity {
	var entities []Entity
	gjson.GetBytes(raw, "entities").ForEach(func(_, e gjson.Result) bool {
		entity := Entity{
			ID:     e.Get("id").String(),
			Models: make(map[string]map[string]json.RawMessage),
		}
		e.Get("models").ForEach(func(ns, models gjson.Result) bool {
			byModel := make(map[string]json.RawMessage, len(models.Map()))
			models.ForEach(func(name, data gjson.Result) bool {
				byModel[name.String()] = json.RawMessage(data.Raw)
				return true
			})
			entity.Models[ns.String()] = byModel
			return true
		})
		entities = append(entities, entity)
		return true
	})
	return entities
}

// probe checks that an endpoint is reachable. Any HTTP response counts;
// only transport-level failures are reported.
func probe(ctx context.Context, hc *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
