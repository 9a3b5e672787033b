// File: internal/platform/elasticsearch/profiles.go
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"desirius_backend/internal/shared"
)

// profileDocument is the searchable part of a profile. E-mail and phone stay out of the index.
type profileDocument struct {
	Name        string    `json:"name"`
	Handle      string    `json:"handle"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	TotalPoints int       `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
}

func toDocument(p *shared.Profile) profileDocument {
	return profileDocument{
		Name:        p.Name,
		Handle:      p.Handle,
		AvatarURL:   p.AvatarURL,
		TotalPoints: p.TotalPoints,
		CreatedAt:   p.CreatedAt,
	}
}

// ProfileIndex keeps the profile directory in Elasticsearch.
type ProfileIndex struct {
	client *ESClientWrapper
	index  string
	logger *zap.Logger
}

// NewProfileIndex creates a ProfileIndex over the profiles index.
func NewProfileIndex(client *ESClientWrapper, logger *zap.Logger) *ProfileIndex {
	return &ProfileIndex{client: client, index: ProfilesIndexName, logger: logger.Named("profile_index")}
}

// IndexProfile writes or replaces the document for p.
func (x *ProfileIndex) IndexProfile(ctx context.Context, p *shared.Profile) error {
	body, err := json.Marshal(toDocument(p))
	if err != nil {
		return fmt.Errorf("marshal profile document: %w", err)
	}
	res, err := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, x.client.Client)
	if err != nil {
		return fmt.Errorf("index profile %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index profile %s: %s: %s", p.ID, res.Status(), errorReason(res.Body))
	}
	return nil
}

// BulkIndex writes all profiles in one bulk request.
func (x *ProfileIndex) BulkIndex(ctx context.Context, profiles []*shared.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range profiles {
		meta := map[string]map[string]string{"index": {"_id": p.ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(toDocument(p)); err != nil {
			return fmt.Errorf("encode bulk document: %w", err)
		}
	}

	res, err := esapi.BulkRequest{Index: x.index, Body: &buf}.Do(ctx, x.client.Client)
	if err != nil {
		return fmt.Errorf("bulk index profiles: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index profiles: %s: %s", res.Status(), errorReason(res.Body))
	}

	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !out.Errors {
		return nil
	}
	failed := 0
	for _, item := range out.Items {
		for _, r := range item {
			if r.Error != nil {
				failed++
				x.logger.Warn("Profile not indexed", zap.String("userID", r.ID), zap.Int("status", r.Status), zap.String("reason", r.Error.Reason))
			}
		}
	}
	return fmt.Errorf("bulk index profiles: %d of %d documents failed", failed, len(profiles))
}

// SearchProfileIDs returns the ids of the best matches on name and handle, best first.
func (x *ProfileIndex) SearchProfileIDs(ctx context.Context, query string, limit int) ([]string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"_source": false,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "handle"},
				"fuzziness": "AUTO",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{x.index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}.Do(ctx, x.client.Client)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search profiles: %s: %s", res.Status(), errorReason(res.Body))
	}

	var out struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]string, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
