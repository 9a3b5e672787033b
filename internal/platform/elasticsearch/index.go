// File: internal/platform/elasticsearch/index.go
package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ProfilesIndexName = "profiles"

// defineProfilesMapping returns the JSON string for the profiles index mapping.
func defineProfilesMapping() (string, error) {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type":   "text",
					"fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}},
				},
				"handle":       map[string]interface{}{"type": "text", "analyzer": "simple"},
				"avatar_url":   map[string]interface{}{"type": "keyword", "index": false},
				"total_points": map[string]interface{}{"type": "integer"},
				"created_at":   map[string]interface{}{"type": "date"},
			},
		},
	}
	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling profiles mapping to JSON: %w", err)
	}
	return string(mappingBytes), nil
}

// CreateProfilesIndexIfNotExists creates the profiles index with the defined mapping
// if it does not already exist.
func CreateProfilesIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	res, err := esapi.IndicesExistsRequest{Index: []string{ProfilesIndexName}}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error checking if profiles index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Profiles index already exists", zap.String("index_name", ProfilesIndexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("error checking if profiles index exists: status %s", res.Status())
	}

	mappingJSON, err := defineProfilesMapping()
	if err != nil {
		return err
	}
	log.Debug("Profiles index mapping defined", zap.String("mapping", mappingJSON))

	createRes, err := esapi.IndicesCreateRequest{
		Index: ProfilesIndexName,
		Body:  strings.NewReader(mappingJSON),
	}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error creating profiles index %s: %w", ProfilesIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create profiles index %s: status %s: %s",
			ProfilesIndexName, createRes.Status(), errorReason(createRes.Body))
	}

	log.Info("Profiles index created successfully", zap.String("index_name", ProfilesIndexName))
	return nil
}
