package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ticketboss/internal/config"
	"ticketboss/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ReservationDocument is one reservation in the audit index, keyed by
// reservation id.
type ReservationDocument struct {
	ReservationID string                   `json:"reservation_id"`
	EventID       string                   `json:"event_id"`
	PartnerID     string                   `json:"partner_id"`
	Seats         int                      `json:"seats"`
	Status        models.ReservationStatus `json:"status"`
	Version       int64                    `json:"version,omitempty"`
	ConfirmedAt   *time.Time               `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time               `json:"cancelled_at,omitempty"`
}

// ElasticsearchClient представляет клиент для работы с Elasticsearch
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// NewElasticsearchClient создает новый клиент Elasticsearch
func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

var indexMapping = map[string]any{
	"settings": map[string]any{
		"number_of_shards":   1,
		"number_of_replicas": 0,
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"reservation_id": map[string]any{"type": "keyword"},
			"event_id":       map[string]any{"type": "keyword"},
			"partner_id":     map[string]any{"type": "keyword"},
			"seats":          map[string]any{"type": "integer"},
			"status":         map[string]any{"type": "keyword"},
			"version":        map[string]any{"type": "long"},
			"confirmed_at":   map[string]any{"type": "date"},
			"cancelled_at":   map[string]any{"type": "date"},
		},
	},
}

// ensureIndex создает индекс если он не существует
func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	mappingJSON, err := json.Marshal(indexMapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(mappingJSON),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// IndexConfirmed записывает подтвержденное бронирование
func (c *ElasticsearchClient) IndexConfirmed(ctx context.Context, event models.ReservationConfirmedEvent) error {
	confirmedAt := event.Timestamp
	doc := ReservationDocument{
		ReservationID: event.ReservationID,
		EventID:       event.EventID,
		PartnerID:     event.PartnerID,
		Seats:         event.Seats,
		Status:        models.StatusConfirmed,
		Version:       event.Version,
		ConfirmedAt:   &confirmedAt,
	}

	// A cancellation may have been projected first; never overwrite it.
	body := map[string]any{
		"script": map[string]any{
			"source": "if (ctx._source.status == 'cancelled') { ctx.op = 'none' } else { ctx._source.putAll(params.doc) }",
			"params": map[string]any{"doc": doc},
		},
		"upsert": doc,
	}

	return c.update(ctx, event.ReservationID, body)
}

// MarkCancelled помечает бронирование отмененным
func (c *ElasticsearchClient) MarkCancelled(ctx context.Context, event models.ReservationCancelledEvent) error {
	cancelledAt := event.Timestamp
	doc := ReservationDocument{
		ReservationID: event.ReservationID,
		EventID:       event.EventID,
		PartnerID:     event.PartnerID,
		Seats:         event.Seats,
		Status:        models.StatusCancelled,
		CancelledAt:   &cancelledAt,
	}

	body := map[string]any{
		"doc":           doc,
		"doc_as_upsert": true,
	}

	return c.update(ctx, event.ReservationID, body)
}

func (c *ElasticsearchClient) update(ctx context.Context, id string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.UpdateRequest{
		Index:           c.config.Index,
		DocumentID:      id,
		Body:            bytes.NewReader(payload),
		RetryOnConflict: esapi.IntPtr(3),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("update error: %s", res.String())
	}

	return nil
}

// HealthCheck проверяет состояние Elasticsearch
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}

	return nil
}
