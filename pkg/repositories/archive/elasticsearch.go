package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/fadedpez/kolovegas/pkg/entities"
)

// Archiver records terminal settlements in a durable external store.
// Archiving is best effort: callers log failures and move on.
type Archiver interface {
	IndexSettlement(ctx context.Context, settlement entities.Settlement) error
	RecentSettlements(ctx context.Context, limit int) ([]entities.Settlement, error)
	Close() error
}

// Config holds connection options for the Elasticsearch archive
type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

// DefaultConfig returns the default archive configuration
func DefaultConfig() *Config {
	return &Config{
		URL:   "http://localhost:9200",
		Index: "kolovegas_settlements",
	}
}

// ElasticsearchRepository archives settlements in Elasticsearch
type ElasticsearchRepository struct {
	client *elasticsearch.Client
	index  string
}

// settlementDoc is the indexed document shape
type settlementDoc struct {
	SessionID   string    `json:"session_id"`
	GameID      string    `json:"game_id"`
	State       string    `json:"state"`
	Bet         int64     `json:"bet"`
	Payout      int64     `json:"payout"`
	Multiplier  float64   `json:"multiplier"`
	IsWin       bool      `json:"is_win"`
	VIP         bool      `json:"vip"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewElasticsearchRepository creates a new settlement archive
func NewElasticsearchRepository(config *Config) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
	}
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	index := config.Index
	if index == "" {
		index = DefaultConfig().Index
	}

	return &ElasticsearchRepository{
		client: client,
		index:  index,
	}, nil
}

// IndexSettlement indexes one settlement document
func (r *ElasticsearchRepository) IndexSettlement(ctx context.Context, settlement entities.Settlement) error {
	doc := settlementDoc{
		SessionID:   settlement.SessionID,
		GameID:      settlement.GameID,
		State:       string(settlement.State),
		Bet:         settlement.Bet,
		Payout:      settlement.Payout,
		Multiplier:  settlement.Multiplier,
		IsWin:       settlement.IsWin,
		VIP:         settlement.VIP,
		CompletedAt: settlement.CompletedAt,
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling settlement: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(jsonData),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("error indexing settlement: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing settlement: %s", res.String())
	}

	return nil
}

// RecentSettlements returns the most recently completed settlements
func (r *ElasticsearchRepository) RecentSettlements(ctx context.Context, limit int) ([]entities.Settlement, error) {
	query := fmt.Sprintf(`{
		"size": %d,
		"sort": [{ "completed_at": { "order": "desc" } }],
		"query": { "match_all": {} }
	}`, limit)

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader([]byte(query))),
	)
	if err != nil {
		return nil, fmt.Errorf("error searching settlements: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching settlements: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source settlementDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding search response: %w", err)
	}

	settlements := make([]entities.Settlement, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		doc := hit.Source
		settlements = append(settlements, entities.Settlement{
			SessionID:   doc.SessionID,
			GameID:      doc.GameID,
			State:       entities.SessionState(doc.State),
			Bet:         doc.Bet,
			Payout:      doc.Payout,
			Multiplier:  doc.Multiplier,
			IsWin:       doc.IsWin,
			VIP:         doc.VIP,
			CompletedAt: doc.CompletedAt,
		})
	}
	return settlements, nil
}

// Close releases the archive. The underlying client needs no teardown.
func (r *ElasticsearchRepository) Close() error {
	return nil
}
