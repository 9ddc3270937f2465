package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "intelligence-workers/internal/common/errors"
	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/personalization"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type getResponse struct {
	ID     string          `json:"_id"`
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

type mgetResponse struct {
	Docs []getResponse `json:"docs"`
}

// InsightStore reads intelligence insights from an Elasticsearch index.
type InsightStore struct {
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewInsightStore(es *elasticsearch.Client, index string, log logger.Logger) *InsightStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &InsightStore{es: es, index: index, logger: log}
}

// Get fetches one insight by document id.
func (s *InsightStore) Get(ctx context.Context, id string) (*personalization.Insight, error) {
	req := esapi.GetRequest{Index: s.index, DocumentID: id}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return nil, apperrors.NewInsightLookupFailedError(id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewInsightNotFoundError(id)
	}
	if res.IsError() {
		return nil, apperrors.NewInsightLookupFailedError(id, fmt.Errorf("get failed: %s", res.String()))
	}

	var doc getResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, apperrors.NewInsightLookupFailedError(id, err)
	}
	if !doc.Found {
		return nil, apperrors.NewInsightNotFoundError(id)
	}
	return decodeInsight(doc)
}

// GetMany fetches several insights in one round trip, preserving the order of
// ids. Missing and undecodable documents are logged and left out.
func (s *InsightStore) GetMany(ctx context.Context, ids []string) ([]*personalization.Insight, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, apperrors.NewInsightParseError(err)
	}

	req := esapi.MgetRequest{Index: s.index, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return nil, apperrors.NewInsightLookupFailedError(fmt.Sprint(ids), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewInsightLookupFailedError(fmt.Sprint(ids), fmt.Errorf("mget failed: %s", res.String()))
	}

	var r mgetResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewInsightLookupFailedError(fmt.Sprint(ids), err)
	}

	insights := make([]*personalization.Insight, 0, len(r.Docs))
	for _, doc := range r.Docs {
		if !doc.Found {
			s.logger.Warn("insight not found", map[string]interface{}{"insightId": doc.ID})
			continue
		}
		insight, err := decodeInsight(doc)
		if err != nil {
			s.logger.Warn("skipping unreadable insight", map[string]interface{}{"insightId": doc.ID, "error": err.Error()})
			continue
		}
		insights = append(insights, insight)
	}
	return insights, nil
}

func decodeInsight(doc getResponse) (*personalization.Insight, error) {
	var insight personalization.Insight
	if err := json.Unmarshal(doc.Source, &insight); err != nil {
		return nil, apperrors.NewInsightParseError(err)
	}
	if insight.ID == "" {
		insight.ID = doc.ID
	}
	return &insight, nil
}
