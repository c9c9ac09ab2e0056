package world

import (
	"context"

	"github.com/respp/astrade-world/internal/core/observability/log"
)

// QueryService issues one-shot entity queries against the active client
// handle. It never mutates connection state and never retries; retry
// policy belongs to the connection manager.
type QueryService struct {
	source ClientSource
	logger log.Log
}

func NewQueryService(source ClientSource, logger log.Log) *QueryService {
	return &QueryService{
		source: source,
		logger: logger.With(log.String("component", "query_service")),
	}
}

// QueryEntities returns the entities matching the filter as the indexer
// most recently observed them. The indexer may lag the chain; no
// stronger consistency is promised.
func (s *QueryService) QueryEntities(ctx context.Context, filter QueryFilter) ([]Entity, error) {
	if len(filter.Keys) == 0 {
		return nil, NewError(KindQueryFailed, "query filter requires at least one key")
	}

	client, ok := s.source.ActiveClient()
	if !ok {
		return nil, NewError(KindConnectionFailed, "no active world connection")
	}

	entities, err := client.QueryEntities(ctx, filter)
	if err != nil {
		s.logger.Warn("Entity query failed", log.Error(err))
		return nil, WrapError(KindQueryFailed, "query entities", err)
	}

	s.logger.Debug("Entity query served",
		log.Int("keys", len(filter.Keys)),
		log.Int("entities", len(entities)))
	return entities, nil
}
