package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Barizhka/magnate-otc/internal/storages"
)

// InsertEventBatch сохраняет пакет событий и возвращает только те, которых в архиве еще не было.
// Повторная доставка из Kafka не создает дублей.
func (s *MongoStorage) InsertEventBatch(ctx context.Context, events []storages.Event) ([]storages.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	documents := make([]interface{}, len(events))
	now := time.Now().UTC()

	for i := range events {
		events[i].ProcessedAt = now
		documents[i] = events[i]
	}

	// Неупорядоченная вставка продолжает пакет после дубликата
	_, err := s.collection.InsertMany(ctx, documents, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicates(err) {
		s.logger.Errorf("Failed to save event batch: %v", err)
		return nil, fmt.Errorf("failed to save event batch: %w", err)
	}

	inserted := insertedEvents(events, err)
	s.logger.Infof("Saved batch of %d events (inserted: %d)", len(events), len(inserted))

	return inserted, nil
}

// insertedEvents отбрасывает события, вставка которых вернула ошибку
func insertedEvents(events []storages.Event, err error) []storages.Event {
	var bulkErr mongo.BulkWriteException
	if err == nil || !errors.As(err, &bulkErr) {
		return events
	}

	rejected := make(map[int]struct{}, len(bulkErr.WriteErrors))
	for _, writeErr := range bulkErr.WriteErrors {
		rejected[writeErr.Index] = struct{}{}
	}

	inserted := make([]storages.Event, 0, len(events)-len(rejected))
	for i, event := range events {
		if _, ok := rejected[i]; !ok {
			inserted = append(inserted, event)
		}
	}
	return inserted
}

const duplicateKeyCode = 11000

// onlyDuplicates сообщает, что все ошибки пакетной вставки вызваны уникальным индексом
func onlyDuplicates(err error) bool {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil || len(bulkErr.WriteErrors) == 0 {
		return false
	}
	for _, writeErr := range bulkErr.WriteErrors {
		if writeErr.Code != duplicateKeyCode {
			return false
		}
	}
	return true
}

// GetEventsByUser возвращает последние события пользователя, новые первыми
func (s *MongoStorage) GetEventsByUser(ctx context.Context, userID int64, limit int) ([]storages.Event, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		s.logger.Errorf("Failed to query events: %v", err)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]storages.Event, 0)
	if err := cursor.All(ctx, &events); err != nil {
		s.logger.Errorf("Failed to decode events: %v", err)
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	s.logger.Debugf("Retrieved %d events for user %d", len(events), userID)
	return events, nil
}

// GetStatistics возвращает сводку по архиву
func (s *MongoStorage) GetStatistics(ctx context.Context) (*storages.EventStatistics, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"total_events": bson.M{"$sum": 1},
			"deals_created": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$type", storages.EventDealCreated}}, 1, 0},
			}},
			"tickets_created": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$type", storages.EventTicketCreated}}, 1, 0},
			}},
			// Суммы хранятся строкой без потери точности
			"total_deal_amount": bson.M{"$sum": bson.M{
				"$convert": bson.M{"input": "$amount", "to": "double", "onError": 0, "onNull": 0},
			}},
			"last_processed_at": bson.M{"$max": "$processed_at"},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		s.logger.Errorf("Failed to get statistics: %v", err)
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var results []storages.EventStatistics
	if err := cursor.All(ctx, &results); err != nil {
		s.logger.Errorf("Failed to decode statistics: %v", err)
		return nil, fmt.Errorf("failed to decode statistics: %w", err)
	}

	stats := &storages.EventStatistics{}
	if len(results) > 0 {
		*stats = results[0]
	}

	s.logger.Debugf("Statistics: Total=%d, Deals=%d, Tickets=%d",
		stats.TotalEvents, stats.DealsCreated, stats.TicketsCreated)

	return stats, nil
}
