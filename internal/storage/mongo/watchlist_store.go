package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type watchlistDoc struct {
	Symbol  string    `bson:"_id"`
	AddedAt time.Time `bson:"added_at"`
}

// WatchlistStore keeps one document per watched symbol.
type WatchlistStore struct {
	coll   *mongo.Collection
	logger *common.Logger
}

var _ interfaces.WatchlistStore = (*WatchlistStore)(nil)

func NewWatchlistStore(db *mongo.Database, logger *common.Logger) *WatchlistStore {
	return &WatchlistStore{coll: db.Collection(collWatchlist), logger: logger}
}

func (s *WatchlistStore) AddEntry(ctx context.Context, entry *models.WatchlistEntry) (bool, error) {
	_, err := s.coll.InsertOne(ctx, watchlistDoc{Symbol: entry.Symbol, AddedAt: entry.AddedAt.UTC()})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to add %s to watchlist: %w", entry.Symbol, err)
	}
	s.logger.Debug().Str("symbol", entry.Symbol).Msg("Watchlist entry added")
	return true, nil
}

func (s *WatchlistStore) RemoveEntry(ctx context.Context, symbol string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": symbol})
	if err != nil {
		return false, fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}
	if res.DeletedCount == 0 {
		return false, nil
	}
	s.logger.Debug().Str("symbol", symbol).Msg("Watchlist entry removed")
	return true, nil
}

func (s *WatchlistStore) GetEntry(ctx context.Context, symbol string) (*models.WatchlistEntry, error) {
	var doc watchlistDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": symbol}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("watchlist entry %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find watchlist entry %s: %w", symbol, err)
	}
	return &models.WatchlistEntry{Symbol: doc.Symbol, AddedAt: doc.AddedAt}, nil
}

func (s *WatchlistStore) ListEntries(ctx context.Context) ([]*models.WatchlistEntry, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []watchlistDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode watchlist: %w", err)
	}
	entries := make([]*models.WatchlistEntry, len(docs))
	for i, d := range docs {
		entries[i] = &models.WatchlistEntry{Symbol: d.Symbol, AddedAt: d.AddedAt}
	}
	return entries, nil
}
