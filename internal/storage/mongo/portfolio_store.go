package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type accountDoc struct {
	ID        string               `bson:"_id"`
	Balance   primitive.Decimal128 `bson:"balance"`
	Version   int64                `bson:"version"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

type holdingDoc struct {
	Symbol    string               `bson:"_id"`
	Quantity  primitive.Decimal128 `bson:"quantity"`
	TotalCost primitive.Decimal128 `bson:"total_cost"`
	Version   int64                `bson:"version"`
	Seq       int64                `bson:"seq"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func (d *accountDoc) toModel() (*models.Account, error) {
	bal, err := fromDecimal128(d.Balance)
	if err != nil {
		return nil, err
	}
	return &models.Account{ID: d.ID, Balance: bal, Version: d.Version, UpdatedAt: d.UpdatedAt}, nil
}

func (d *holdingDoc) toModel() (*models.Holding, error) {
	qty, err := fromDecimal128(d.Quantity)
	if err != nil {
		return nil, err
	}
	cost, err := fromDecimal128(d.TotalCost)
	if err != nil {
		return nil, err
	}
	return &models.Holding{
		Symbol:    d.Symbol,
		Quantity:  qty,
		TotalCost: cost,
		Version:   d.Version,
		Seq:       d.Seq,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func newHoldingDoc(h *models.Holding, version int64) (*holdingDoc, error) {
	qty, err := toDecimal128(h.Quantity)
	if err != nil {
		return nil, err
	}
	cost, err := toDecimal128(h.TotalCost)
	if err != nil {
		return nil, err
	}
	return &holdingDoc{
		Symbol:    h.Symbol,
		Quantity:  qty,
		TotalCost: cost,
		Version:   version,
		Seq:       h.Seq,
		CreatedAt: h.CreatedAt.UTC(),
		UpdatedAt: h.UpdatedAt.UTC(),
	}, nil
}

// PortfolioStore keeps holdings keyed by symbol and the singleton account.
type PortfolioStore struct {
	accounts *mongo.Collection
	holdings *mongo.Collection
	logger   *common.Logger
}

var _ interfaces.PortfolioStore = (*PortfolioStore)(nil)

func NewPortfolioStore(db *mongo.Database, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{
		accounts: db.Collection(collAccount),
		holdings: db.Collection(collPortfolio),
		logger:   logger,
	}
}

func (s *PortfolioStore) EnsureAccount(ctx context.Context, initial decimal.Decimal) (*models.Account, error) {
	bal, err := toDecimal128(initial)
	if err != nil {
		return nil, err
	}
	doc := accountDoc{ID: models.AccountID, Balance: bal, Version: 1, UpdatedAt: time.Now().UTC()}

	// _id is unique, so a second seeder gets a duplicate key error and reads the winner.
	_, err = s.accounts.InsertOne(ctx, doc)
	switch {
	case err == nil:
		s.logger.Info().Str("balance", initial.StringFixed(2)).Msg("Account seeded")
	case mongo.IsDuplicateKeyError(err):
	default:
		return nil, fmt.Errorf("failed to seed account: %w", err)
	}
	return s.GetAccount(ctx)
}

func (s *PortfolioStore) GetAccount(ctx context.Context) (*models.Account, error) {
	var doc accountDoc
	if err := s.accounts.FindOne(ctx, bson.M{"_id": models.AccountID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("account: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return doc.toModel()
}

func (s *PortfolioStore) GetHolding(ctx context.Context, symbol string) (*models.Holding, error) {
	var doc holdingDoc
	if err := s.holdings.FindOne(ctx, bson.M{"_id": symbol}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("holding %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find holding %s: %w", symbol, err)
	}
	return doc.toModel()
}

func (s *PortfolioStore) ListHoldings(ctx context.Context) ([]*models.Holding, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.holdings.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []holdingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode holdings: %w", err)
	}

	holdings := make([]*models.Holding, 0, len(docs))
	for i := range docs {
		h, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

// ApplyMutation runs without a multi-document transaction, which standalone
// servers do not support. The account is moved first by a version CAS; if the
// holding CAS then fails, the account is put back to its prior state.
func (s *PortfolioStore) ApplyMutation(ctx context.Context, m *models.LedgerMutation) error {
	prev, err := s.GetAccount(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("account missing: %w", models.ErrConflict)
		}
		return err
	}
	if prev.Version != m.AccountVersion {
		return fmt.Errorf("account at version %d, expected %d: %w", prev.Version, m.AccountVersion, models.ErrConflict)
	}
	if err := s.checkHoldingVersion(ctx, m.Symbol, m.HoldingVersion); err != nil {
		return err
	}

	bal, err := toDecimal128(m.Balance)
	if err != nil {
		return err
	}
	res, err := s.accounts.UpdateOne(ctx,
		bson.M{"_id": models.AccountID, "version": m.AccountVersion},
		bson.M{
			"$set": bson.M{"balance": bal, "updated_at": m.At.UTC()},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("account moved past version %d: %w", m.AccountVersion, models.ErrConflict)
	}

	if err := s.writeHolding(ctx, m); err != nil {
		if rerr := s.restoreAccount(ctx, prev); rerr != nil {
			s.logger.Error().Err(rerr).Str("symbol", m.Symbol).Msg("Failed to roll back account after holding write failure")
			return fmt.Errorf("%w (account rollback failed: %v)", err, rerr)
		}
		return err
	}

	s.logger.Debug().Str("symbol", m.Symbol).Str("balance", m.Balance.StringFixed(2)).Bool("deleted", m.Holding == nil).Msg("Ledger mutation applied")
	return nil
}

func (s *PortfolioStore) checkHoldingVersion(ctx context.Context, symbol string, expected int64) error {
	var current int64
	h, err := s.GetHolding(ctx, symbol)
	switch {
	case err == nil:
		current = h.Version
	case errors.Is(err, models.ErrNotFound):
	default:
		return err
	}
	if current != expected {
		return fmt.Errorf("holding %s at version %d, expected %d: %w", symbol, current, expected, models.ErrConflict)
	}
	return nil
}

func (s *PortfolioStore) writeHolding(ctx context.Context, m *models.LedgerMutation) error {
	filter := bson.M{"_id": m.Symbol, "version": m.HoldingVersion}

	if m.Holding == nil {
		res, err := s.holdings.DeleteOne(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to delete holding %s: %w", m.Symbol, err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("holding %s moved past version %d: %w", m.Symbol, m.HoldingVersion, models.ErrConflict)
		}
		return nil
	}

	doc, err := newHoldingDoc(m.Holding, m.HoldingVersion+1)
	if err != nil {
		return err
	}

	if m.HoldingVersion == 0 {
		if _, err := s.holdings.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("holding %s created concurrently: %w", m.Symbol, models.ErrConflict)
			}
			return fmt.Errorf("failed to insert holding %s: %w", m.Symbol, err)
		}
		return nil
	}

	res, err := s.holdings.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("failed to replace holding %s: %w", m.Symbol, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("holding %s moved past version %d: %w", m.Symbol, m.HoldingVersion, models.ErrConflict)
	}
	return nil
}

// restoreAccount reverts the account CAS, but only if nothing else moved it since.
func (s *PortfolioStore) restoreAccount(ctx context.Context, prev *models.Account) error {
	bal, err := toDecimal128(prev.Balance)
	if err != nil {
		return err
	}
	res, err := s.accounts.UpdateOne(ctx,
		bson.M{"_id": models.AccountID, "version": prev.Version + 1},
		bson.M{"$set": bson.M{"balance": bal, "version": prev.Version, "updated_at": prev.UpdatedAt}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("account moved during rollback: %w", models.ErrConflict)
	}
	return nil
}
