package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// conflictMarker is thrown from the ledger transaction when a version check fails.
const conflictMarker = "ledger_conflict"

// Money is stored as decimal strings so no value passes through float64.
type accountRecord struct {
	Balance   string    `json:"balance"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type holdingRecord struct {
	Symbol    string    `json:"symbol"`
	Quantity  string    `json:"quantity"`
	TotalCost string    `json:"total_cost"`
	Version   int64     `json:"version"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toHoldingRecord(h *models.Holding, version int64) holdingRecord {
	return holdingRecord{
		Symbol:    h.Symbol,
		Quantity:  h.Quantity.String(),
		TotalCost: h.TotalCost.String(),
		Version:   version,
		Seq:       h.Seq,
		CreatedAt: h.CreatedAt.UTC(),
		UpdatedAt: h.UpdatedAt.UTC(),
	}
}

func (r *holdingRecord) toModel() (*models.Holding, error) {
	qty, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		return nil, fmt.Errorf("holding %s quantity %q: %w", r.Symbol, r.Quantity, err)
	}
	cost, err := decimal.NewFromString(r.TotalCost)
	if err != nil {
		return nil, fmt.Errorf("holding %s total_cost %q: %w", r.Symbol, r.TotalCost, err)
	}
	return &models.Holding{
		Symbol:    r.Symbol,
		Quantity:  qty,
		TotalCost: cost,
		Version:   r.Version,
		Seq:       r.Seq,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func (r *accountRecord) toModel() (*models.Account, error) {
	bal, err := decimal.NewFromString(r.Balance)
	if err != nil {
		return nil, fmt.Errorf("account balance %q: %w", r.Balance, err)
	}
	return &models.Account{
		ID:        models.AccountID,
		Balance:   bal,
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// PortfolioStore keeps holdings in the portfolio table and the wallet in account.
type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.PortfolioStore = (*PortfolioStore)(nil)

func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{
		db:     db,
		logger: logger,
	}
}

func accountRID() surrealmodels.RecordID {
	return surrealmodels.NewRecordID(tableAccount, models.AccountID)
}

func holdingRID(symbol string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(tablePortfolio, symbol)
}

func (s *PortfolioStore) EnsureAccount(ctx context.Context, initial decimal.Decimal) (*models.Account, error) {
	acct, err := s.GetAccount(ctx)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	created, err := s.seedAccount(ctx, initial)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info().Str("balance", initial.StringFixed(2)).Msg("Account seeded")
	}

	return s.GetAccount(ctx)
}

// seedAccount creates the account record. CREATE fails on an existing
// record, so only the first seeder gets created == true.
func (s *PortfolioStore) seedAccount(ctx context.Context, initial decimal.Decimal) (bool, error) {
	sql := "CREATE $rid CONTENT $account"
	vars := map[string]any{
		"rid": accountRID(),
		"account": accountRecord{
			Balance:   initial.String(),
			Version:   1,
			UpdatedAt: time.Now().UTC(),
		},
	}
	results, err := surrealdb.Query[any](ctx, s.db, sql, vars)
	if msg := statementErrors(results); msg != "" && err == nil {
		err = errors.New(msg)
	}
	switch {
	case err == nil:
		return true, nil
	case strings.Contains(err.Error(), "already exists"):
		s.logger.Debug().Msg("Account already seeded by another writer")
		return false, nil
	default:
		return false, fmt.Errorf("failed to seed account: %w", err)
	}
}

func (s *PortfolioStore) GetAccount(ctx context.Context) (*models.Account, error) {
	rec, err := surrealdb.Select[accountRecord](ctx, s.db, accountRID())
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("account: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select account: %w", err)
	}
	if rec == nil || rec.Balance == "" {
		return nil, fmt.Errorf("account: %w", models.ErrNotFound)
	}
	return rec.toModel()
}

func (s *PortfolioStore) GetHolding(ctx context.Context, symbol string) (*models.Holding, error) {
	rec, err := surrealdb.Select[holdingRecord](ctx, s.db, holdingRID(symbol))
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("holding %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select holding %s: %w", symbol, err)
	}
	if rec == nil || rec.Symbol == "" {
		return nil, fmt.Errorf("holding %s: %w", symbol, models.ErrNotFound)
	}
	return rec.toModel()
}

func (s *PortfolioStore) ListHoldings(ctx context.Context) ([]*models.Holding, error) {
	sql := "SELECT * FROM portfolio ORDER BY seq, created_at, symbol"

	results, err := surrealdb.Query[[]holdingRecord](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	var holdings []*models.Holding
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			h, err := (*results)[0].Result[i].toModel()
			if err != nil {
				return nil, err
			}
			holdings = append(holdings, h)
		}
	}
	// ORDER BY on equal datetimes is not stable across versions
	models.SortHoldings(holdings)
	return holdings, nil
}

// ledgerSQL checks both versions and writes both documents inside one
// transaction. Any THROW rolls the whole transaction back.
const ledgerSQL = `BEGIN TRANSACTION;
IF ($aid.version ?? 0) != $av { THROW "ledger_conflict: account version" };
IF ($hid.version ?? 0) != $hv { THROW "ledger_conflict: holding version" };
IF $remove { DELETE $hid } ELSE { UPSERT $hid CONTENT $holding };
UPDATE $aid MERGE { balance: $balance, version: $av + 1, updated_at: $at };
COMMIT TRANSACTION;`

func (s *PortfolioStore) ApplyMutation(ctx context.Context, m *models.LedgerMutation) error {
	vars := map[string]any{
		"aid":     accountRID(),
		"hid":     holdingRID(m.Symbol),
		"av":      m.AccountVersion,
		"hv":      m.HoldingVersion,
		"remove":  m.Holding == nil,
		"holding": nil,
		"balance": m.Balance.String(),
		"at":      m.At.UTC(),
	}
	if m.Holding != nil {
		vars["holding"] = toHoldingRecord(m.Holding, m.HoldingVersion+1)
	}

	results, err := surrealdb.Query[any](ctx, s.db, ledgerSQL, vars)
	if msg := statementErrors(results); msg != "" {
		if err == nil {
			err = errors.New(msg)
		} else {
			err = fmt.Errorf("%w: %s", err, msg)
		}
	}
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("ledger mutation for %s: %w", m.Symbol, models.ErrConflict)
		}
		return fmt.Errorf("failed to apply ledger mutation for %s: %w", m.Symbol, err)
	}

	s.logger.Debug().Str("symbol", m.Symbol).Str("balance", m.Balance.StringFixed(2)).Bool("deleted", m.Holding == nil).Msg("Ledger mutation applied")
	return nil
}

// isConflict matches a failed version check, or a transaction the engine
// aborted because a concurrent one touched the same records.
func isConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, conflictMarker) || strings.Contains(msg, "can be retried")
}

// statementErrors joins the messages of statements the driver reported as
// failed. A cancelled transaction fails every statement, the thrown one
// carries the real reason.
func statementErrors(results *[]surrealdb.QueryResult[any]) string {
	if results == nil {
		return ""
	}
	var msgs []string
	for _, r := range *results {
		if r.Status != "" && r.Status != "OK" {
			msgs = append(msgs, fmt.Sprint(r.Result))
		}
	}
	return strings.Join(msgs, "; ")
}
