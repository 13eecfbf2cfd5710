package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/optiscreen/pkg/models"
)

// investmentColumns keeps SELECT order in step with scanInvestment.
const investmentColumns = `id, ticker, category, screener_type, price, volume, market_cap,
options_suitability, option_exp, description, opt_val, rsi, roi, delta, weekly_options,
created_at, updated_at`

// InvestmentRepository handles the investments table.
type InvestmentRepository struct {
	q   DBTX
	now func() time.Time
	log zerolog.Logger
}

// InvestmentFilter narrows List. Zero values do not filter.
type InvestmentFilter struct {
	Category           string // case-insensitive exact
	ScreenerType       string // case-insensitive exact
	TickerContains     string // case-insensitive substring
	Tickers            []string
	Price              *decimal.Decimal
	MinPrice           *decimal.Decimal
	MaxPrice           *decimal.Decimal
	OptVal             *decimal.Decimal
	MinOptVal          *decimal.Decimal
	MaxOptVal          *decimal.Decimal
	MinMarketCap       *decimal.Decimal
	MaxMarketCap       *decimal.Decimal
	MinVolume          *int64
	OptionsSuitability *int
	HasPrice           *bool
}

func (f InvestmentFilter) where() (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	num := func(col, op string, d *decimal.Decimal) {
		if d != nil {
			add(fmt.Sprintf("%s IS NOT NULL AND CAST(%s AS REAL) %s ?", col, col, op), d.InexactFloat64())
		}
	}

	if f.Category != "" {
		add("category = ? COLLATE NOCASE", f.Category)
	}
	if f.ScreenerType != "" {
		add("screener_type = ? COLLATE NOCASE", f.ScreenerType)
	}
	if f.TickerContains != "" {
		add("LOWER(ticker) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(f.TickerContains))+"%")
	}
	if len(f.Tickers) > 0 {
		conds = append(conds, "ticker IN ("+placeholders(len(f.Tickers))+")")
		for _, t := range f.Tickers {
			args = append(args, t)
		}
	}
	num("price", "=", f.Price)
	num("price", ">=", f.MinPrice)
	num("price", "<=", f.MaxPrice)
	num("opt_val", "=", f.OptVal)
	num("opt_val", ">=", f.MinOptVal)
	num("opt_val", "<=", f.MaxOptVal)
	num("market_cap", ">=", f.MinMarketCap)
	num("market_cap", "<=", f.MaxMarketCap)
	if f.MinVolume != nil {
		add("volume >= ?", *f.MinVolume)
	}
	if f.OptionsSuitability != nil {
		add("options_suitability = ?", *f.OptionsSuitability)
	}
	if f.HasPrice != nil {
		if *f.HasPrice {
			conds = append(conds, "price IS NOT NULL")
		} else {
			conds = append(conds, "price IS NULL")
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// List returns investments matching f ordered by id.
func (r *InvestmentRepository) List(ctx context.Context, f InvestmentFilter) ([]models.Investment, error) {
	where, args := f.where()
	rows, err := r.q.QueryContext(ctx, "SELECT "+investmentColumns+" FROM investments"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var out []models.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Get returns the investment with id.
func (r *InvestmentRepository) Get(ctx context.Context, id int64) (*models.Investment, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByTicker returns the investment with ticker (exact match).
func (r *InvestmentRepository) GetByTicker(ctx context.Context, ticker string) (*models.Investment, error) {
	return r.getOne(ctx, "ticker = ?", ticker)
}

func (r *InvestmentRepository) getOne(ctx context.Context, cond string, arg any) (*models.Investment, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+investmentColumns+" FROM investments WHERE "+cond, arg)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load investment: %w", err)
	}
	return &inv, nil
}

// Create inserts inv. A non-zero inv.ID is kept as the primary key.
func (r *InvestmentRepository) Create(ctx context.Context, inv *models.Investment) error {
	inv.Quantize()
	now := r.now()
	inv.CreatedAt, inv.UpdatedAt = now, now

	var id any
	if inv.ID != 0 {
		id = inv.ID
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO investments (`+investmentColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, inv.Ticker, inv.Category, inv.ScreenerType,
		decimalArg(inv.Price, models.PriceSpec), inv.Volume,
		decimalArg(inv.MarketCap, models.MarketCapSpec),
		inv.OptionsSuitability, dateArg(inv.OptionExp), inv.Description,
		decimalArg(inv.OptVal, models.OptValSpec), decimalArg(inv.RSI, models.RSISpec),
		decimalArg(inv.ROI, models.ROISpec), decimalArg(inv.Delta, models.DeltaSpec),
		boolArg(inv.WeeklyOptions), timeArg(now), timeArg(now))
	if err != nil {
		return wrapWriteErr("create investment", err)
	}
	if inv.ID == 0 {
		if inv.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("create investment: %w", err)
		}
	}
	return nil
}

// Update writes every column of inv by id.
func (r *InvestmentRepository) Update(ctx context.Context, inv *models.Investment) error {
	inv.Quantize()
	inv.UpdatedAt = r.now()

	res, err := r.q.ExecContext(ctx, `UPDATE investments SET
		ticker = ?, category = ?, screener_type = ?, price = ?, volume = ?, market_cap = ?,
		options_suitability = ?, option_exp = ?, description = ?, opt_val = ?, rsi = ?,
		roi = ?, delta = ?, weekly_options = ?, updated_at = ?
		WHERE id = ?`,
		inv.Ticker, inv.Category, inv.ScreenerType,
		decimalArg(inv.Price, models.PriceSpec), inv.Volume,
		decimalArg(inv.MarketCap, models.MarketCapSpec),
		inv.OptionsSuitability, dateArg(inv.OptionExp), inv.Description,
		decimalArg(inv.OptVal, models.OptValSpec), decimalArg(inv.RSI, models.RSISpec),
		decimalArg(inv.ROI, models.ROISpec), decimalArg(inv.Delta, models.DeltaSpec),
		boolArg(inv.WeeklyOptions), timeArg(inv.UpdatedAt), inv.ID)
	if err != nil {
		return wrapWriteErr("update investment", err)
	}
	return checkAffected(res, "update investment")
}

// Delete removes the investment with id.
func (r *InvestmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM investments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	return checkAffected(res, "delete investment")
}

// ChangeID moves an investment to a new primary key.
func (r *InvestmentRepository) ChangeID(ctx context.Context, oldID, newID int64) error {
	if oldID == newID {
		return nil
	}
	res, err := r.q.ExecContext(ctx, `UPDATE investments SET id = ?, updated_at = ? WHERE id = ?`,
		newID, timeArg(r.now()), oldID)
	if err != nil {
		return wrapWriteErr("change investment id", err)
	}
	return checkAffected(res, "change investment id")
}

// UpsertScreenerResult creates or updates the investment for ticker, setting
// its category and screener.
func (r *InvestmentRepository) UpsertScreenerResult(ctx context.Context, ticker, category, screener string) error {
	now := timeArg(r.now())
	_, err := r.q.ExecContext(ctx, `INSERT INTO investments
		(ticker, category, screener_type, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (ticker) DO UPDATE SET
			category = excluded.category,
			screener_type = excluded.screener_type,
			updated_at = excluded.updated_at`,
		ticker, category, screener, now, now)
	return wrapWriteErr("upsert investment", err)
}

// DeleteScreenerExcept removes the screener's investments whose ticker is
// not in keep.
func (r *InvestmentRepository) DeleteScreenerExcept(ctx context.Context, screener string, keep []string) (int64, error) {
	query := `DELETE FROM investments WHERE screener_type = ?`
	args := []any{screener}
	if len(keep) > 0 {
		query += ` AND ticker NOT IN (` + placeholders(len(keep)) + `)`
		for _, t := range keep {
			args = append(args, t)
		}
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete screener investments: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Debug().Str("screener", screener).Int64("deleted", n).Msg("removed stale screener investments")
	}
	return n, nil
}

// SetOptVal stores opt_val for the investment with id.
func (r *InvestmentRepository) SetOptVal(ctx context.Context, id int64, optVal decimal.NullDecimal) error {
	res, err := r.q.ExecContext(ctx, `UPDATE investments SET opt_val = ?, updated_at = ? WHERE id = ?`,
		decimalArg(models.OptValSpec.Quantize(optVal), models.OptValSpec), timeArg(r.now()), id)
	if err != nil {
		return fmt.Errorf("set opt_val: %w", err)
	}
	return checkAffected(res, "set opt_val")
}

// SetRSI stores rsi for the investment with id.
func (r *InvestmentRepository) SetRSI(ctx context.Context, id int64, rsi decimal.NullDecimal) error {
	res, err := r.q.ExecContext(ctx, `UPDATE investments SET rsi = ?, updated_at = ? WHERE id = ?`,
		decimalArg(models.RSISpec.Quantize(rsi), models.RSISpec), timeArg(r.now()), id)
	if err != nil {
		return fmt.Errorf("set rsi: %w", err)
	}
	return checkAffected(res, "set rsi")
}

// FlagWeeklyOptions sets weekly_options from membership in cboe_securities
// and returns how many investments are flagged.
func (r *InvestmentRepository) FlagWeeklyOptions(ctx context.Context) (int64, error) {
	_, err := r.q.ExecContext(ctx, `UPDATE investments SET weekly_options =
		CASE WHEN UPPER(ticker) IN (SELECT symbol FROM cboe_securities) THEN 1 ELSE 0 END`)
	if err != nil {
		return 0, fmt.Errorf("flag weekly options: %w", err)
	}
	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM investments WHERE weekly_options = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count weekly options: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvestment(s rowScanner) (models.Investment, error) {
	var (
		inv                  models.Investment
		price, marketCap     sql.NullString
		optVal, rsi          sql.NullString
		roi, delta           sql.NullString
		optionExp            sql.NullString
		volume, suitability  sql.NullInt64
		weekly               int64
		createdAt, updatedAt string
	)
	err := s.Scan(&inv.ID, &inv.Ticker, &inv.Category, &inv.ScreenerType, &price, &volume,
		&marketCap, &suitability, &optionExp, &inv.Description, &optVal, &rsi, &roi, &delta,
		&weekly, &createdAt, &updatedAt)
	if err != nil {
		return inv, err
	}

	for _, f := range []struct {
		src sql.NullString
		dst *decimal.NullDecimal
	}{
		{price, &inv.Price}, {marketCap, &inv.MarketCap}, {optVal, &inv.OptVal},
		{rsi, &inv.RSI}, {roi, &inv.ROI}, {delta, &inv.Delta},
	} {
		if *f.dst, err = scanDecimal(f.src); err != nil {
			return inv, err
		}
	}
	if volume.Valid {
		v := volume.Int64
		inv.Volume = &v
	}
	if suitability.Valid {
		inv.OptionsSuitability = models.IntPtr(int(suitability.Int64))
	}
	if inv.OptionExp, err = scanDate(optionExp); err != nil {
		return inv, err
	}
	inv.WeeklyOptions = weekly != 0
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return inv, err
	}
	if inv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return inv, err
	}
	return inv, nil
}
