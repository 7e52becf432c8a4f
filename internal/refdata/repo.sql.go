package refdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the reference record does not exist.
var ErrNotFound = errors.New("refdata: not found")

// Repository provides PostgreSQL backed persistence for reference data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRates returns one rate timeline ordered by effective date.
func (r *Repository) ListRates(ctx context.Context, kind RateKind) ([]RefinancingRate, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, kind, date_from, rate FROM refinancing_rates WHERE kind=$1 ORDER BY date_from`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RefinancingRate
	for rows.Next() {
		var rate RefinancingRate
		if err := rows.Scan(&rate.ID, &rate.Kind, &rate.From, &rate.Rate); err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRate appends a point to a rate timeline.
func (r *Repository) CreateRate(ctx context.Context, rate RefinancingRate) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO refinancing_rates (kind, date_from, rate) VALUES ($1, $2, $3) RETURNING id`,
		rate.Kind, rate.From, rate.Rate).Scan(&id)
	return id, err
}

// DeleteRate removes a timeline point.
func (r *Repository) DeleteRate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refinancing_rates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExclusions returns the account's excluded periods plus the global
// ones (abonent_id = 0), ordered by start date.
func (r *Repository) ListExclusions(ctx context.Context, abonentID int64) ([]ExcludedPeriod, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, abonent_id, date_from, date_to, reason FROM excluded_periods WHERE abonent_id IN (0, $1) ORDER BY date_from`, abonentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExcludedPeriod
	for rows.Next() {
		var p ExcludedPeriod
		if err := rows.Scan(&p.ID, &p.AbonentID, &p.From, &p.To, &p.Reason); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateExclusion adds an excluded period.
func (r *Repository) CreateExclusion(ctx context.Context, p ExcludedPeriod) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO excluded_periods (abonent_id, date_from, date_to, reason) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.AbonentID, p.From, p.To, p.Reason).Scan(&id)
	return id, err
}

// DeleteExclusion removes an excluded period.
func (r *Repository) DeleteExclusion(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM excluded_periods WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTariffs returns the tariff schedule ordered by effective date.
func (r *Repository) ListTariffs(ctx context.Context) ([]Tariff, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, date_from, content, repair FROM tariffs ORDER BY date_from`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tariff
	for rows.Next() {
		var t Tariff
		if err := rows.Scan(&t.ID, &t.From, &t.Content, &t.Repair); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTariff appends a schedule point.
func (r *Repository) CreateTariff(ctx context.Context, t Tariff) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO tariffs (date_from, content, repair) VALUES ($1, $2, $3) RETURNING id`,
		t.From, t.Content, t.Repair).Scan(&id)
	return id, err
}

// DeleteTariff removes a schedule point.
func (r *Repository) DeleteTariff(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tariffs WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFixedCharges returns fixed monthly add-ons with their rate timelines.
func (r *Repository) ListFixedCharges(ctx context.Context) ([]FixedCharge, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, active FROM fixed_charges ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FixedCharge
	for rows.Next() {
		var c FixedCharge
		if err := rows.Scan(&c.ID, &c.Title, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		rateRows, err := r.pool.Query(ctx, `SELECT date_from, value FROM fixed_charge_rates WHERE charge_id=$1 ORDER BY date_from`, out[i].ID)
		if err != nil {
			return nil, err
		}
		for rateRows.Next() {
			var from time.Time
			var rate FixedChargeRate
			if err := rateRows.Scan(&from, &rate.Value); err != nil {
				rateRows.Close()
				return nil, err
			}
			rate.From = from
			out[i].Rates = append(out[i].Rates, rate)
		}
		if err := rateRows.Err(); err != nil {
			rateRows.Close()
			return nil, err
		}
		rateRows.Close()
	}
	return out, nil
}

// CreateFixedCharge inserts an add-on with its rate timeline.
func (r *Repository) CreateFixedCharge(ctx context.Context, c FixedCharge) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO fixed_charges (title, active) VALUES ($1, $2) RETURNING id`,
		c.Title, c.Active).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, rate := range c.Rates {
		if _, err := r.pool.Exec(ctx, `INSERT INTO fixed_charge_rates (charge_id, date_from, value) VALUES ($1, $2, $3)`,
			id, rate.From, rate.Value); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// DeleteFixedCharge removes an add-on; its rates go with it.
func (r *Repository) DeleteFixedCharge(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM fixed_charges WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
