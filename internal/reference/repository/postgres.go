package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/pkg/errors"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) CountryByISO(ctx context.Context, iso string) (*model.Country, error) {
	var country model.Country
	err := r.DB.GetContext(ctx, &country,
		`SELECT * FROM countries WHERE iso_code = $1 LIMIT 1`, iso)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select country")
	}

	var region model.Region
	err = r.DB.GetContext(ctx, &region,
		`SELECT * FROM regions WHERE id = $1 LIMIT 1`, country.RegionID)
	if err != nil {
		return nil, errors.Wrap(err, "select region for country")
	}
	country.Region = &region
	return &country, nil
}

func (r *PGRepository) Regions(ctx context.Context) ([]model.Region, error) {
	var regions []model.Region
	err := r.DB.SelectContext(ctx, &regions, `SELECT * FROM regions ORDER BY name`)
	return regions, errors.Wrap(err, "select regions")
}

func (r *PGRepository) Currencies(ctx context.Context) ([]model.Currency, error) {
	var currencies []model.Currency
	err := r.DB.SelectContext(ctx, &currencies, `SELECT * FROM currencies ORDER BY code`)
	return currencies, errors.Wrap(err, "select currencies")
}

func (r *PGRepository) RateOn(ctx context.Context, currencyCode string, date time.Time) (*model.ExchangeRate, error) {
	var rate model.ExchangeRate
	err := r.DB.GetContext(ctx, &rate, `
		SELECT * FROM exchange_rates
		WHERE currency_code = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT 1`, currencyCode, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select exchange rate")
	}
	return &rate, nil
}

func (r *PGRepository) SaveRates(ctx context.Context, rates []model.ExchangeRate) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin save rates")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO exchange_rates (id, currency_code, date, rate)
		VALUES (:id, :currency_code, :date, :rate)
		ON CONFLICT (currency_code, date) DO UPDATE SET rate = EXCLUDED.rate`
	for _, rate := range rates {
		if _, err := tx.NamedExecContext(ctx, query, rate); err != nil {
			return errors.Wrapf(err, "upsert rate %s", rate.CurrencyCode)
		}
	}
	return tx.Commit()
}

func (r *PGRepository) ServiceByName(ctx context.Context, name string) (*model.ShippingService, error) {
	var service model.ShippingService
	err := r.DB.GetContext(ctx, &service,
		`SELECT * FROM shipping_services WHERE name = $1 LIMIT 1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select shipping service")
	}
	return &service, nil
}

func (r *PGRepository) ChannelByName(ctx context.Context, name string) (*model.Channel, error) {
	var channel model.Channel
	err := r.DB.GetContext(ctx, &channel,
		`SELECT * FROM channels WHERE name = $1 LIMIT 1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select channel")
	}
	return &channel, nil
}

func (r *PGRepository) StaffByEmail(ctx context.Context, email string) (*model.Staff, error) {
	var staff model.Staff
	err := r.DB.GetContext(ctx, &staff,
		`SELECT * FROM staff WHERE email = $1 OR second_email = $1 LIMIT 1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select staff")
	}
	return &staff, nil
}
