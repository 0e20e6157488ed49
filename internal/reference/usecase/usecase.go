package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/internal/reference"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ratePrecision is the number of decimal places stored for exchange rates.
const ratePrecision = 3

// baseCurrency is the currency everything converts into.
const baseCurrency = "GBP"

type referenceUseCase struct {
	repo    reference.Repository
	client  *http.Client
	feedURL string
	clock   clock.Clock
	logger  logger.Logger
}

func NewReferenceUseCase(repo reference.Repository, client *http.Client, feedURL string, clk clock.Clock, log logger.Logger) reference.UseCase {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &referenceUseCase{
		repo:    repo,
		client:  client,
		feedURL: feedURL,
		clock:   clk,
		logger:  log,
	}
}

type rateFeed struct {
	Rates map[string]json.Number `json:"rates"`
}

func (uc *referenceUseCase) UpdateExchangeRates(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uc.feedURL, nil)
	if err != nil {
		return err
	}
	resp, err := uc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("exchange rate feed returned %d", resp.StatusCode)
	}

	var feed rateFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return err
	}

	currencies, err := uc.repo.Currencies(ctx)
	if err != nil {
		return err
	}

	today := uc.clock.Now()
	var rates []model.ExchangeRate
	for _, currency := range currencies {
		if currency.Code == baseCurrency {
			continue
		}
		raw, ok := feed.Rates[currency.Code]
		if !ok {
			uc.logger.Warn("currency missing from exchange rate feed",
				zap.String("currency", currency.Code))
			continue
		}
		feedRate, err := decimal.NewFromString(raw.String())
		if err != nil || feedRate.IsZero() {
			uc.logger.Warn("unusable rate in exchange rate feed",
				zap.String("currency", currency.Code), zap.String("rate", raw.String()))
			continue
		}
		rates = append(rates, model.ExchangeRate{
			ID:           uuid.New().String(),
			CurrencyCode: currency.Code,
			Date:         today,
			Rate:         decimal.NewFromInt(1).DivRound(feedRate, ratePrecision),
		})
	}

	if len(rates) == 0 {
		return nil
	}
	if err := uc.repo.SaveRates(ctx, rates); err != nil {
		return err
	}
	uc.logger.Info("exchange rates updated", zap.Int("count", len(rates)))
	return nil
}
