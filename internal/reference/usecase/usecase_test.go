package usecase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeRateRepo struct {
	currencies []model.Currency
	saved      []model.ExchangeRate
	saveCalls  int
}

func (f *fakeRateRepo) Currencies(context.Context) ([]model.Currency, error) {
	return f.currencies, nil
}

func (f *fakeRateRepo) SaveRates(_ context.Context, rates []model.ExchangeRate) error {
	f.saveCalls++
	f.saved = append(f.saved, rates...)
	return nil
}

func (f *fakeRateRepo) CountryByISO(context.Context, string) (*model.Country, error) {
	return nil, nil
}
func (f *fakeRateRepo) Regions(context.Context) ([]model.Region, error) { return nil, nil }
func (f *fakeRateRepo) RateOn(context.Context, string, time.Time) (*model.ExchangeRate, error) {
	return nil, nil
}
func (f *fakeRateRepo) ServiceByName(context.Context, string) (*model.ShippingService, error) {
	return nil, nil
}
func (f *fakeRateRepo) ChannelByName(context.Context, string) (*model.Channel, error) {
	return nil, nil
}
func (f *fakeRateRepo) StaffByEmail(context.Context, string) (*model.Staff, error) {
	return nil, nil
}

func trackedCurrencies() []model.Currency {
	return []model.Currency{
		{Code: "GBP", Symbol: "£"},
		{Code: "USD", Symbol: "$"},
		{Code: "EUR", Symbol: "€"},
		{Code: "AUD", Symbol: "$"},
	}
}

func TestUpdateExchangeRatesInvertsFeedRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"rates":{"USD":1.27,"EUR":1.17,"JPY":190.2}}`))
	}))
	defer srv.Close()

	repo := &fakeRateRepo{currencies: trackedCurrencies()}
	uc := NewReferenceUseCase(repo, srv.Client(), srv.URL, clock.Fixed{T: fixedNow}, logger.NewNop())

	require.NoError(t, uc.UpdateExchangeRates(context.Background()))

	// GBP is skipped as the base and AUD is missing from the feed.
	require.Len(t, repo.saved, 2)
	byCode := map[string]model.ExchangeRate{}
	for _, r := range repo.saved {
		byCode[r.CurrencyCode] = r
	}
	assert.Equal(t, "0.787", byCode["USD"].Rate.String())
	assert.Equal(t, "0.855", byCode["EUR"].Rate.String())
	assert.Equal(t, fixedNow, byCode["USD"].Date)
}

func TestUpdateExchangeRatesSkipsZeroRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"rates":{"USD":0,"EUR":1.17}}`))
	}))
	defer srv.Close()

	repo := &fakeRateRepo{currencies: trackedCurrencies()}
	uc := NewReferenceUseCase(repo, srv.Client(), srv.URL, clock.Fixed{T: fixedNow}, logger.NewNop())

	require.NoError(t, uc.UpdateExchangeRates(context.Background()))
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "EUR", repo.saved[0].CurrencyCode)
}

func TestUpdateExchangeRatesFeedErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	repo := &fakeRateRepo{currencies: trackedCurrencies()}
	uc := NewReferenceUseCase(repo, srv.Client(), srv.URL, clock.Fixed{T: fixedNow}, logger.NewNop())

	err := uc.UpdateExchangeRates(context.Background())
	require.Error(t, err)
	assert.Zero(t, repo.saveCalls)
}

func TestUpdateExchangeRatesNothingToSave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"rates":{}}`))
	}))
	defer srv.Close()

	repo := &fakeRateRepo{currencies: trackedCurrencies()}
	uc := NewReferenceUseCase(repo, srv.Client(), srv.URL, clock.Fixed{T: fixedNow}, logger.NewNop())

	require.NoError(t, uc.UpdateExchangeRates(context.Background()))
	assert.Zero(t, repo.saveCalls)
}
