package oms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// ScurriClient is the carrier tracking provider, authenticated with a
// long-term API key.
type ScurriClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewScurriClient(baseURL, apiKey string) *ScurriClient {
	return &ScurriClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type packagePayload struct {
	ScurriID       string `json:"scurri_id"`
	TrackingNumber string `json:"tracking_number"`
	Events         []struct {
		EventID     string    `json:"event_id"`
		Status      string    `json:"status"`
		CarrierCode string    `json:"carrier_code"`
		Description string    `json:"description"`
		Timestamp   time.Time `json:"timestamp"`
		Location    string    `json:"location"`
	} `json:"events"`
}

func (p packagePayload) toModel() PackageStatus {
	status := PackageStatus{
		ScurriID:       p.ScurriID,
		TrackingNumber: p.TrackingNumber,
	}
	for _, e := range p.Events {
		status.Events = append(status.Events, PackageEvent{
			EventID:     e.EventID,
			Status:      e.Status,
			CarrierCode: e.CarrierCode,
			Description: e.Description,
			Timestamp:   e.Timestamp,
			Location:    e.Location,
		})
	}
	return status
}

func (c *ScurriClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "tracking GET %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("tracking GET %s returned %s", path, resp.Status)
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decode tracking %s response", path)
}

func (c *ScurriClient) Packages(ctx context.Context) ([]PackageStatus, error) {
	var out []packagePayload
	if err := c.get(ctx, "/api/packages", &out); err != nil {
		return nil, err
	}
	statuses := make([]PackageStatus, 0, len(out))
	for _, p := range out {
		statuses = append(statuses, p.toModel())
	}
	return statuses, nil
}

func (c *ScurriClient) Package(ctx context.Context, carrierName, trackingNumber string) (*PackageStatus, error) {
	var out packagePayload
	path := "/api/packages/" + url.PathEscape(carrierName) + "/" + url.PathEscape(trackingNumber)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	status := out.toModel()
	return &status, nil
}
