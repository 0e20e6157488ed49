package oms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const requestTimeout = 30 * time.Second

// HTTPClient talks to the OMS and integrator REST APIs. Sessions are
// short-lived: a token is fetched on demand and refreshed when it expires.
type HTTPClient struct {
	domain   string
	username string
	password string
	http     *http.Client

	mu         sync.Mutex
	token      string
	tokenUntil time.Time
}

func NewHTTPClient(domain, username, password string) *HTTPClient {
	return &HTTPClient{
		domain:   domain,
		username: username,
		password: password,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

func (c *HTTPClient) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenUntil) {
		return c.token, nil
	}

	body, _ := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.domain+"/api/auth", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "oms auth")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("oms auth returned %s", resp.Status)
	}

	var out struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode oms auth response")
	}
	c.token = out.Token
	c.tokenUntil = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.domain+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "oms %s %s", method, path)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("oms %s %s returned %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decode oms %s response", path)
}

func (c *HTTPClient) GetOrderGUID(ctx context.Context, orderID string) (string, error) {
	var out struct {
		GUID string `json:"guid"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID)+"/guid", nil, &out); err != nil {
		return "", err
	}
	return out.GUID, nil
}

type dispatchedOrderPayload struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Address    struct {
		FullName    string `json:"full_name"`
		FullAddress string `json:"full_address"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
	Products []struct {
		SKU      string          `json:"sku"`
		Name     string          `json:"name"`
		Weight   int             `json:"weight"`
		Price    decimal.Decimal `json:"price"`
		Quantity int             `json:"quantity"`
	} `json:"products"`
}

func (p dispatchedOrderPayload) toModel() DispatchedOrder {
	order := DispatchedOrder{
		OrderID:    p.OrderID,
		CustomerID: p.CustomerID,
		Address: DeliveryAddress{
			FullName:    p.Address.FullName,
			FullAddress: p.Address.FullAddress,
			CountryCode: p.Address.CountryCode,
		},
	}
	for _, product := range p.Products {
		order.Products = append(order.Products, DispatchedProduct{
			SKU:      product.SKU,
			Name:     product.Name,
			Weight:   product.Weight,
			Price:    product.Price,
			Quantity: product.Quantity,
		})
	}
	return order
}

func (c *HTTPClient) DispatchCandidates(ctx context.Context, req DispatchCandidatesRequest) ([]DispatchedOrder, error) {
	payload := map[string]interface{}{
		"shipping_rule_id": req.ShippingRuleID,
		"order_type":       req.OrderType,
		"number_of_days":   req.NumberOfDays,
	}
	var out []dispatchedOrderPayload
	if err := c.do(ctx, http.MethodPost, "/api/orders/dispatch-candidates", payload, &out); err != nil {
		return nil, err
	}
	orders := make([]DispatchedOrder, 0, len(out))
	for _, p := range out {
		orders = append(orders, p.toModel())
	}
	return orders, nil
}

func (c *HTTPClient) GetDispatchedOrder(ctx context.Context, orderID string) (*DispatchedOrder, error) {
	var out dispatchedOrderPayload
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	order := out.toModel()
	return &order, nil
}

func (c *HTTPClient) GetStockLevel(ctx context.Context, sku string) (int, error) {
	var out struct {
		Level int `json:"level"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/stock/"+url.PathEscape(sku), nil, &out); err != nil {
		return 0, err
	}
	return out.Level, nil
}

func (c *HTTPClient) SetStockLevel(ctx context.Context, sku string, level int) error {
	return c.do(ctx, http.MethodPut, "/api/stock/"+url.PathEscape(sku),
		map[string]int{"level": level}, nil)
}

func (c *HTTPClient) RecentShipments(ctx context.Context, numberOfDays int) ([]Shipment, error) {
	var out []struct {
		OrderID   string    `json:"order_id"`
		ShippedAt time.Time `json:"shipped_at"`
	}
	path := fmt.Sprintf("/api/shipments?days=%d", numberOfDays)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	shipments := make([]Shipment, 0, len(out))
	for _, s := range out {
		shipments = append(shipments, Shipment{OrderID: s.OrderID, ShippedAt: s.ShippedAt})
	}
	return shipments, nil
}

func (c *HTTPClient) AuditTrail(ctx context.Context, guid string) ([]AuditEvent, error) {
	var out []struct {
		Type           string    `json:"type"`
		UpdatedByEmail string    `json:"updated_by_email"`
		Timestamp      time.Time `json:"timestamp"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(guid)+"/audit", nil, &out); err != nil {
		return nil, err
	}
	events := make([]AuditEvent, 0, len(out))
	for _, e := range out {
		events = append(events, AuditEvent{
			Type:           e.Type,
			UpdatedByEmail: e.UpdatedByEmail,
			Timestamp:      e.Timestamp,
		})
	}
	return events, nil
}
