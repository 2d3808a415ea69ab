package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// RestClient реализует Client поверх HTTP API брокера.
// Все вызовы ограничены по частоте и имеют конечный таймаут.
type RestClient struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// NewRestClient создает REST клиент брокера
func NewRestClient(baseURL string, timeout time.Duration, ratePerSecond float64) *RestClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &RestClient{
		http:    http,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

type apiResponse struct {
	Status  string           `json:"s"` // "ok" или "error"
	Code    int              `json:"code"`
	Message string           `json:"message"`
	ID      string           `json:"id,omitempty"`
	Orders  []BrokerOrder    `json:"orderBook,omitempty"`
	Net     []BrokerPosition `json:"netPositions,omitempty"`
	Funds   *Balance         `json:"fund_limit,omitempty"`
	Token   string           `json:"access_token,omitempty"`
}

// PlaceOrder размещает ордер от имени пользователя
func (c *RestClient) PlaceOrder(ctx context.Context, token string, req OrderRequest) (*OrderAck, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result apiResponse
	resp, err := c.request(ctx, token).
		SetBody(req).
		SetResult(&result).
		SetError(&result).
		Post("/orders/sync")
	if err != nil {
		return nil, fmt.Errorf("place order request failed: %w", err)
	}

	if result.Status != "ok" {
		return nil, &APIError{Code: result.Code, Message: result.Message}
	}

	return &OrderAck{
		ID:     result.ID,
		Status: result.Message,
		Raw:    string(resp.Body()),
	}, nil
}

// GetOrderBook получает текущий order book пользователя
func (c *RestClient) GetOrderBook(ctx context.Context, token string) ([]BrokerOrder, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result apiResponse
	_, err := c.request(ctx, token).
		SetResult(&result).
		SetError(&result).
		Get("/orders")
	if err != nil {
		return nil, fmt.Errorf("order book request failed: %w", err)
	}

	if result.Status != "ok" {
		return nil, &APIError{Code: result.Code, Message: result.Message}
	}

	return result.Orders, nil
}

// GetPositions получает position book пользователя
func (c *RestClient) GetPositions(ctx context.Context, token string) ([]BrokerPosition, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result apiResponse
	_, err := c.request(ctx, token).
		SetResult(&result).
		SetError(&result).
		Get("/positions")
	if err != nil {
		return nil, fmt.Errorf("positions request failed: %w", err)
	}

	if result.Status != "ok" {
		return nil, &APIError{Code: result.Code, Message: result.Message}
	}

	return result.Net, nil
}

// GetBalance получает доступные средства пользователя
func (c *RestClient) GetBalance(ctx context.Context, token string) (*Balance, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result apiResponse
	_, err := c.request(ctx, token).
		SetResult(&result).
		SetError(&result).
		Get("/funds")
	if err != nil {
		return nil, fmt.Errorf("balance request failed: %w", err)
	}

	if result.Status != "ok" {
		return nil, &APIError{Code: result.Code, Message: result.Message}
	}

	if result.Funds == nil {
		return &Balance{}, nil
	}
	return result.Funds, nil
}

// RefreshAccessToken обменивает refresh token на новый access token.
// PIN обязателен — специфика брокера.
func (c *RestClient) RefreshAccessToken(ctx context.Context, refreshToken, pin string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"pin":           pin,
	}

	var result apiResponse
	_, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&result).
		Post("/validate-refresh-token")
	if err != nil {
		return "", fmt.Errorf("token refresh request failed: %w", err)
	}

	if result.Status != "ok" || result.Token == "" {
		return "", &APIError{Code: result.Code, Message: result.Message}
	}

	return result.Token, nil
}

func (c *RestClient) request(ctx context.Context, token string) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(token)
}
