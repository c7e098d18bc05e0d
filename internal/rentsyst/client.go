// Package rentsyst implements core.OrderAPI over the Rentsyst booking REST API.
package rentsyst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/manishonc/car-rental/internal/core"
)

const maxErrorBody = 512

type Config struct {
	BaseURL       string
	AuthURL       string
	ClientID      string
	ClientSecret  string
	FallbackToken string
	Timeout       time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

var _ core.OrderAPI = (*Client)(nil)

// New builds a client that authenticates every request with a bearer token
// obtained from the client-credentials flow or the fallback token.
func New(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "rentsyst")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	tokenClient := &http.Client{Timeout: timeout}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: newTokenSource(cfg, tokenClient, log),
				Base:   http.DefaultTransport,
			},
		},
		log: log,
	}
}

func (c *Client) SearchVehicles(ctx context.Context, q core.SearchQuery) (core.SearchResult, error) {
	params := url.Values{}
	params.Set("date_from", q.DateFrom)
	params.Set("date_to", q.DateTo)
	if q.PickupLocation != "" {
		params.Set("pickup_location", q.PickupLocation)
	}
	if q.ReturnLocation != "" {
		params.Set("return_location", q.ReturnLocation)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}

	var resp searchResponse
	if err := c.doJSON(ctx, "search", http.MethodGet, "/booking/search?"+params.Encode(), nil, &resp); err != nil {
		return core.SearchResult{}, err
	}
	out := core.SearchResult{Pagination: resp.Pagination}
	for _, v := range resp.Vehicles {
		out.Vehicles = append(out.Vehicles, v.toCore())
	}
	return out, nil
}

func (c *Client) GetLocations(ctx context.Context) ([]core.Location, error) {
	var settings companySettings
	if err := c.doJSON(ctx, "company settings", http.MethodGet, "/company/settings", nil, &settings); err != nil {
		return nil, err
	}
	return settings.Locations, nil
}

func (c *Client) GetCountries(ctx context.Context, lang string) ([]core.Country, error) {
	var countries []core.Country
	path := "/directory/countries?" + url.Values{"lang": {lang}}.Encode()
	if err := c.doJSON(ctx, "countries", http.MethodGet, path, nil, &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

func (c *Client) CreateOrder(ctx context.Context, req core.CreateOrderRequest) (string, error) {
	body := createOrderBody{
		VehicleID:      numericOrString(req.VehicleID),
		DateFrom:       req.DateFrom,
		DateTo:         req.DateTo,
		PickupLocation: numericOrString(req.PickupLocation),
		ReturnLocation: numericOrString(req.ReturnLocation),
	}
	var resp createOrderResponse
	if err := c.doJSON(ctx, "create order", http.MethodPost, "/order/create", body, &resp); err != nil {
		return "", err
	}
	if resp.ID != "" {
		return string(resp.ID), nil
	}
	return string(resp.OrderID), nil
}

func (c *Client) UpdateOrder(ctx context.Context, orderID string, insuranceID int) error {
	path := "/v2/order/update/" + url.PathEscape(orderID)
	return c.doJSON(ctx, "update order", http.MethodPut, path, updateOrderBody{Insurance: insuranceID}, nil)
}

func (c *Client) ConfirmOrder(ctx context.Context, orderID string, drivers []core.Driver, method core.PaymentMethod) (core.ConfirmResult, error) {
	path := "/order/confirm/" + url.PathEscape(orderID)
	var resp confirmOrderResponse
	body := confirmOrderBody{Drivers: drivers, PaymentMethod: string(method)}
	if err := c.doJSON(ctx, "confirm order", http.MethodPost, path, body, &resp); err != nil {
		return core.ConfirmResult{}, err
	}
	return core.ConfirmResult{
		PaymentID:    string(resp.PaymentID),
		PaymentLink:  resp.PaymentLink,
		Status:       resp.Status,
		UniqueNumber: string(resp.UniqueNumber),
	}, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.doJSON(ctx, "cancel order", http.MethodPost, "/order/cancel/"+url.PathEscape(orderID), nil, nil)
}

func (c *Client) UploadFile(ctx context.Context, f core.FileUpload) (core.FileUploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return core.FileUploadResult{}, fmt.Errorf("rentsyst.upload: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return core.FileUploadResult{}, fmt.Errorf("rentsyst.upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return core.FileUploadResult{}, fmt.Errorf("rentsyst.upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/file/upload", &buf)
	if err != nil {
		return core.FileUploadResult{}, fmt.Errorf("rentsyst.upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	if err := c.do(req, "file upload", &resp); err != nil {
		return core.FileUploadResult{}, err
	}
	return core.FileUploadResult{ID: resp.ID, URL: resp.URL, Status: resp.Status}, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("rentsyst.%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("rentsyst.%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.ErrorContext(req.Context(), "request failed", "op", op, "err", err)
		return fmt.Errorf("%w: %s: %v", core.ErrUpstream, op, err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(req.Context(), "response received",
		"op", op,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.ErrorContext(req.Context(), "error response",
			"op", op,
			"status", resp.StatusCode,
			"body", string(b))
		return fmt.Errorf("%w: %s failed: %d", core.ErrUpstream, op, resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", core.ErrUpstream, op, err)
	}
	return nil
}
