package restaurant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"restaurant-booking-be/internal/pkg/logger"

	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL            string
	Token              string
	Restaurant         string
	ChannelCode        string
	Timeout            time.Duration
	RatePerSec         float64
	Burst              int
	LeaveTimeConfirmed bool
}

// Client talks to the restaurant's consumer booking API. Bodies are
// form-urlencoded, answers are JSON.
type Client struct {
	baseURL string
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  logger.ILogger
}

func NewClient(cfg Config, log logger.ILogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ChannelCode == "" {
		cfg.ChannelCode = "ONLINE"
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/api/ConsumerApi/v1/Restaurant/" + url.PathEscape(cfg.Restaurant),
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  log,
	}
}

func (c *Client) SearchAvailability(ctx context.Context, req AvailabilityRequest) (*AvailabilityResponse, error) {
	form := url.Values{}
	form.Set("VisitDate", req.VisitDate)
	form.Set("PartySize", strconv.Itoa(req.PartySize))
	form.Set("ChannelCode", c.cfg.ChannelCode)

	var out AvailabilityResponse
	if err := c.do(ctx, http.MethodPost, "/AvailabilitySearch", form, &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, schemaViolation(err)
	}
	return &out, nil
}

func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResponse, error) {
	form := url.Values{}
	form.Set("VisitDate", req.VisitDate)
	form.Set("VisitTime", req.VisitTime)
	form.Set("PartySize", strconv.Itoa(req.PartySize))
	form.Set("ChannelCode", c.cfg.ChannelCode)
	form.Set("IsLeaveTimeConfirmed", strconv.FormatBool(c.cfg.LeaveTimeConfirmed))
	setIfNotEmpty(form, "SpecialRequests", req.SpecialRequests)
	setIfNotEmpty(form, "RoomNumber", req.RoomNumber)
	flattenCustomer(form, req.Customer)

	var out BookingResponse
	if err := c.do(ctx, http.MethodPost, "/BookingWithStripeToken", form, &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, schemaViolation(err)
	}
	return &out, nil
}

func (c *Client) GetBooking(ctx context.Context, reference string) (*BookingResponse, error) {
	var out BookingResponse
	if err := c.do(ctx, http.MethodGet, "/Booking/"+url.PathEscape(reference), nil, &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, schemaViolation(err)
	}
	return &out, nil
}

func (c *Client) UpdateBooking(ctx context.Context, reference string, req UpdateBookingRequest) (*UpdateBookingResponse, error) {
	form := url.Values{}
	setIfNotEmpty(form, "VisitDate", req.VisitDate)
	setIfNotEmpty(form, "VisitTime", req.VisitTime)
	if req.PartySize > 0 {
		form.Set("PartySize", strconv.Itoa(req.PartySize))
	}
	setIfNotEmpty(form, "SpecialRequests", req.SpecialRequests)
	if req.IsLeaveTimeConfirmed != nil {
		form.Set("IsLeaveTimeConfirmed", strconv.FormatBool(*req.IsLeaveTimeConfirmed))
	}

	var out UpdateBookingResponse
	if err := c.do(ctx, http.MethodPatch, "/Booking/"+url.PathEscape(reference), form, &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, schemaViolation(err)
	}
	return &out, nil
}

func (c *Client) CancelBooking(ctx context.Context, reference string, reasonID int) (*CancelBookingResponse, error) {
	form := url.Values{}
	form.Set("micrositeName", c.cfg.Restaurant)
	form.Set("bookingReference", reference)
	form.Set("cancellationReasonId", strconv.Itoa(reasonID))

	var out CancelBookingResponse
	if err := c.do(ctx, http.MethodPost, "/Booking/"+url.PathEscape(reference)+"/Cancel", form, &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, schemaViolation(err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, form url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(err)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("RESTAURANT_API", "Request failed", map[string]interface{}{
			"method":   method,
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	c.logger.Info("RESTAURANT_API", "Request completed", map[string]interface{}{
		"method":      method,
		"endpoint":    endpoint,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return schemaViolation(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func transportError(err error) *APIError {
	code := CodeUnavailable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = CodeTimeout
	}
	return &APIError{Category: CategoryTransport, Code: code, Detail: err.Error(), Err: err}
}

func schemaViolation(err error) *APIError {
	return &APIError{Category: CategoryTransport, Code: CodeSchemaViolation, Detail: err.Error(), Err: err}
}

func setIfNotEmpty(form url.Values, key, value string) {
	if value != "" {
		form.Set(key, value)
	}
}

// flattenCustomer writes Customer[Key] pairs; booleans go out lower-case.
func flattenCustomer(form url.Values, c Customer) {
	setIfNotEmpty(form, "Customer[Title]", c.Title)
	setIfNotEmpty(form, "Customer[FirstName]", c.FirstName)
	setIfNotEmpty(form, "Customer[Surname]", c.Surname)
	setIfNotEmpty(form, "Customer[Email]", c.Email)
	setIfNotEmpty(form, "Customer[Mobile]", c.Mobile)

	flags := map[string]*bool{
		"Customer[ReceiveEmailMarketing]":           c.ReceiveEmailMarketing,
		"Customer[ReceiveSmsMarketing]":             c.ReceiveSmsMarketing,
		"Customer[ReceiveRestaurantEmailMarketing]": c.ReceiveRestaurantEmails,
		"Customer[ReceiveRestaurantSmsMarketing]":   c.ReceiveRestaurantSms,
	}
	for key, v := range flags {
		if v != nil {
			form.Set(key, strconv.FormatBool(*v))
		}
	}
}
