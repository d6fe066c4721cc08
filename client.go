package shipcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vvatanabe/shipcode/internal/clock"
	"github.com/vvatanabe/shipcode/internal/constant"
)

const (
	basePath     = "/api/shipmentdelivery"
	shipmentPath = basePath + "/shipment/"
	deliveryPath = basePath + "/delivery/"
)

// Client is an interface for interacting with the shipment delivery API.
type Client interface {
	// CreateShipmentDelivery creates a delivery inside a (possibly new) shipment.
	CreateShipmentDelivery(ctx context.Context, params *CreateShipmentDeliveryInput) (*CreateShipmentDeliveryOutput, error)
	// GetShipmentByNumber fetches a shipment by its shipment number. A missing shipment is an APIError with status 404.
	GetShipmentByNumber(ctx context.Context, params *GetShipmentByNumberInput) (*GetShipmentOutput, error)
	// GetShipmentByDeliveryNumber fetches the shipment that owns a delivery. A missing delivery is an APIError with status 404.
	GetShipmentByDeliveryNumber(ctx context.Context, params *GetShipmentByDeliveryNumberInput) (*GetShipmentOutput, error)
	// ListShipments lists every shipment known to the API.
	ListShipments(ctx context.Context, params *ListShipmentsInput) (*ListShipmentsOutput, error)
	// SearchShipment looks a term up as a delivery number first and, only when that is not found, as a shipment number.
	SearchShipment(ctx context.Context, params *SearchShipmentInput) (*SearchShipmentOutput, error)
	// UpdateShipment replaces a shipment and its delivery list.
	UpdateShipment(ctx context.Context, params *UpdateShipmentInput) (*UpdateShipmentOutput, error)
	// TestConnection reports whether the API answers the list endpoint successfully.
	TestConnection(ctx context.Context) (bool, error)
}

// ClientOptions defines configuration options for the shipment API client.
//
// Clock and RequestIDGenerator are primarily provided for tests.
type ClientOptions struct {
	// HTTPClient performs the requests. Defaults to an http.Client with Timeout.
	HTTPClient *http.Client
	// Timeout bounds a single request when HTTPClient is not set.
	Timeout time.Duration
	// Logger receives request diagnostics.
	Logger *slog.Logger
	// Clock is used to check bearer token expiry.
	Clock clock.Clock
	// RequestIDGenerator produces the X-Request-ID header value.
	RequestIDGenerator func() string
}

func WithHTTPClient(client *http.Client) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.HTTPClient = client
	}
}

func WithTimeout(timeout time.Duration) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Logger = logger
	}
}

func WithClock(c clock.Clock) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Clock = c
	}
}

// WithRequestIDGenerator sets the function generating X-Request-ID values.
// By default, uuid.NewString is used.
func WithRequestIDGenerator(gen func() string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.RequestIDGenerator = gen
	}
}

// NewClient creates a shipment API client. The configuration is read from
// cfg on every request, so runtime updates apply to the next call.
func NewClient(cfg ConfigProvider, optFns ...func(*ClientOptions)) Client {
	o := &ClientOptions{
		Timeout:            constant.DefaultRequestTimeout,
		Logger:             slog.Default(),
		Clock:              clock.RealClock{},
		RequestIDGenerator: uuid.NewString,
	}
	for _, opt := range optFns {
		opt(o)
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return &ClientImpl{
		config:      cfg,
		httpClient:  o.HTTPClient,
		logger:      o.Logger,
		clock:       o.Clock,
		requestID:   o.RequestIDGenerator,
		tokenParser: jwt.NewParser(),
	}
}

// ClientImpl is the HTTP implementation of Client.
// Note: always use NewClient to create an instance.
type ClientImpl struct {
	config      ConfigProvider
	httpClient  *http.Client
	logger      *slog.Logger
	clock       clock.Clock
	requestID   func() string
	tokenParser *jwt.Parser
}

// CreateShipmentDeliveryInput represents the input parameters for creating a shipment delivery.
type CreateShipmentDeliveryInput struct {
	Request ShipmentDeliveryRequest
}

// CreateShipmentDeliveryOutput carries the raw acknowledgement body of the API.
type CreateShipmentDeliveryOutput struct {
	Ack json.RawMessage
}

// CreateShipmentDelivery posts the request as-is. Callers validate with ValidateRequest first.
func (c *ClientImpl) CreateShipmentDelivery(ctx context.Context, params *CreateShipmentDeliveryInput) (*CreateShipmentDeliveryOutput, error) {
	if params == nil {
		params = &CreateShipmentDeliveryInput{}
	}
	var ack json.RawMessage
	if err := c.do(ctx, http.MethodPost, basePath, params.Request, &ack); err != nil {
		return &CreateShipmentDeliveryOutput{}, err
	}
	return &CreateShipmentDeliveryOutput{Ack: ack}, nil
}

type GetShipmentByNumberInput struct {
	ShipmentNumber string
}

type GetShipmentByDeliveryNumberInput struct {
	DeliveryNumber string
}

type GetShipmentOutput struct {
	Shipment *Shipment
}

func (c *ClientImpl) GetShipmentByNumber(ctx context.Context, params *GetShipmentByNumberInput) (*GetShipmentOutput, error) {
	if params == nil {
		params = &GetShipmentByNumberInput{}
	}
	return c.getShipment(ctx, shipmentPath+url.PathEscape(params.ShipmentNumber))
}

func (c *ClientImpl) GetShipmentByDeliveryNumber(ctx context.Context, params *GetShipmentByDeliveryNumberInput) (*GetShipmentOutput, error) {
	if params == nil {
		params = &GetShipmentByDeliveryNumberInput{}
	}
	return c.getShipment(ctx, deliveryPath+url.PathEscape(params.DeliveryNumber))
}

func (c *ClientImpl) getShipment(ctx context.Context, path string) (*GetShipmentOutput, error) {
	shipment := &Shipment{}
	if err := c.do(ctx, http.MethodGet, path, nil, shipment); err != nil {
		return &GetShipmentOutput{}, err
	}
	return &GetShipmentOutput{Shipment: shipment}, nil
}

type ListShipmentsInput struct{}

type ListShipmentsOutput struct {
	Shipments []Shipment
}

func (c *ClientImpl) ListShipments(ctx context.Context, _ *ListShipmentsInput) (*ListShipmentsOutput, error) {
	var shipments []Shipment
	if err := c.do(ctx, http.MethodGet, basePath, nil, &shipments); err != nil {
		return &ListShipmentsOutput{}, err
	}
	return &ListShipmentsOutput{Shipments: shipments}, nil
}

// MatchedBy tells which lookup of a search found the shipment.
type MatchedBy string

const (
	MatchedByDelivery MatchedBy = "delivery"
	MatchedByShipment MatchedBy = "shipment"
)

type SearchShipmentInput struct {
	Term string
}

type SearchShipmentOutput struct {
	Shipment  *Shipment
	MatchedBy MatchedBy
}

// SearchShipment tries the term as a delivery number first. Only a 404 from
// that lookup triggers the shipment-number lookup; any other failure is
// returned without a second request.
func (c *ClientImpl) SearchShipment(ctx context.Context, params *SearchShipmentInput) (*SearchShipmentOutput, error) {
	if params == nil {
		params = &SearchShipmentInput{}
	}
	return Search(ctx, c, params.Term)
}

// Search implements the delivery-then-shipment lookup on top of any Client.
func Search(ctx context.Context, client Client, term string) (*SearchShipmentOutput, error) {
	byDelivery, err := client.GetShipmentByDeliveryNumber(ctx, &GetShipmentByDeliveryNumberInput{DeliveryNumber: term})
	if err == nil {
		return &SearchShipmentOutput{Shipment: byDelivery.Shipment, MatchedBy: MatchedByDelivery}, nil
	}
	if !IsNotFound(err) {
		return &SearchShipmentOutput{}, err
	}
	byShipment, err := client.GetShipmentByNumber(ctx, &GetShipmentByNumberInput{ShipmentNumber: term})
	if err != nil {
		return &SearchShipmentOutput{}, err
	}
	return &SearchShipmentOutput{Shipment: byShipment.Shipment, MatchedBy: MatchedByShipment}, nil
}

type UpdateShipmentInput struct {
	// ShipmentNumber is the current number of the shipment to replace.
	ShipmentNumber string
	Payload        UpdateShipmentRequest
}

type UpdateShipmentOutput struct {
	Shipment *Shipment
}

// UpdateShipment sends a full replacement; the server overwrites the delivery list.
func (c *ClientImpl) UpdateShipment(ctx context.Context, params *UpdateShipmentInput) (*UpdateShipmentOutput, error) {
	if params == nil {
		params = &UpdateShipmentInput{}
	}
	shipment := &Shipment{}
	path := shipmentPath + url.PathEscape(params.ShipmentNumber)
	if err := c.do(ctx, http.MethodPut, path, params.Payload, shipment); err != nil {
		return &UpdateShipmentOutput{}, err
	}
	return &UpdateShipmentOutput{Shipment: shipment}, nil
}

func (c *ClientImpl) TestConnection(ctx context.Context) (bool, error) {
	if err := c.do(ctx, http.MethodGet, basePath, nil, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ClientImpl) do(ctx context.Context, method, path string, body, out any) error {
	cfg := c.config.Current()
	req, err := c.newRequest(ctx, cfg, method, path, body)
	if err != nil {
		return APIError{Message: err.Error()}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("shipment API unreachable", "method", method, "path", path, "error", err)
		return APIError{Message: err.Error()}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return APIError{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, data)
		if apiErr.NotFound() && method == http.MethodGet {
			c.logger.Debug("shipment API lookup found nothing", "path", path)
		} else {
			c.logger.Warn("shipment API request failed", "method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return APIError{Status: resp.StatusCode, Message: fmt.Sprintf("invalid response body: %v", err)}
	}
	return nil
}

func (c *ClientImpl) newRequest(ctx context.Context, cfg APIConfig, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	endpoint := strings.TrimRight(cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.requestID())
	if cfg.BearerToken != "" {
		c.checkTokenExpiry(cfg.BearerToken)
		req.Header.Set("Authorization", "Bearer "+cfg.BearerToken)
	}
	return req, nil
}

// checkTokenExpiry only warns; opaque tokens and unparsable JWTs pass silently.
func (c *ClientImpl) checkTokenExpiry(token string) {
	claims := jwt.MapClaims{}
	if _, _, err := c.tokenParser.ParseUnverified(token, claims); err != nil {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if c.clock.Now().After(exp.Time) {
		c.logger.Warn("bearer token has expired", "expired_at", exp.Time)
	}
}

type errorBody struct {
	Message string          `json:"message"`
	Details string          `json:"details"`
	Errors  json.RawMessage `json:"errors"`
}

// fieldErrors reads "errors" only when it is a field-to-messages map; any
// other shape is ignored.
func (b errorBody) fieldErrors() map[string][]string {
	if len(b.Errors) == 0 {
		return nil
	}
	var fields map[string][]string
	if err := json.Unmarshal(b.Errors, &fields); err != nil {
		return nil
	}
	return fields
}

func parseAPIError(status int, data []byte) APIError {
	apiErr := APIError{Status: status}
	trimmed := bytes.TrimSpace(data)
	var body errorBody
	switch {
	case len(trimmed) == 0:
	case json.Unmarshal(trimmed, &body) == nil:
		apiErr.Details = body.Details
		apiErr.FieldErrors = body.fieldErrors()
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case body.Details != "":
			apiErr.Message = body.Details
		}
	default:
		var s string
		if json.Unmarshal(trimmed, &s) == nil {
			apiErr.Message = s
		} else {
			apiErr.Message = string(trimmed)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if apiErr.Message == "" {
		apiErr.Message = defaultErrorMessage
	}
	return apiErr
}
