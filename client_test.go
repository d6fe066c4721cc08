package shipcode_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvatanabe/shipcode"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var paths []string
	for _, r := range f.requests {
		paths = append(paths, r.Method+" "+r.Path)
	}
	return paths
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request), token string, opts ...func(*shipcode.ClientOptions)) (shipcode.Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{handler: handler}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	cfg := shipcode.NewConfigManager(shipcode.APIConfig{BaseURL: server.URL + "/", BearerToken: token}, nil)
	opts = append([]func(*shipcode.ClientOptions){shipcode.WithRequestIDGenerator(func() string { return "req-1" })}, opts...)
	return shipcode.NewClient(cfg, opts...), api
}

func TestClient_SearchShipment(t *testing.T) {
	shipment := shipcode.Shipment{ShipmentNumber: "SHP-1", Deliveries: []shipcode.Delivery{{DeliveryNumber: "DL-1"}}}
	type testCase struct {
		name          string
		term          string
		handler       func(w http.ResponseWriter, r *http.Request)
		wantMatchedBy shipcode.MatchedBy
		wantStatus    int
		wantPaths     []string
	}
	tests := []testCase{
		{
			name: "found by delivery number",
			term: "DL-1",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, shipment)
			},
			wantMatchedBy: shipcode.MatchedByDelivery,
			wantPaths:     []string{"GET /api/shipmentdelivery/delivery/DL-1"},
		},
		{
			name: "falls back to shipment number on 404",
			term: "SHP-1",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/shipmentdelivery/delivery/SHP-1" {
					writeJSON(w, http.StatusNotFound, map[string]string{"message": "Delivery not found"})
					return
				}
				writeJSON(w, http.StatusOK, shipment)
			},
			wantMatchedBy: shipcode.MatchedByShipment,
			wantPaths: []string{
				"GET /api/shipmentdelivery/delivery/SHP-1",
				"GET /api/shipmentdelivery/shipment/SHP-1",
			},
		},
		{
			name: "not found by either lookup",
			term: "DL-404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantPaths: []string{
				"GET /api/shipmentdelivery/delivery/DL-404",
				"GET /api/shipmentdelivery/shipment/DL-404",
			},
		},
		{
			name: "server error does not fall back",
			term: "DL-1",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "database down"})
			},
			wantStatus: http.StatusInternalServerError,
			wantPaths:  []string{"GET /api/shipmentdelivery/delivery/DL-1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, api := newTestClient(t, tt.handler, "")
			out, err := client.SearchShipment(context.Background(), &shipcode.SearchShipmentInput{Term: tt.term})
			assert.Equal(t, tt.wantPaths, api.paths())
			if tt.wantStatus != 0 {
				apiErr, ok := shipcode.AsAPIError(err)
				require.True(t, ok, "error = %v", err)
				assert.Equal(t, tt.wantStatus, apiErr.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatchedBy, out.MatchedBy)
			assert.Equal(t, "SHP-1", out.Shipment.ShipmentNumber)
		})
	}
}

func TestClient_TimestampWithoutZone(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"shipmentNumber":"SHP-1","deliveries":[{"deliveryNumber":"DL-1","deliveryType":0,"createdAt":"2024-05-01T10:20:30.123"}],"createdAt":"2024-05-01T10:20:30.123","updatedAt":"2024-05-02T08:00:00"}`))
	}, "")
	out, err := client.SearchShipment(context.Background(), &shipcode.SearchShipmentInput{Term: "DL-1"})
	require.NoError(t, err)
	require.NotNil(t, out.Shipment)
	assert.Equal(t, "SHP-1", out.Shipment.ShipmentNumber)
	assert.True(t, time.Date(2024, 5, 1, 10, 20, 30, 123000000, time.UTC).Equal(out.Shipment.CreatedAt.Time))
	assert.True(t, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC).Equal(out.Shipment.UpdatedAt.Time))
	require.Len(t, out.Shipment.Deliveries, 1)
	assert.Equal(t, 2024, out.Shipment.Deliveries[0].CreatedAt.Year())
}

func TestClient_Headers(t *testing.T) {
	type testCase struct {
		name     string
		token    string
		wantAuth string
	}
	tests := []testCase{
		{"without token", "", ""},
		{"with token", "opaque-token", "Bearer opaque-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, []shipcode.Shipment{})
			}, tt.token)
			ok, err := client.TestConnection(context.Background())
			require.NoError(t, err)
			assert.True(t, ok)
			require.Len(t, api.requests, 1)
			h := api.requests[0].Header
			assert.Equal(t, tt.wantAuth, h.Get("Authorization"))
			assert.Equal(t, "application/json", h.Get("Accept"))
			assert.Equal(t, "application/json", h.Get("Content-Type"))
			assert.Equal(t, "req-1", h.Get("X-Request-ID"))
			assert.Equal(t, "GET /api/shipmentdelivery", api.paths()[0])
		})
	}
}

func TestClient_CreateShipmentDelivery(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
	}, "")
	req := shipcode.ShipmentDeliveryRequest{
		ShipmentNumber: "SHP-1",
		DeliveryNumber: "DL-1",
		DeliveryType:   shipcode.DeliveryTypeBulk,
		BulkItems:      []shipcode.BulkItem{{MaterialNumber: "M1", EvdSealNumber: "E1"}},
	}
	out, err := client.CreateShipmentDelivery(context.Background(), &shipcode.CreateShipmentDeliveryInput{Request: req})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"created"}`, string(out.Ack))

	require.Len(t, api.requests, 1)
	assert.Equal(t, "POST /api/shipmentdelivery", api.paths()[0])
	assert.JSONEq(t, `{
		"shipmentNumber": "SHP-1",
		"deliveryNumber": "DL-1",
		"deliveryType": 1,
		"bulkItems": [{"materialNumber": "M1", "evdSealNumber": "E1"}]
	}`, string(api.requests[0].Body))
}

func TestClient_UpdateShipment(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, shipcode.Shipment{ShipmentNumber: "SHP-2"})
	}, "")
	out, err := client.UpdateShipment(context.Background(), &shipcode.UpdateShipmentInput{
		ShipmentNumber: "SHP 1",
		Payload:        shipcode.UpdateShipmentRequest{ShipmentNumber: "SHP-2", Deliveries: []shipcode.DeliveryUpdate{}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SHP-2", out.Shipment.ShipmentNumber)
	assert.Equal(t, "PUT /api/shipmentdelivery/shipment/SHP 1", api.paths()[0])
	assert.JSONEq(t, `{"shipmentNumber":"SHP-2","deliveries":[]}`, string(api.requests[0].Body))
}

func TestClient_ErrorMessages(t *testing.T) {
	type testCase struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantFields  map[string][]string
	}
	tests := []testCase{
		{"string body", http.StatusBadRequest, `"Delivery already exists"`, "Delivery already exists", nil},
		{"message field", http.StatusConflict, `{"message":"duplicate","details":"DL-1"}`, "duplicate", nil},
		{"details field", http.StatusBadRequest, `{"details":"bad delivery type"}`, "bad delivery type", nil},
		{"field errors", http.StatusBadRequest, `{"errors":{"ShipmentNumber":["required"]}}`, "Bad Request", map[string][]string{"ShipmentNumber": {"required"}}},
		{"errors as a list", http.StatusBadRequest, `{"message":"Duplicate delivery","errors":["DL-1 already exists"]}`, "Duplicate delivery", nil},
		{"errors as a string", http.StatusBadRequest, `{"details":"bad delivery type","errors":"invalid"}`, "bad delivery type", nil},
		{"errors as a list without message", http.StatusUnprocessableEntity, `{"errors":["x"]}`, "Unprocessable Entity", nil},
		{"empty body", http.StatusBadGateway, ``, "Bad Gateway", nil},
		{"plain text", http.StatusInternalServerError, `oops`, "oops", nil},
		{"unknown status", 599, ``, "An unexpected error occurred", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "")
			_, err := client.ListShipments(context.Background(), nil)
			apiErr, ok := shipcode.AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantFields, apiErr.FieldErrors)
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	cfg := shipcode.NewConfigManager(shipcode.APIConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	client := shipcode.NewClient(cfg, shipcode.WithTimeout(time.Second))
	ok, err := client.TestConnection(context.Background())
	assert.False(t, ok)
	apiErr, isAPIErr := shipcode.AsAPIError(err)
	require.True(t, isAPIErr)
	assert.Equal(t, 0, apiErr.Status)
	assert.False(t, shipcode.IsNotFound(err))
}

func TestClient_ExpiredTokenWarning(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []shipcode.Shipment{})
	}, token, shipcode.WithLogger(logger))

	_, err = client.ListShipments(context.Background(), &shipcode.ListShipmentsInput{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "bearer token has expired")
	assert.Equal(t, "Bearer "+token, api.requests[0].Header.Get("Authorization"))
}
