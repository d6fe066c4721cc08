package shipcode_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vvatanabe/shipcode"
)

func TestErrors(t *testing.T) {
	type testCase struct {
		err      error
		expected string
	}
	tests := []testCase{
		{shipcode.APIError{Message: "dial tcp: connection refused"}, "shipment API request failed: dial tcp: connection refused"},
		{shipcode.APIError{Status: 404, Message: "Not Found"}, "shipment API returned 404: Not Found"},
		{shipcode.ValidationError{Messages: []string{"Shipment number is required", "Delivery number is required"}}, "validation failed: Shipment number is required; Delivery number is required."},
		{shipcode.ConfigPersistenceError{Cause: errors.New("sample cause")}, "Failed to decode persisted API configuration: sample cause."},
	}
	for _, tc := range tests {
		if tc.err.Error() != tc.expected {
			t.Errorf("Unexpected error message. Expected: %v, got: %v", tc.expected, tc.err.Error())
		}
	}
}

func TestIsNotFound(t *testing.T) {
	type testCase struct {
		name string
		err  error
		want bool
	}
	tests := []testCase{
		{"value 404", shipcode.APIError{Status: 404}, true},
		{"pointer 404", &shipcode.APIError{Status: 404}, true},
		{"wrapped 404", fmt.Errorf("search: %w", shipcode.APIError{Status: 404}), true},
		{"500", shipcode.APIError{Status: 500}, false},
		{"network", shipcode.APIError{Message: "timeout"}, false},
		{"other", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shipcode.IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAsAPIError(t *testing.T) {
	want := shipcode.APIError{Status: 400, Message: "bad", Details: "more"}
	got, ok := shipcode.AsAPIError(fmt.Errorf("wrapped: %w", want))
	if !ok {
		t.Fatal("AsAPIError() ok = false, want true")
	}
	if got.Status != want.Status || got.Message != want.Message || got.Details != want.Details {
		t.Errorf("AsAPIError() = %+v, want %+v", got, want)
	}
	if _, ok := shipcode.AsAPIError(errors.New("plain")); ok {
		t.Error("AsAPIError() ok = true for a plain error")
	}
}
