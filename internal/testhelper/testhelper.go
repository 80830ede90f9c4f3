// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package testhelper provides shared fakes for package tests.
package testhelper

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"testing"
)

// TestOnlineAPIURL is a stable online endpoint used by integration tests.
const TestOnlineAPIURL = "https://www.example.com/"

// MockRoundTripper implements http.RoundTripper by calling Fn for each request.
type MockRoundTripper struct {
	Fn func(*http.Request) (*http.Response, error)
}

// RoundTrip satisfies the http.RoundTripper interface.
func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}

// JSONResponse returns a response with the given status code and body.
func JSONResponse(status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     header,
	}
}

// FileResponse returns a response with status 200 serving the content of the given fixture file.
func FileResponse(t *testing.T, path string) *http.Response {
	t.Helper()
	data, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open JSON response file: %s", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     http.StatusText(http.StatusOK),
		Body:       data,
		Header:     make(http.Header),
	}
}

// PerformIntegrationTests skips the calling test unless PERFORM_INTEGRATION_TESTS is set.
func PerformIntegrationTests(t *testing.T) {
	t.Helper()
	if val := os.Getenv("PERFORM_INTEGRATION_TESTS"); val == "" {
		t.Skip("skipping integration test, set PERFORM_INTEGRATION_TESTS to run")
	}
}

// EnvOrSkip returns the value of the environment variable or skips the calling test if it is empty.
func EnvOrSkip(t *testing.T, key string) string {
	t.Helper()
	val := os.Getenv(key)
	if val == "" {
		t.Skipf("skipping test, %s is not set", key)
	}
	return val
}
