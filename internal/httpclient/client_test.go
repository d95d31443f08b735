package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSON(t *testing.T) {
	var gotQuery, gotContentType, gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := New(WithBaseURL(srv.URL+"/api/"), WithHeaders(map[string]string{"Authorization": "token"}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	resp, err := c.NewRequest(WithLabel("endpoint", "test")).
		SetQueryParam("q", "a b&c").
		SetBody(map[string]string{"hello": "world"}).
		SetResult(&result).
		Post(context.Background(), "/graph")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !result.OK {
		t.Error("result not decoded")
	}
	if gotQuery != "q=a+b%26c" {
		t.Errorf("query = %q, want escaped", gotQuery)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotAuth != "token" {
		t.Errorf("default header missing, got %q", gotAuth)
	}
	if gotBody["hello"] != "world" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestErrorHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errUpstream := errors.New("upstream")
	resp, err := c.NewRequest(WithResponseErrorHandler(func(status int, body []byte) error {
		if status >= 400 {
			return errUpstream
		}
		return nil
	})).Get(context.Background(), "")
	if !errors.Is(err, errUpstream) {
		t.Fatalf("error = %v, want handler error", err)
	}
	if resp == nil || !resp.IsError() {
		t.Fatal("response should be returned and flagged as error")
	}
}

func TestDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, err := New(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var out map[string]any
	if _, err := c.NewRequest().SetResult(&out).Get(context.Background(), "/"); err == nil {
		t.Fatal("expected decode error")
	}
}
