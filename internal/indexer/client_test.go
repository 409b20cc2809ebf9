package indexer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"items":[{"id":"a"},{"id":"b"}]}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	var out struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := c.Query(context.Background(), `{ items { id } }`, &out); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(out.Items) != 2 || out.Items[0].ID != "a" {
		t.Errorf("decoded %+v, want 2 items starting with a", out.Items)
	}
}

func TestQueryGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"field does not exist"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	var out map[string]any
	err := c.Query(context.Background(), `{ bogus }`, &out)
	if err == nil {
		t.Fatal("expected error for graphql errors, got nil")
	}
}

func TestQueryFallback(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()

	var fallbackHits int
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackHits++
		fmt.Fprint(w, `{"data":{"ok":true}}`)
	}))
	defer fallback.Close()

	c := NewClient(primary.URL, fallback.URL)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.Query(context.Background(), `{ ok }`, &out); err != nil {
		t.Fatalf("Query with fallback: %v", err)
	}
	if !out.OK || fallbackHits != 1 {
		t.Errorf("ok=%v fallbackHits=%d, want true/1", out.OK, fallbackHits)
	}
}

func TestQueryBothFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	c := NewClient(down.URL, down.URL)
	var out map[string]any
	if err := c.Query(context.Background(), `{ x }`, &out); err == nil {
		t.Fatal("expected error when primary and fallback fail")
	}
}
