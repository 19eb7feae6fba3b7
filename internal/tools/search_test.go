package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const ddgPage = `<html><body>
<div class="result results_links">
  <h2 class="result__title"><a class="result__a" href="https://a">Stockholm - <b>Capital</b></a></h2>
  <a class="result__snippet" href="https://a">Stockholm is the capital of Sweden.</a>
</div>
<div class="result">
  <h2 class="result__title"><a class="result__a" href="https://b">No snippet here</a></h2>
</div>
<div class="result">
  <h2 class="result__title"><a class="result__a" href="https://c">Sweden</a></h2>
  <a class="result__snippet" href="https://c">A Nordic   country.</a>
</div>
</body></html>`

func newSearchServer(t *testing.T, ddg, wiki http.HandlerFunc) *WebSearch {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/html/", ddg)
	mux.HandleFunc("/wiki/", wiki)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := NewWebSearch(srv.Client())
	s.DuckDuckGoURL = srv.URL + "/html/"
	s.WikipediaURL = srv.URL + "/wiki/"
	return s
}

func TestSearchDuckDuckGo(t *testing.T) {
	var gotQuery, gotAgent string
	s := newSearchServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("q")
			gotAgent = r.Header.Get("User-Agent")
			w.Write([]byte(ddgPage))
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("wikipedia must not be queried")
		},
	)

	out, err := s.Search(context.Background(), " capital of Sweden ")
	if err != nil {
		t.Fatal(err)
	}

	want := "Source: Stockholm - Capital\nInfo: Stockholm is the capital of Sweden.\n\n" +
		"Source: Sweden\nInfo: A Nordic country.\n\n"
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
	if gotQuery != "capital of Sweden" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAgent == "" {
		t.Error("no user agent sent")
	}
}

func TestSearchLimitsResults(t *testing.T) {
	s := newSearchServer(t,
		func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(ddgPage)) },
		func(w http.ResponseWriter, r *http.Request) {},
	)
	s.MaxResults = 1

	out, err := s.Search(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "Source: ") != 1 {
		t.Errorf("out = %q", out)
	}
}

func TestSearchFallsBackToWikipedia(t *testing.T) {
	var gotPath string
	s := newSearchServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		},
		func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"title": "Apollo program", "extract": "The Apollo program was a NASA program."}`))
		},
	)

	out, err := s.Search(context.Background(), "Apollo program")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Wikipedia: The Apollo program was a NASA program." {
		t.Errorf("out = %q", out)
	}
	if gotPath != "/wiki/Apollo_program" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestSearchNoResults(t *testing.T) {
	s := newSearchServer(t,
		func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html><body>No results.</body></html>")) },
		func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
	)

	if _, err := s.Search(context.Background(), "xyzzy"); !errors.Is(err, ErrNoResults) {
		t.Errorf("err = %v, want ErrNoResults", err)
	}
}
