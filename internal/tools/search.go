package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

var ErrNoResults = errors.New("no search results")

const (
	DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
	DefaultWikipediaURL  = "https://en.wikipedia.org/api/rest_v1/page/summary/"

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) enigma"
	maxBody   = 2 << 20
)

// WebSearch queries DuckDuckGo's HTML endpoint and falls back to a Wikipedia
// page summary when that yields nothing.
type WebSearch struct {
	HTTP          *http.Client
	DuckDuckGoURL string
	WikipediaURL  string
	MaxResults    int
}

func NewWebSearch(client *http.Client) *WebSearch {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebSearch{
		HTTP:          client,
		DuckDuckGoURL: DefaultDuckDuckGoURL,
		WikipediaURL:  DefaultWikipediaURL,
		MaxResults:    5,
	}
}

// Search returns "Source: <title>\nInfo: <snippet>" blocks, or a single
// "Wikipedia: <extract>" block from the fallback.
func (s *WebSearch) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrNoResults
	}

	results, err := s.duckDuckGo(ctx, query)
	if err != nil {
		log.Warn("DuckDuckGo search failed", "query", query, "err", err)
	}
	if len(results) > 0 {
		log.Debug("DuckDuckGo results", "query", query, "n", len(results))
		var b strings.Builder
		for _, r := range results {
			fmt.Fprintf(&b, "Source: %s\nInfo: %s\n\n", r.title, r.snippet)
		}
		return b.String(), nil
	}

	extract, err := s.wikipedia(ctx, query)
	if err != nil {
		log.Warn("Wikipedia lookup failed", "query", query, "err", err)
		return "", ErrNoResults
	}
	return "Wikipedia: " + extract, nil
}

type result struct {
	title   string
	snippet string
}

func (s *WebSearch) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

func (s *WebSearch) duckDuckGo(ctx context.Context, query string) ([]result, error) {
	body, err := s.get(ctx, s.DuckDuckGoURL+"?"+url.Values{"q": {query}}.Encode())
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}

	return collectResults(doc, s.MaxResults), nil
}

// collectResults pairs each result__a link with the result__snippet that
// follows it. Results missing either part are dropped.
func collectResults(doc *html.Node, limit int) []result {
	var out []result
	var cur *result

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if limit > 0 && len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				cur = &result{title: textOf(n)}
				return
			case hasClass(n, "result__snippet"):
				if cur != nil && cur.title != "" {
					if snip := textOf(n); snip != "" {
						cur.snippet = snip
						out = append(out, *cur)
					}
				}
				cur = nil
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (s *WebSearch) wikipedia(ctx context.Context, query string) (string, error) {
	title := url.PathEscape(strings.ReplaceAll(query, " ", "_"))

	body, err := s.get(ctx, s.WikipediaURL+title)
	if err != nil {
		return "", err
	}

	extract := strings.TrimSpace(gjson.GetBytes(body, "extract").String())
	if extract == "" {
		return "", errors.New("empty extract")
	}
	return extract, nil
}

type searchArgs struct {
	Query string `json:"query"`
}

func searchTool(s Searcher) func(context.Context, searchArgs) (string, error) {
	return func(ctx context.Context, in searchArgs) (string, error) {
		if strings.TrimSpace(in.Query) == "" {
			return "No search term given.", nil
		}

		out, err := s.Search(ctx, in.Query)
		if errors.Is(err, ErrNoResults) {
			return "Could not find information. Try another search term.", nil
		}
		return out, err
	}
}
