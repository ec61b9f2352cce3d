package ingest

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/grantaxiom/internal/extract"
	"github.com/ppiankov/grantaxiom/internal/model"
)

// FromURL fetches a web page and turns it into a reference. Citation meta
// tags supply title, authors and year when present.
func (i *Ingester) FromURL(ctx context.Context, rawURL string) (model.Reference, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return model.Reference{}, fmt.Errorf("invalid URL %q: want an absolute http(s) URL", rawURL)
	}

	if i.robots != nil {
		allowed, err := i.robots.Allowed(ctx, rawURL)
		if err != nil {
			return model.Reference{}, fmt.Errorf("check robots.txt: %w", err)
		}
		if !allowed {
			return model.Reference{}, fmt.Errorf("%w: %s", ErrDisallowedByRobots, rawURL)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return model.Reference{}, fmt.Errorf("create request: %w", err)
	}
	if i.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", i.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return model.Reference{}, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Reference{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := i.readLimited(resp.Body)
	if err != nil {
		return model.Reference{}, err
	}
	body = trimBOM(body)

	finalURL := resp.Request.URL.String()
	ref := model.Reference{
		ID:      "web-" + i.newID(),
		Title:   subjectFromURL(finalURL),
		Authors: resp.Request.URL.Host,
		Year:    i.now().Year(),
		Source:  finalURL,
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "text/plain":
		ref.ContentSnippet = extract.Snippet(string(body), i.snippetChars())
	case mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml":
		doc, err := extract.ParseDocument(string(body))
		if err != nil {
			return model.Reference{}, fmt.Errorf("parse html: %w", err)
		}
		applyDocument(&ref, doc)
		ref.ContentSnippet = extract.Snippet(doc.Text, i.snippetChars())
	default:
		return model.Reference{}, fmt.Errorf("unsupported content type %q", mediaType)
	}

	i.logger.Info("reference fetched",
		zap.String("id", ref.ID),
		zap.String("url", finalURL),
		zap.String("title", ref.Title))

	return ref, nil
}

// subjectFromURL derives a readable title from the last path segment
func subjectFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = unescaped
	}

	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}

