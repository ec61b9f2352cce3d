// Package ingest builds references from local files, uploaded documents,
// web pages and reference-library files.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/grantaxiom/internal/extract"
	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/util"
)

// UploadedAuthors is the author label given to user-supplied files
const UploadedAuthors = "Uploaded Document"

// ErrDisallowedByRobots is returned when robots.txt forbids fetching a URL
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// ErrTooLarge is returned when a document exceeds the configured size limit
var ErrTooLarge = errors.New("document too large")

// Ingester turns documents into references
type Ingester struct {
	cfg        model.IngestConfig
	httpClient *http.Client
	robots     *util.RobotsChecker
	now        func() time.Time
	newID      func() string
	logger     *zap.Logger
}

// Option configures an Ingester
type Option func(*Ingester)

// WithHTTPClient sets the client used for URL references and robots.txt
func WithHTTPClient(c *http.Client) Option {
	return func(i *Ingester) { i.httpClient = c }
}

// WithClock overrides the clock used for upload years
func WithClock(now func() time.Time) Option {
	return func(i *Ingester) { i.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

// New creates an ingester
func New(cfg model.IngestConfig, opts ...Option) *Ingester {
	i := &Ingester{
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.httpClient == nil {
		i.httpClient = &http.Client{}
	}
	if i.cfg.Timeout > 0 && i.httpClient.Timeout == 0 {
		client := *i.httpClient
		client.Timeout = i.cfg.Timeout
		i.httpClient = &client
	}
	if i.httpClient.CheckRedirect == nil {
		client := *i.httpClient
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		}
		i.httpClient = &client
	}
	if i.cfg.RespectRobots {
		i.robots = util.NewRobotsChecker(i.cfg.UserAgent, i.httpClient)
	}
	return i
}

// FromFile reads a local file into a reference
func (i *Ingester) FromFile(path string) (model.Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Reference{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ref, err := i.FromReader(filepath.Base(path), f)
	if err != nil {
		return model.Reference{}, err
	}
	ref.Source = path
	return ref, nil
}

// FromReader turns an uploaded document into a reference. Plain text and
// Markdown keep their opening characters as the snippet, HTML is reduced to
// its visible text, and other formats get a descriptive placeholder.
func (i *Ingester) FromReader(name string, r io.Reader) (model.Reference, error) {
	data, err := i.readLimited(r)
	if err != nil {
		return model.Reference{}, err
	}
	data = trimBOM(data)

	ref := model.Reference{
		ID:      "local-" + i.newID(),
		Title:   name,
		Authors: UploadedAuthors,
		Year:    i.now().Year(),
	}

	switch kind := classify(name, data); kind {
	case kindText:
		ref.ContentSnippet = textSnippet(string(data), i.snippetChars())
	case kindHTML:
		doc, err := extract.ParseDocument(string(data))
		if err != nil {
			return model.Reference{}, fmt.Errorf("parse html: %w", err)
		}
		applyDocument(&ref, doc)
		ref.ContentSnippet = extract.Snippet(doc.Text, i.snippetChars())
	default:
		ref.ContentSnippet = fmt.Sprintf("Document uploaded: %s. Size: %.1fKB. (Content extraction not available for this format)",
			name, float64(len(data))/1024)
	}

	i.logger.Debug("reference ingested",
		zap.String("id", ref.ID),
		zap.String("title", ref.Title),
		zap.Int("bytes", len(data)))

	return ref, nil
}

func (i *Ingester) readLimited(r io.Reader) ([]byte, error) {
	if i.cfg.MaxBodyBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, i.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > i.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, i.cfg.MaxBodyBytes)
	}
	return data, nil
}

func (i *Ingester) snippetChars() int {
	if i.cfg.SnippetChars <= 0 {
		return 300
	}
	return i.cfg.SnippetChars
}

type docKind int

const (
	kindBinary docKind = iota
	kindText
	kindHTML
)

// classify picks a document kind from the file extension, falling back to
// content sniffing for unknown extensions
func classify(name string, data []byte) docKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown", ".text":
		return kindText
	case ".html", ".htm", ".xhtml":
		return kindHTML
	case ".pdf", ".doc", ".docx", ".odt", ".rtf", ".zip", ".png", ".jpg", ".jpeg":
		return kindBinary
	}

	contentType := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(contentType, "text/html"):
		return kindHTML
	case strings.HasPrefix(contentType, "text/plain") && utf8.Valid(data):
		return kindText
	default:
		return kindBinary
	}
}

// textSnippet keeps the first n runes verbatim and marks the cut with "..."
func textSnippet(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}

func applyDocument(ref *model.Reference, doc *extract.Document) {
	if doc.Title != "" {
		ref.Title = doc.Title
	}
	if len(doc.Authors) > 0 {
		ref.Authors = strings.Join(doc.Authors, ", ")
	}
	if doc.Year > 0 {
		ref.Year = doc.Year
	}
}

// trimBOM drops a UTF-8 byte order mark
func trimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
}
