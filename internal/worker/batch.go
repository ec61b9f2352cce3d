package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/grantaxiom/internal/model"
)

// ErrNotExecuted marks a batch entry that never ran because the batch was
// cancelled
var ErrNotExecuted = errors.New("job not executed")

// Auditor runs one audit. Implementations return a non-nil report even on
// failure.
type Auditor interface {
	RunAudit(ctx context.Context, proposal string, refs []model.Reference) (*model.AnalysisReport, error)
}

// AuditJob audits one proposal file against a shared reference library
type AuditJob struct {
	Path       string
	References []model.Reference
	Auditor    Auditor
}

// Execute reads the proposal file and audits it
func (j *AuditJob) Execute(ctx context.Context) Result {
	start := time.Now()

	data, err := os.ReadFile(j.Path)
	if err != nil {
		return &AuditResult{
			Path:     j.Path,
			Error:    fmt.Errorf("read proposal: %w", err),
			Duration: time.Since(start),
		}
	}

	report, err := j.Auditor.RunAudit(ctx, string(data), j.References)
	return &AuditResult{
		Path:     j.Path,
		Report:   report,
		Error:    err,
		Duration: time.Since(start),
	}
}

// AuditResult represents the result of an audit job
type AuditResult struct {
	Path     string
	Report   *model.AnalysisReport
	Error    error
	Duration time.Duration
}

// GetError returns the error from the audit result
func (r *AuditResult) GetError() error {
	return r.Error
}

// BatchProcessor audits multiple proposals concurrently
type BatchProcessor struct {
	auditor     Auditor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(auditor Auditor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		auditor:     auditor,
		concurrency: concurrency,
	}
}

// ProcessPaths audits every proposal file in paths. Results keep the input
// order.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string, refs []model.Reference) []*AuditResult {
	if len(paths) == 0 {
		return []*AuditResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		job := &AuditJob{
			Path:       path,
			References: refs,
			Auditor:    b.auditor,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	auditResults := make([]*AuditResult, len(paths))
	for i, path := range paths {
		if i < len(results) && results[i] != nil {
			auditResults[i] = results[i].(*AuditResult)
			continue
		}
		auditResults[i] = &AuditResult{Path: path, Error: ErrNotExecuted}
	}

	return auditResults
}

// ProcessManifest reads proposal paths from a manifest and audits them
func (b *BatchProcessor) ProcessManifest(ctx context.Context, manifestPath string, refs []model.Reference) ([]*AuditResult, error) {
	paths, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return b.ProcessPaths(ctx, paths, refs), nil
}

// ReadManifest reads proposal paths from a file (one per line). Blank lines
// and # comments are skipped, duplicates dropped, and relative paths are
// resolved against the manifest's directory.
func ReadManifest(manifestPath string) ([]string, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(manifestPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
