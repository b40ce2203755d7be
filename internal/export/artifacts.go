package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"watercolumn/internal/blob"
	"watercolumn/internal/core"
	"watercolumn/pkg/domain"
)

// Artifact describes one stored export file.
type Artifact struct {
	Key         string `json:"key"`
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	Bytes       int64  `json:"size_bytes"`
	SHA256      string `json:"sha256"`
	RowCount    int    `json:"row_count"`
	URL         string `json:"url,omitempty"`
}

// Artifact name suffixes. The base name is the filter's Tag; the suffix names
// the frame, matching the file set downstream consumers ingest.
const (
	suffixResults    = "_Results.csv"
	suffixRawData    = "_RawData.csv"
	suffixDuplicates = "_DUPLICATES.csv"
	suffixSites      = "_Sites.csv"
)

type artifactPayload struct {
	artifact Artifact
	payload  []byte
}

// WriteBundle renders the run bundle's frames and stores them through the
// blob store under the request's deterministic keys, returning the stored
// artifact descriptions. This is the synchronous export path; the worker
// wraps the same storage step with job bookkeeping.
func WriteBundle(ctx context.Context, store blob.Store, req Request, bundle core.RunBundle) ([]Artifact, error) {
	return storeBundle(ctx, store, req, bundle, nil)
}

func storeBundle(ctx context.Context, store blob.Store, req Request, bundle core.RunBundle, extra map[string]string) ([]Artifact, error) {
	payloads, err := materializeBundle(req, bundle)
	if err != nil {
		return nil, err
	}
	artifacts := make([]Artifact, 0, len(payloads))
	for _, p := range payloads {
		stored := p.artifact
		if store != nil {
			metadata := map[string]string{
				"kind": string(req.Kind),
				"rows": strconv.Itoa(p.artifact.RowCount),
			}
			for k, v := range extra {
				metadata[k] = v
			}
			info, err := store.Put(ctx, p.artifact.Key, bytes.NewReader(p.payload), blob.PutOptions{
				ContentType: p.artifact.ContentType,
				Overwrite:   true,
				Metadata:    metadata,
			})
			if err != nil {
				return nil, fmt.Errorf("store artifact %s: %w", p.artifact.Key, err)
			}
			stored.URL = info.URL
		}
		artifacts = append(artifacts, stored)
	}
	return artifacts, nil
}

// materializeBundle renders the run bundle's frames to CSV payloads with
// deterministic keys. The duplicates frame is written always for trend runs
// (the correction workflow expects the file) and only when populated for
// general runs.
func materializeBundle(req Request, bundle core.RunBundle) ([]artifactPayload, error) {
	tag := req.Filter.Tag()
	out := make([]artifactPayload, 0, 4)

	frames := []struct {
		suffix string
		frame  core.Frame
		write  bool
	}{
		{suffixResults, bundle.Results, true},
		{suffixRawData, bundle.Stacked, true},
		{suffixDuplicates, bundle.Duplicates, req.Kind == core.PipelineTrend || bundle.HasDuplicates()},
		{suffixSites, bundle.Sites, true},
	}
	for _, f := range frames {
		if !f.write {
			continue
		}
		payload, err := RenderFrameCSV(f.frame)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", f.suffix, err)
		}
		sum := sha256.Sum256(payload)
		out = append(out, artifactPayload{
			artifact: Artifact{
				Key:         artifactKey(req, tag+f.suffix),
				Format:      "csv",
				ContentType: "text/csv",
				Bytes:       int64(len(payload)),
				SHA256:      hex.EncodeToString(sum[:]),
				RowCount:    len(f.frame.Rows),
			},
			payload: payload,
		})
	}
	return out, nil
}

// artifactKey scopes the artifact name under the optional caller prefix and
// the pipeline kind. Identical requests produce identical keys, so reruns
// replace their previous artifacts.
func artifactKey(req Request, name string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(req.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, string(req.Kind), name)
	return path.Join(parts...)
}

// RenderFrameCSV encodes a frame as CSV: one header line from the column
// schema, then one line per row. No row-index column is emitted.
func RenderFrameCSV(frame core.Frame) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	columns := frame.ColumnNames()
	if err := writer.Write(columns); err != nil {
		return nil, err
	}
	record := make([]string, len(columns))
	for _, row := range frame.Rows {
		for i, column := range columns {
			record[i] = formatCell(row[column])
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *float64:
		return domain.FormatValue(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
