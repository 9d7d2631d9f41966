// Package store enumerates and locates transcript files on disk.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"chatfmt/internal/model"
)

var errStop = errors.New("stop iteration")

// ListOptions controls how transcripts are enumerated.
type ListOptions struct {
	Root string
	// Customer keeps transcripts whose customer or application contains
	// this value, ignoring case.
	Customer   string
	After      *time.Time
	Before     *time.Time
	Limit      int
	MaxSummary int
}

// ListResult contains transcript summaries and non-fatal warnings.
type ListResult struct {
	Summaries []model.Summary
	Warnings  []error
}

// List enumerates transcripts under Root, newest first.
func List(parser model.Parser, opts ListOptions) (ListResult, error) {
	root := opts.Root
	if root == "" {
		return ListResult{}, errors.New("root directory is required")
	}

	var result ListResult
	customer := strings.ToLower(opts.Customer)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("walk %s: %w", path, walkErr))
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}

		meta, err := parser.ReadMeta(path)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("parse meta %s: %w", path, err))
			return nil
		}

		if customer != "" &&
			!strings.Contains(strings.ToLower(meta.Customer), customer) &&
			!strings.Contains(strings.ToLower(meta.Application), customer) {
			return nil
		}
		if opts.After != nil && meta.StartedAt.Before(*opts.After) {
			return nil
		}
		if opts.Before != nil && meta.StartedAt.After(*opts.Before) {
			return nil
		}

		summaryText, err := parser.FirstUserSummary(path)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("extract summary %s: %w", path, err))
			return nil
		}
		if opts.MaxSummary > 0 {
			summaryText = truncate(summaryText, opts.MaxSummary)
		}

		var count int
		var lastTimestamp time.Time
		err = parser.IterateMessages(path, func(msg model.Message) error {
			count++
			if msg.Timestamp.After(lastTimestamp) {
				lastTimestamp = msg.Timestamp
			}
			return nil
		})
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("count messages %s: %w", path, err))
			return nil
		}
		if lastTimestamp.IsZero() || lastTimestamp.Before(meta.StartedAt) {
			lastTimestamp = meta.StartedAt
		}

		result.Summaries = append(result.Summaries, model.Summary{
			ID:              meta.ID,
			Path:            path,
			Customer:        meta.Customer,
			Application:     meta.Application,
			Agent:           meta.Agent,
			StartedAt:       meta.StartedAt,
			Summary:         summaryText,
			MessageCount:    count,
			DurationSeconds: durationSeconds(meta.StartedAt, lastTimestamp),
		})
		return nil
	})
	if err != nil {
		return result, err
	}

	sort.SliceStable(result.Summaries, func(i, j int) bool {
		return result.Summaries[i].StartedAt.After(result.Summaries[j].StartedAt)
	})

	if opts.Limit > 0 && len(result.Summaries) > opts.Limit {
		result.Summaries = result.Summaries[:opts.Limit]
	}

	return result, nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

// FindPath searches root for a transcript whose id matches id.
func FindPath(parser model.Parser, root, id string) (string, error) {
	if root == "" {
		return "", errors.New("root directory is required")
	}
	if id == "" {
		return "", errors.New("transcript id is required")
	}

	var matched string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		meta, err := parser.ReadMeta(path)
		if err != nil {
			return nil
		}
		if meta.ID == id {
			matched = path
			return errStop
		}
		return nil
	})

	if matched != "" {
		return matched, nil
	}
	if err != nil && !errors.Is(err, errStop) {
		return "", err
	}
	return "", fmt.Errorf("transcript id %s not found under %s", id, root)
}

func durationSeconds(start, end time.Time) int {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Seconds())
}
