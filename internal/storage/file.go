package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/TrendGoat/internal/types"
)

// csvColumns is the fixed column order of CSV exports.
var csvColumns = []string{"source_id", "title", "url", "metric", "category", "description"}

func createFile(outputPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

// --- JSON Storage ---

// JSONStorage buffers items and writes them as one JSON array on Close.
type JSONStorage struct {
	path   string
	items  []types.TrendItem
	mu     sync.Mutex
	logger *slog.Logger
}

// NewJSONStorage creates a new JSON file storage.
func NewJSONStorage(outputPath string, logger *slog.Logger) (*JSONStorage, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &JSONStorage{
		path:   outputPath,
		items:  make([]types.TrendItem, 0),
		logger: logger.With("component", "json_storage"),
	}, nil
}

func (s *JSONStorage) Name() string { return "json" }
func (s *JSONStorage) Path() string { return s.path }

func (s *JSONStorage) Store(items []types.TrendItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	s.logger.Debug("items buffered", "count", len(items), "total", len(s.items))
	return nil
}

func (s *JSONStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.items); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	s.logger.Info("JSON written", "path", s.path, "items", len(s.items))
	return nil
}

// --- JSONL Storage ---

// JSONLStorage streams items as newline-delimited JSON.
type JSONLStorage struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage creates a new JSONL file storage.
func NewJSONLStorage(outputPath string, logger *slog.Logger) (*JSONLStorage, error) {
	f, err := createFile(outputPath)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)

	return &JSONLStorage{
		path:   outputPath,
		file:   f,
		enc:    enc,
		logger: logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }
func (s *JSONLStorage) Path() string { return s.path }

func (s *JSONLStorage) Store(items []types.TrendItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range items {
		if err := s.enc.Encode(&items[i]); err != nil {
			return fmt.Errorf("encode JSONL: %w", err)
		}
		s.count++
	}
	return nil
}

func (s *JSONLStorage) Close() error {
	s.logger.Info("JSONL written", "path", s.path, "items", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// --- CSV Storage ---

// CSVStorage writes items as CSV rows under a fixed header.
type CSVStorage struct {
	path          string
	file          *os.File
	writer        *csv.Writer
	headerWritten bool
	mu            sync.Mutex
	count         int
	logger        *slog.Logger
}

// NewCSVStorage creates a new CSV file storage.
func NewCSVStorage(outputPath string, logger *slog.Logger) (*CSVStorage, error) {
	f, err := createFile(outputPath)
	if err != nil {
		return nil, err
	}
	return &CSVStorage{
		path:   outputPath,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }
func (s *CSVStorage) Path() string { return s.path }

func (s *CSVStorage) Store(items []types.TrendItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.headerWritten {
		if err := s.writer.Write(csvColumns); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
		s.headerWritten = true
	}

	for i := range items {
		flat := items[i].ToFlatMap()
		row := make([]string, len(csvColumns))
		for j, col := range csvColumns {
			row[j] = flat[col]
		}
		if err := s.writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
		s.count++
	}

	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.headerWritten {
		_ = s.writer.Write(csvColumns)
		s.headerWritten = true
	}
	s.writer.Flush()
	s.logger.Info("CSV written", "path", s.path, "items", s.count)
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// NewFileStorage creates the file storage for storageType. name is the
// file stem inside outputDir; an empty name selects "trending".
func NewFileStorage(storageType, outputDir, name string, logger *slog.Logger) (Storage, error) {
	if name == "" {
		name = "trending"
	}
	switch storageType {
	case "json":
		return NewJSONStorage(filepath.Join(outputDir, name+".json"), logger)
	case "jsonl":
		return NewJSONLStorage(filepath.Join(outputDir, name+".jsonl"), logger)
	case "csv":
		return NewCSVStorage(filepath.Join(outputDir, name+".csv"), logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
