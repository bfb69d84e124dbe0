// Package storage reads source documents and writes annotated output.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

type Storage struct{}

// SaveFile writes content to filePath, creating parent directories.
func (s *Storage) SaveFile(filePath string, content []byte) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", filePath, err)
	}
	return nil
}

// SaveAnnotated writes an annotated document. "-" writes to stdout.
func (s *Storage) SaveAnnotated(filePath, html string) error {
	if filePath == "-" {
		if _, err := os.Stdout.WriteString(html); err != nil {
			return fmt.Errorf("failed to write annotated document: %w", err)
		}
		return nil
	}
	return s.SaveFile(filePath, []byte(html))
}

func (s *Storage) ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return data, nil
}

func (s *Storage) HasFile(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
