package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists a LinearRegression as JSON at a fixed path.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// LoadOrInit reads the stored model. When no file exists yet a fresh,
// untrained model is written out and returned.
func (s *FileStore) LoadOrInit() (*LinearRegression, error) {
	model, err := s.Load()
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	model = NewLinearRegression()
	if err := s.Save(model); err != nil {
		return nil, err
	}
	return model, nil
}

func (s *FileStore) Load() (*LinearRegression, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	model := NewLinearRegression()
	if err := json.Unmarshal(payload, model); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", s.path, err)
	}
	return model, nil
}

// Save overwrites the model file. The write goes through a temp file in the
// same directory so readers never see a half-written model.
func (s *FileStore) Save(model *LinearRegression) error {
	if model == nil {
		return errors.New("model is nil")
	}
	payload, err := json.Marshal(model)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
