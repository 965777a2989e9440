package navigator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const tokenFileExt = ".token"

// ErrSessionNotFound is returned when no token is stored under a name.
var ErrSessionNotFound = errors.New("session not found")

// FileSessionStore is a file-based SessionStore holding one token file per
// session name.
type FileSessionStore struct {
	dataDir string
}

// NewFileSessionStore creates a new file-based session store
func NewFileSessionStore(dataDir string) (*FileSessionStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".navigator", "sessions")
	}

	// Ensure the data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	return &FileSessionStore{dataDir: dataDir}, nil
}

func (s *FileSessionStore) tokenPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	return filepath.Join(s.dataDir, name+tokenFileExt), nil
}

// Save writes the token atomically so a crash never leaves a partial token.
func (s *FileSessionStore) Save(ctx context.Context, name, token string) error {
	path, err := s.tokenPath(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dataDir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save session file: %w", err)
	}
	return nil
}

// Load reads the token stored for a session
func (s *FileSessionStore) Load(ctx context.Context, name string) (string, error) {
	path, err := s.tokenPath(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrSessionNotFound, name)
		}
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Delete removes the token stored for a session
func (s *FileSessionStore) Delete(ctx context.Context, name string) error {
	path, err := s.tokenPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// ListSessions returns a summary of every stored session, most recently
// updated first. Tokens that no longer decode are skipped.
func (s *FileSessionStore) ListSessions(ctx context.Context) ([]*SessionSummary, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*SessionSummary{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	summaries := []*SessionSummary{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != tokenFileExt {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), tokenFileExt)
		token, err := s.Load(ctx, name)
		if err != nil {
			continue
		}
		state, err := DecodeState(token)
		if err != nil {
			continue
		}
		summaries = append(summaries, &SessionSummary{
			Name:            name,
			SessionID:       state.SessionID,
			WorkflowID:      state.WorkflowID,
			CurrentActivity: state.CurrentActivity,
			Status:          state.Status,
			StartedAt:       state.StartedAt,
			UpdatedAt:       state.UpdatedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}
