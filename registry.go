package navigator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// WorkflowRegistry supplies validated workflow definitions by id.
type WorkflowRegistry interface {
	// Get retrieves a workflow by id. Unknown ids yield ErrWorkflowNotFound.
	Get(ctx context.Context, id string) (*Workflow, error)

	// List returns all registered workflows ordered by id.
	List(ctx context.Context) ([]*Workflow, error)
}

// MemoryWorkflowRegistry implements WorkflowRegistry using in-memory storage
type MemoryWorkflowRegistry struct {
	workflows map[string]*Workflow
	mutex     sync.RWMutex
}

// NewMemoryWorkflowRegistry creates a new in-memory workflow registry
func NewMemoryWorkflowRegistry() *MemoryWorkflowRegistry {
	return &MemoryWorkflowRegistry{
		workflows: make(map[string]*Workflow),
	}
}

// Register validates and adds a workflow, replacing any workflow with the
// same id.
func (r *MemoryWorkflowRegistry) Register(workflow *Workflow) error {
	if workflow == nil {
		return fmt.Errorf("workflow cannot be nil")
	}
	if err := workflow.Validate(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.workflows[workflow.ID] = workflow
	return nil
}

// Get retrieves a workflow by id
func (r *MemoryWorkflowRegistry) Get(ctx context.Context, id string) (*Workflow, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	workflow, exists := r.workflows[id]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, id)
	}
	return workflow, nil
}

// List returns all registered workflows ordered by id
func (r *MemoryWorkflowRegistry) List(ctx context.Context) ([]*Workflow, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	workflows := make([]*Workflow, 0, len(r.workflows))
	for _, wf := range r.workflows {
		workflows = append(workflows, wf)
	}
	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].ID < workflows[j].ID
	})
	return workflows, nil
}

// LoadDir loads every .yaml, .yml and .json file in dir into a new registry.
// Subdirectories are not searched.
func LoadDir(dir string) (*MemoryWorkflowRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflows directory: %w", err)
	}
	registry := NewMemoryWorkflowRegistry()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		wf, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := registry.Get(context.Background(), wf.ID); err == nil {
			return nil, fmt.Errorf("%s: duplicate workflow id %q", entry.Name(), wf.ID)
		}
		if err := registry.Register(wf); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
