// Package tasks adapts the external to-do store to the read-only
// date -> tasks view the planner needs.
package tasks

import (
	"sync"

	appLog "planner/internal/log"
	"planner/internal/model"
	"planner/internal/store"
)

// FileSource serves tasks from the task store's JSON document. The document
// is read on Open and on Reload; it is never written.
type FileSource struct {
	path string

	mu     sync.RWMutex
	byDate map[string][]model.Task
}

// Open loads path. A missing file is an empty task list.
func Open(path string) (*FileSource, error) {
	s := &FileSource{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the document, picking up edits made by the task store.
func (s *FileSource) Reload() error {
	all, err := store.LoadTasks(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.byDate = index(all)
	s.mu.Unlock()
	appLog.Debug("tasks loaded", "path", s.path, "count", len(all))
	return nil
}

// TasksForDate returns the tasks whose deadline is exactly date, in
// document order.
func (s *FileSource) TasksForDate(date string) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task(nil), s.byDate[date]...), nil
}

// Static is an in-memory task source.
type Static struct {
	byDate map[string][]model.Task
}

func NewStatic(all []model.Task) *Static {
	return &Static{byDate: index(all)}
}

func (s *Static) TasksForDate(date string) ([]model.Task, error) {
	return append([]model.Task(nil), s.byDate[date]...), nil
}

func index(all []model.Task) map[string][]model.Task {
	byDate := make(map[string][]model.Task)
	for _, t := range all {
		if t.Deadline == "" {
			continue
		}
		byDate[t.Deadline] = append(byDate[t.Deadline], t)
	}
	return byDate
}
