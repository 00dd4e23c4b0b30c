package store

import (
	"fmt"

	"planner/internal/model"
)

// LoadTasks reads the task store's JSON array. The planner never writes it.
func LoadTasks(path string) ([]model.Task, error) {
	var tasks []model.Task
	if _, err := readDocument(path, &tasks); err != nil {
		return nil, fmt.Errorf("load tasks %s: %w", path, err)
	}
	return tasks, nil
}
