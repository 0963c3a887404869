package planner

import (
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/loom/pkg/models"
)

// Plan builds the ordered task list for one requirement. The base chain is
// Analysis -> Implementation -> Validation -> Integration, each depending on
// its immediate predecessor. When the requirement matches a complexity
// keyword, a Reasoning task is inserted after Analysis (feeding
// Implementation) and a second Reasoning task after Validation (feeding
// Integration).
//
// The plan is always a linear chain: no two tasks for one requirement target
// the same capability concurrently, and calling Plan twice with the same
// text yields structurally identical lists (IDs aside).
func Plan(requirement string, groupID string) []*models.Task {
	now := time.Now()
	cls := Classify(requirement)

	newTask := func(cap models.Capability, priority int, deps ...string) *models.Task {
		return &models.Task{
			ID:          uuid.NewString(),
			GroupID:     groupID,
			Description: requirement,
			Capability:  cap,
			Status:      models.TaskStatusPending,
			Priority:    priority,
			DependsOn:   deps,
			CreatedAt:   now,
		}
	}

	var tasks []*models.Task
	last := func() *models.Task { return tasks[len(tasks)-1] }

	tasks = append(tasks, newTask(models.CapabilityAnalyst, 10))

	if cls.NeedsDeepReasoning {
		tasks = append(tasks, newTask(models.CapabilityReasoner, 9, last().ID))
	}

	tasks = append(tasks, newTask(models.CapabilityImplementer, 7, last().ID))
	tasks = append(tasks, newTask(models.CapabilityValidator, 6, last().ID))

	if cls.NeedsDeepReasoning {
		// Post-validation optimization pass.
		tasks = append(tasks, newTask(models.CapabilityReasoner, 5, last().ID))
	}

	tasks = append(tasks, newTask(models.CapabilityIntegrator, 4, last().ID))

	return tasks
}
