package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtcstudio/taskboard/internal/domain"
)

func TestPriorityCasingSeam(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want domain.TaskPriority
	}{
		{"High", domain.TaskPriorityHigh},
		{"HIGH", domain.TaskPriorityHigh},
		{"medium", domain.TaskPriorityMedium},
		{" Low ", domain.TaskPriorityLow},
	} {
		got, ok := ParsePriority(tc.in)
		assert.True(t, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, ok := ParsePriority("Urgent")
	assert.False(t, ok)

	assert.Equal(t, "High", FormatPriority(domain.TaskPriorityHigh))
	assert.Equal(t, "Medium", FormatPriority(domain.TaskPriorityMedium))
	assert.Equal(t, "Low", FormatPriority(domain.TaskPriorityLow))
}

func TestRoleCasingSeam(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want domain.StaffRole
	}{
		{"Manager", domain.StaffRoleManager},
		{"designer", domain.StaffRoleDesigner},
		{"Customer Service", domain.StaffRoleCustomerService},
		{"CUSTOMER_SERVICE", domain.StaffRoleCustomerService},
	} {
		got, ok := ParseRole(tc.in)
		assert.True(t, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, ok := ParseRole("Intern")
	assert.False(t, ok)

	assert.Equal(t, "Customer Service", FormatRole(domain.StaffRoleCustomerService))
	assert.Equal(t, "Manager", FormatRole(domain.StaffRoleManager))
}

func TestTaskToResponseRendersDisplayForms(t *testing.T) {
	reason := "waiting on vendor"
	task := &domain.Task{
		ID:            "task-1",
		Title:         "Mockup",
		Role:          domain.StaffRoleDesigner,
		Status:        domain.TaskStatusBlocker,
		Priority:      domain.TaskPriorityHigh,
		Progress:      40,
		BlockerReason: &reason,
		Version:       3,
	}

	resp := TaskToResponse(task)
	assert.Equal(t, "Designer", resp.Role)
	assert.Equal(t, "High", resp.Priority)
	assert.Equal(t, "BLOCKER", resp.Status)
	assert.Equal(t, int64(3), resp.Version)
	assert.Equal(t, &reason, resp.BlockerReason)
}
