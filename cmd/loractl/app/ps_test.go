package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/embedops/loractl/internal/runtime"
)

func TestSortJobsByCreation(t *testing.T) {
	base := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	jobs := []*runtime.Job{
		{ID: "train-c", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "train-a", CreatedAt: base},
		{ID: "train-b", CreatedAt: base.Add(time.Minute)},
	}

	sortJobs(jobs)

	assert.Equal(t, "train-a", jobs[0].ID)
	assert.Equal(t, "train-b", jobs[1].ID)
	assert.Equal(t, "train-c", jobs[2].ID)
}

func TestSortJobsTieBreaksOnName(t *testing.T) {
	base := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	jobs := []*runtime.Job{
		{ID: "train-b", CreatedAt: base},
		{ID: "train-a", CreatedAt: base},
	}

	sortJobs(jobs)

	assert.Equal(t, "train-a", jobs[0].ID)
	assert.Equal(t, "train-b", jobs[1].ID)
}
