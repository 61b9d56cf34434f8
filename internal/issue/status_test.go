package issue

import (
	"testing"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, model.IssueStatusNotStarted, DeriveStatus(0))
	assert.Equal(t, model.IssueStatusDone, DeriveStatus(100))
	for p := 1; p < 100; p++ {
		assert.Equal(t, model.IssueStatusInProgress, DeriveStatus(p), "progress %d", p)
	}
}

func TestValidateProgress(t *testing.T) {
	assert.NoError(t, ValidateProgress(0))
	assert.NoError(t, ValidateProgress(55))
	assert.NoError(t, ValidateProgress(100))

	for _, p := range []int{-1, 101, 1000} {
		assert.ErrorIs(t, ValidateProgress(p), apperr.ErrValidation)
	}
}

func TestIsStale(t *testing.T) {
	assert.True(t, IsStale(&model.IssueModel{Progress: 40, Status: model.IssueStatusNotStarted}))
	assert.False(t, IsStale(&model.IssueModel{Progress: 40, Status: model.IssueStatusInProgress}))
	assert.False(t, IsStale(&model.IssueModel{Progress: 100, Status: model.IssueStatusDone}))
}
