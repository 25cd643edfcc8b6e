package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/towerops/fieldtrack/internal/models"
)

func TestKindOf(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		assert.Equal(t, KindNetwork, KindOf(NewError(KindNetwork, "offline")))
	})

	t.Run("wrapped error", func(t *testing.T) {
		err := fmt.Errorf("fetching sites: %w", NewError(KindTimeout, "deadline"))
		assert.Equal(t, KindTimeout, KindOf(err))
	})

	t.Run("plain error has no kind", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
		assert.Equal(t, Kind(""), KindOf(nil))
	})
}

func TestIsRetryable(t *testing.T) {
	retryable := []Kind{KindNetwork, KindTimeout, KindServer}
	for _, k := range retryable {
		assert.True(t, IsRetryable(NewError(k, "x")), string(k))
	}

	terminal := []Kind{KindValidation, KindNotAuthenticated, KindSessionExpired, KindRateLimited, KindNotFound}
	for _, k := range terminal {
		assert.False(t, IsRetryable(NewError(k, "x")), string(k))
	}

	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestValidationError(t *testing.T) {
	fields := []models.FieldError{
		{Field: "name", Message: "name is required"},
		{Field: "liters", Message: "liters must be greater than zero"},
	}

	err := ValidationError(fields)
	assert.Equal(t, KindValidation, err.Kind)
	assert.Len(t, err.Fields, 2)
	assert.Contains(t, err.Message, "name is required")
}

func TestUserMessage(t *testing.T) {
	t.Run("every kind has display text", func(t *testing.T) {
		kinds := []Kind{
			KindValidation, KindNotAuthenticated, KindSessionExpired,
			KindRateLimited, KindNotFound, KindServer, KindNetwork, KindTimeout,
		}
		for _, k := range kinds {
			assert.NotEmpty(t, UserMessage(NewError(k, "x")), string(k))
		}
	})

	t.Run("unknown errors get a generic message", func(t *testing.T) {
		assert.Equal(t, "Something went wrong. Please try again.", UserMessage(errors.New("boom")))
	})
}
