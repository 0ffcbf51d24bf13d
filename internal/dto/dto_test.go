package dto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/models"
)

func TestNewPaginationMeta(t *testing.T) {
	require.Equal(t, PaginationMeta{Page: 1, PageSize: 10, TotalItems: 21, TotalPages: 3}, NewPaginationMeta(0, 10, 21))
	require.Equal(t, 1, NewPaginationMeta(1, 10, 0).TotalPages)
	require.Equal(t, 1, NewPaginationMeta(1, 0, 50).TotalPages)
}

func TestNewSubmissionResponseOmitsUnloadedRelations(t *testing.T) {
	response := NewSubmissionResponse(models.Submission{ID: 3, Status: models.SubmissionStatusPending}, nil)

	require.Nil(t, response.Assignment)
	require.Nil(t, response.Student)
	require.NotNil(t, response.History)
	require.Empty(t, response.History)
}

func TestNewAchievementResponseDefaultsCriteria(t *testing.T) {
	response := NewAchievementResponse(models.Achievement{ID: 1, Name: "First"})
	require.JSONEq(t, `{}`, string(response.Criteria))
}
