package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intia/pkg/domain"
)

func TestNormalizeSnapshot(t *testing.T) {
	branchID := domain.NewBranchID()
	born, err := domain.ParseDate("1985-03-12")
	require.NoError(t, err)
	premium, err := domain.ParseMoney("450.50")
	require.NoError(t, err)
	created := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

	got := NormalizeSnapshot(map[string]any{
		"first_name":    "Amina",
		"date_of_birth": born,
		"premium":       premium,
		"created_at":    created,
		"branch_id":     branchID,
		"is_active":     true,
		"age":           39,
		"nothing":       nil,
	})

	assert.Equal(t, "Amina", got["first_name"])
	assert.Equal(t, "1985-03-12", got["date_of_birth"])
	assert.Equal(t, 450.50, got["premium"])
	assert.Equal(t, "2024-06-01T10:30:00Z", got["created_at"])
	assert.Equal(t, branchID.String(), got["branch_id"])
	assert.Equal(t, true, got["is_active"])
	assert.Equal(t, 39, got["age"])
	assert.Nil(t, got["nothing"])
}

func TestNormalizeSnapshotNested(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	got := NormalizeSnapshot(map[string]any{
		"history": []any{
			map[string]any{"at": when, "status": "pending"},
		},
		"tags": []string{"vip", "renewal"},
	})

	history, ok := got["history"].([]any)
	require.True(t, ok)
	first, ok := history[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2024-01-02T03:04:05Z", first["at"])
	assert.Equal(t, "pending", first["status"])

	tags, ok := got["tags"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"vip", "renewal"}, tags)
}

func TestNormalizeSnapshotNilPointers(t *testing.T) {
	var d *domain.Date
	var ts *time.Time

	got := NormalizeSnapshot(map[string]any{
		"date_of_birth": d,
		"updated_at":    ts,
	})

	assert.Nil(t, got["date_of_birth"])
	assert.Nil(t, got["updated_at"])
}

func TestNormalizeSnapshotNilMap(t *testing.T) {
	assert.Nil(t, NormalizeSnapshot(nil))
}

func TestParseAction(t *testing.T) {
	action, err := ParseAction("UPDATE")
	require.NoError(t, err)
	assert.Equal(t, ActionUpdate, action)

	_, err = ParseAction("TOUCH")
	assert.Error(t, err)
}

func TestParseResourceType(t *testing.T) {
	rt, err := ParseResourceType("policy")
	require.NoError(t, err)
	assert.Equal(t, ResourcePolicy, rt)

	_, err = ParseResourceType("invoice")
	assert.Error(t, err)
}
