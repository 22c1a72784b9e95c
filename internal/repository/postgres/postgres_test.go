package postgres

import (
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery(t *testing.T) {
	query, args := buildListQuery(model.EventFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY date ASC")
	assert.Empty(t, args)

	query, args = buildListQuery(model.EventFilter{OrganizerID: "org", ParticipantID: "stu", Category: "Technical"})
	assert.Contains(t, query, "organizer_id = $1 AND $2 = ANY(participants) AND lower(category) = lower($3)")
	assert.Equal(t, []any{"org", "stu", "Technical"}, args)

	query, args = buildListQuery(model.EventFilter{ParticipantID: "stu"})
	assert.Contains(t, query, "WHERE $1 = ANY(participants)")
	assert.Equal(t, []any{"stu"}, args)
}

func TestBuildUpdateQuery(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	title := "Hackathon"

	query, args := buildUpdateQuery("ev1", model.EventPatch{Title: &title}, now)
	assert.Contains(t, query, "SET title = $2, updated_at = $3 WHERE id = $1 RETURNING")
	assert.NotContains(t, query, "cardinality")
	assert.Equal(t, []any{"ev1", "Hackathon", now}, args)

	capacity := 40
	query, args = buildUpdateQuery("ev1", model.EventPatch{SetCapacity: true, Capacity: &capacity}, now)
	assert.Contains(t, query, "SET capacity = $2, updated_at = $3 WHERE id = $1 AND ($2::int IS NULL OR cardinality(participants) <= $2::int)")
	assert.Equal(t, []any{"ev1", &capacity, now}, args)
}
