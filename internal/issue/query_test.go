package issue

import (
	"testing"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func day(d int) *time.Time {
	t := time.Date(2026, 4, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func createTestIssues() []model.IssueModel {
	return []model.IssueModel{
		{
			Id: "i1", Title: "Fix login bug", Description: "OAuth redirect loops",
			Priority: model.IssuePriorityLow, Status: model.IssueStatusInProgress, Progress: 30,
			DueDate: day(10), Assignee: model.UserRef{Uid: "u1", DisplayName: "佐藤"},
		},
		{
			Id: "i2", Title: "Write docs", Description: "API reference for FOO endpoints",
			Priority: model.IssuePriorityHigh, Status: model.IssueStatusNotStarted, Progress: 0,
			DueDate: day(5), TeamId: ptr("team_a"), Assignee: model.UserRef{Uid: "u2", DisplayName: "鈴木"},
		},
		{
			Id: "i3", Title: "Release v2", Description: "",
			Priority: model.IssuePriorityHigh, Status: model.IssueStatusDone, Progress: 100,
			DueDate: day(1), TeamId: ptr("team_b"), Assignee: model.UserRef{Uid: "u1", DisplayName: "佐藤"},
		},
		{
			Id: "i4", Title: "foo cleanup", Description: "remove dead code",
			Priority: model.IssuePriorityMedium, Status: model.IssueStatusInProgress, Progress: 80,
			TeamId: ptr("team_a"), Assignee: model.UserRef{Uid: "u3", DisplayName: "高橋"},
		},
		{
			Id: "i5", Title: "Old task", Description: "archived",
			Priority: model.IssuePriorityHigh, Status: model.IssueStatusInProgress, Progress: 10,
			DueDate: day(2), IsArchived: true,
		},
	}
}

func ids(issues []model.IssueModel) []string {
	out := make([]string, 0, len(issues))
	for _, item := range issues {
		out = append(out, item.Id)
	}
	return out
}

func TestFilterAndSort_Keyword(t *testing.T) {
	result := FilterAndSort(createTestIssues(), Filter{Team: TeamAll, Keyword: "Foo"})
	assert.ElementsMatch(t, []string{"i2", "i4"}, ids(result.All))
}

func TestFilterAndSort_Team(t *testing.T) {
	issues := createTestIssues()

	personal := FilterAndSort(issues, Filter{Team: ""})
	assert.Equal(t, []string{"i1"}, ids(personal.All))

	teamA := FilterAndSort(issues, Filter{Team: "team_a"})
	assert.ElementsMatch(t, []string{"i2", "i4"}, ids(teamA.All))

	all := FilterAndSort(issues, Filter{Team: TeamAll})
	assert.Len(t, all.All, 4)
}

func TestFilterAndSort_ArchivedHiddenByDefault(t *testing.T) {
	issues := createTestIssues()

	assert.NotContains(t, ids(FilterAndSort(issues, Filter{Team: TeamAll}).All), "i5")
	assert.Contains(t, ids(FilterAndSort(issues, Filter{Team: TeamAll, IncludeArchived: true}).All), "i5")
}

func TestFilterAndSort_StatusPriorityAssignee(t *testing.T) {
	issues := createTestIssues()

	byStatus := FilterAndSort(issues, Filter{Team: TeamAll, Status: model.IssueStatusInProgress})
	assert.ElementsMatch(t, []string{"i1", "i4"}, ids(byStatus.All))

	byPriority := FilterAndSort(issues, Filter{Team: TeamAll, Priority: model.IssuePriorityHigh})
	assert.ElementsMatch(t, []string{"i2", "i3"}, ids(byPriority.All))

	byAssignee := FilterAndSort(issues, Filter{Team: TeamAll, Assignee: "佐藤"})
	assert.ElementsMatch(t, []string{"i1", "i3"}, ids(byAssignee.All))

	combined := FilterAndSort(issues, Filter{Team: TeamAll, Assignee: "佐藤", Status: model.IssueStatusDone})
	assert.Equal(t, []string{"i3"}, ids(combined.All))
}

func TestFilterAndSort_DateRange(t *testing.T) {
	start, end, err := ParseDateRange("2026-04-02", "2026-04-10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Second())

	result := FilterAndSort(createTestIssues(), Filter{Team: TeamAll, StartDate: start, EndDate: end})
	// i4 has no due date, i3 is before the range
	assert.ElementsMatch(t, []string{"i1", "i2"}, ids(result.All))
}

func TestParseDateRange_Invalid(t *testing.T) {
	_, _, err := ParseDateRange("2026/04/01", "", time.UTC)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, _, err = ParseDateRange("", "tomorrow", time.UTC)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	start, end, err := ParseDateRange("", "", nil)
	require.NoError(t, err)
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestFilterAndSort_DueDateAsc(t *testing.T) {
	result := FilterAndSort(createTestIssues(), Filter{Team: TeamAll, SortBy: SortDueDate, SortOrder: SortAsc})
	assert.Equal(t, []string{"i3", "i2", "i1", "i4"}, ids(result.All))

	for i := 1; i < len(result.All)-1; i++ {
		assert.True(t, result.All[i-1].DueDate.Before(*result.All[i].DueDate))
	}
}

func TestFilterAndSort_DueDateDesc(t *testing.T) {
	result := FilterAndSort(createTestIssues(), Filter{Team: TeamAll, SortBy: SortDueDate, SortOrder: SortDesc})
	assert.Equal(t, []string{"i4", "i1", "i2", "i3"}, ids(result.All))
}

func TestFilterAndSort_SplitsCompletion(t *testing.T) {
	result := FilterAndSort(createTestIssues(), Filter{Team: TeamAll, SortBy: SortProgress, SortOrder: SortDesc})

	assert.Equal(t, []string{"i4", "i1", "i2"}, ids(result.All)[1:])
	assert.Equal(t, []string{"i3"}, ids(result.Completed))
	// incomplete ignores the user sort: high first, then earliest due date
	assert.Equal(t, []string{"i2", "i4", "i1"}, ids(result.Incomplete))
}

func TestSortByDefault(t *testing.T) {
	issues := createTestIssues()
	before := ids(issues)

	// 优先级高在前，同优先级按截止日期，无截止日期排最后
	assert.Equal(t, []string{"i3", "i5", "i2", "i4", "i1"}, ids(SortByDefault(issues)))
	assert.Equal(t, before, ids(issues))
	assert.NotNil(t, SortByDefault(nil))
}

func TestFilterAndSort_Idempotent(t *testing.T) {
	issues := createTestIssues()
	filter := Filter{Team: TeamAll, Keyword: "o", SortBy: SortTitle, SortOrder: SortAsc}

	first := FilterAndSort(issues, filter)
	second := FilterAndSort(issues, filter)
	assert.Equal(t, first, second)
}

func TestFilterAndSort_DoesNotMutateInput(t *testing.T) {
	issues := createTestIssues()
	before := ids(issues)

	FilterAndSort(issues, Filter{Team: TeamAll, SortBy: SortPriority, SortOrder: SortAsc})
	assert.Equal(t, before, ids(issues))
}

func TestFilterAndSort_NilInput(t *testing.T) {
	result := FilterAndSort(nil, Filter{Team: TeamAll})
	assert.NotNil(t, result.All)
	assert.Empty(t, result.All)
	assert.Empty(t, result.Completed)
	assert.Empty(t, result.Incomplete)
}

func TestSortIssues(t *testing.T) {
	issues := createTestIssues()[:4]

	tests := []struct {
		name   string
		sortBy SortKey
		order  SortOrder
		want   []string
	}{
		{"priority asc", SortPriority, SortAsc, []string{"i2", "i3", "i4", "i1"}},
		{"priority desc", SortPriority, SortDesc, []string{"i1", "i4", "i2", "i3"}},
		{"status asc", SortStatus, SortAsc, []string{"i2", "i1", "i4", "i3"}},
		{"progress asc", SortProgress, SortAsc, []string{"i2", "i1", "i4", "i3"}},
		{"title asc", SortTitle, SortAsc, []string{"i1", "i4", "i3", "i2"}},
		{"default", SortDefault, SortAsc, []string{"i3", "i2", "i4", "i1"}},
		{"unknown key keeps order", SortKey("createdAt"), SortDesc, []string{"i1", "i2", "i3", "i4"}},
		{"empty key keeps order", SortKey(""), SortAsc, []string{"i1", "i2", "i3", "i4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(SortIssues(issues, tt.sortBy, tt.order)))
		})
	}
}

func TestSortIssues_AssigneeLocaleAware(t *testing.T) {
	issues := []model.IssueModel{
		{Id: "a", Assignee: model.UserRef{DisplayName: "bob"}},
		{Id: "b", Assignee: model.UserRef{DisplayName: "Alice"}},
		{Id: "c", Assignee: model.UserRef{DisplayName: "carol"}},
	}

	sorted := SortIssues(issues, SortAssignee, SortAsc)
	assert.Equal(t, []string{"b", "a", "c"}, ids(sorted))
}

func TestMergeScopes_LastSeenWins(t *testing.T) {
	personal := []model.IssueModel{{Id: "x", Title: "old"}, {Id: "y"}}
	team := []model.IssueModel{{Id: "x", Title: "new"}, {Id: "z"}}

	merged := MergeScopes(personal, team)
	assert.Equal(t, []string{"x", "y", "z"}, ids(merged))
	assert.Equal(t, "new", merged[0].Title)
	assert.Empty(t, MergeScopes())
}
