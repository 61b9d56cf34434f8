package memory

import (
	"slices"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
	"gorm.io/datatypes"
)

// applyIssueUpdates 按列名把部分更新写入课题，与 gorm 的 Updates(map) 语义一致
func applyIssueUpdates(issue *model.IssueModel, updates map[string]interface{}) error {
	for column, value := range updates {
		var ok bool
		switch column {
		case "title":
			issue.Title, ok = value.(string)
		case "description":
			issue.Description, ok = value.(string)
		case "completion_criteria":
			issue.CompletionCriteria, ok = value.(string)
		case "solution":
			issue.Solution, ok = value.(string)
		case "status":
			issue.Status, ok = value.(model.IssueStatus)
		case "priority":
			issue.Priority, ok = value.(model.IssuePriority)
		case "progress":
			issue.Progress, ok = value.(int)
		case "due_date":
			issue.DueDate, ok = timePtr(value)
		case "occurrence_date":
			issue.OccurrenceDate, ok = timePtr(value)
		case "archived_at":
			issue.ArchivedAt, ok = timePtr(value)
		case "assignee_uid":
			issue.Assignee.Uid, ok = value.(string)
		case "assignee_display_name":
			issue.Assignee.DisplayName, ok = value.(string)
		case "assignee_photo_url":
			issue.Assignee.PhotoURL, ok = value.(string)
		case "team_id":
			issue.TeamId, ok = stringPtr(value)
		case "is_private":
			issue.IsPrivate, ok = value.(bool)
		case "is_archived":
			issue.IsArchived, ok = value.(bool)
		case "watchers":
			var w datatypes.JSONSlice[string]
			w, ok = value.(datatypes.JSONSlice[string])
			issue.Watchers = slices.Clone(w)
		case "updated_at":
			issue.UpdatedAt, ok = value.(time.Time)
		default:
			return apperr.Validation("未知的课题字段: %s", column)
		}
		if !ok {
			return apperr.Validation("课题字段 %s 类型错误: %T", column, value)
		}
	}
	return nil
}

// applyTeamUpdates 按列名更新团队
func applyTeamUpdates(team *model.TeamModel, updates map[string]interface{}) error {
	for column, value := range updates {
		var ok bool
		switch column {
		case "name":
			team.Name, ok = value.(string)
		case "description":
			team.Description, ok = value.(string)
		case "members":
			var m datatypes.JSONSlice[model.TeamMember]
			m, ok = value.(datatypes.JSONSlice[model.TeamMember])
			team.Members = slices.Clone(m)
		case "updated_at":
			team.UpdatedAt, ok = value.(time.Time)
		default:
			return apperr.Validation("未知的团队字段: %s", column)
		}
		if !ok {
			return apperr.Validation("团队字段 %s 类型错误: %T", column, value)
		}
	}
	return nil
}

func timePtr(value interface{}) (*time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case *time.Time:
		if v == nil {
			return nil, true
		}
		t := *v
		return &t, true
	case time.Time:
		return &v, true
	}
	return nil, false
}

func stringPtr(value interface{}) (*string, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case *string:
		if v == nil || *v == "" {
			return nil, true
		}
		s := *v
		return &s, true
	case string:
		if v == "" {
			return nil, true
		}
		return &v, true
	}
	return nil, false
}

// cloneIssue 深拷贝，调用方拿到的快照不会被后续写入修改
func cloneIssue(issue model.IssueModel) model.IssueModel {
	out := issue
	out.Watchers = slices.Clone(issue.Watchers)
	out.Comments = nil
	if issue.DueDate != nil {
		t := *issue.DueDate
		out.DueDate = &t
	}
	if issue.OccurrenceDate != nil {
		t := *issue.OccurrenceDate
		out.OccurrenceDate = &t
	}
	if issue.ArchivedAt != nil {
		t := *issue.ArchivedAt
		out.ArchivedAt = &t
	}
	if issue.TeamId != nil {
		s := *issue.TeamId
		out.TeamId = &s
	}
	return out
}

func cloneTeam(team model.TeamModel) model.TeamModel {
	out := team
	out.Members = slices.Clone(team.Members)
	return out
}
