package issue

import (
	"slices"
	"strings"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// TeamAll 不按团队筛选；空字符串表示仅个人课题
const TeamAll = "all"

// DateLayout 日期筛选参数格式
const DateLayout = "2006-01-02"

// SortKey 排序字段
type SortKey string

const (
	SortDefault  SortKey = "default"
	SortDueDate  SortKey = "dueDate"
	SortPriority SortKey = "priority"
	SortStatus   SortKey = "status"
	SortProgress SortKey = "progress"
	SortTitle    SortKey = "title"
	SortAssignee SortKey = "assignee"
)

// SortOrder 排序方向
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// priorityRank 高优先级排在前面
var priorityRank = map[model.IssuePriority]int{
	model.IssuePriorityHigh:   0,
	model.IssuePriorityMedium: 1,
	model.IssuePriorityLow:    2,
}

var statusRank = map[model.IssueStatus]int{
	model.IssueStatusNotStarted: 0,
	model.IssueStatusInProgress: 1,
	model.IssueStatusDone:       2,
}

// PriorityRank 未知优先级排在最后
func PriorityRank(p model.IssuePriority) int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// StatusRank 未知状态排在最后
func StatusRank(s model.IssueStatus) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}

// Filter 列表筛选条件，所有条件 AND 组合
type Filter struct {
	Keyword         string
	Team            string // "all" 不限，"" 仅个人，其他为团队 id
	Status          model.IssueStatus
	Priority        model.IssuePriority
	Assignee        string // 负责人显示名
	StartDate       *time.Time
	EndDate         *time.Time
	SortBy          SortKey
	SortOrder       SortOrder
	IncludeArchived bool
}

// Result 筛选排序后的三个视图
type Result struct {
	All        []model.IssueModel `json:"all"`
	Completed  []model.IssueModel `json:"completed"`
	Incomplete []model.IssueModel `json:"incomplete"`
}

// MergeScopes 合并个人课题与各团队课题，按 id 去重，重复时后出现的数据覆盖先出现的
func MergeScopes(lists ...[]model.IssueModel) []model.IssueModel {
	index := make(map[string]int)
	merged := make([]model.IssueModel, 0)
	for _, list := range lists {
		for _, item := range list {
			if pos, ok := index[item.Id]; ok {
				merged[pos] = item
				continue
			}
			index[item.Id] = len(merged)
			merged = append(merged, item)
		}
	}
	return merged
}

// ParseDateRange 解析 yyyy-mm-dd 格式的起止日期，结束日期延长到当天 23:59:59
func ParseDateRange(start, end string, loc *time.Location) (*time.Time, *time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	var startDate, endDate *time.Time
	if start != "" {
		t, err := time.ParseInLocation(DateLayout, start, loc)
		if err != nil {
			return nil, nil, apperr.Validation("无效的开始日期: %q", start)
		}
		startDate = &t
	}
	if end != "" {
		t, err := time.ParseInLocation(DateLayout, end, loc)
		if err != nil {
			return nil, nil, apperr.Validation("无效的结束日期: %q", end)
		}
		t = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		endDate = &t
	}
	return startDate, endDate, nil
}

// FilterAndSort 依次执行筛选、排序，再拆分为已完成与未完成两组。
// 未完成组始终使用默认规则排序，与用户选择的排序无关。
func FilterAndSort(issues []model.IssueModel, filter Filter) Result {
	result := Result{
		All:        []model.IssueModel{},
		Completed:  []model.IssueModel{},
		Incomplete: []model.IssueModel{},
	}
	if len(issues) == 0 {
		return result
	}

	filtered := make([]model.IssueModel, 0, len(issues))
	for i := range issues {
		if matchesFilter(&issues[i], &filter) {
			filtered = append(filtered, issues[i])
		}
	}

	result.All = SortIssues(filtered, filter.SortBy, filter.SortOrder)

	incomplete := make([]model.IssueModel, 0, len(result.All))
	for _, item := range result.All {
		if item.Status == model.IssueStatusDone {
			result.Completed = append(result.Completed, item)
		} else {
			incomplete = append(incomplete, item)
		}
	}
	result.Incomplete = SortByDefault(incomplete)

	return result
}

func matchesFilter(item *model.IssueModel, filter *Filter) bool {
	if item.IsArchived && !filter.IncludeArchived {
		return false
	}

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		keyword = strings.ToLower(keyword)
		if !strings.Contains(strings.ToLower(item.Title), keyword) &&
			!strings.Contains(strings.ToLower(item.Description), keyword) {
			return false
		}
	}

	switch filter.Team {
	case TeamAll:
	case "":
		if !item.IsPersonal() {
			return false
		}
	default:
		if item.IsPersonal() || *item.TeamId != filter.Team {
			return false
		}
	}

	if filter.Status != "" && item.Status != filter.Status {
		return false
	}
	if filter.Priority != "" && item.Priority != filter.Priority {
		return false
	}
	if filter.Assignee != "" && item.Assignee.DisplayName != filter.Assignee {
		return false
	}

	if filter.StartDate != nil || filter.EndDate != nil {
		if item.DueDate == nil {
			return false
		}
		if filter.StartDate != nil && item.DueDate.Before(*filter.StartDate) {
			return false
		}
		if filter.EndDate != nil && item.DueDate.After(*filter.EndDate) {
			return false
		}
	}

	return true
}

// SortIssues 按用户选择的字段排序，返回新切片。
// 未知字段保持原顺序；desc 时比较结果取反。
func SortIssues(issues []model.IssueModel, sortBy SortKey, order SortOrder) []model.IssueModel {
	sorted := slices.Clone(issues)
	if sorted == nil {
		return []model.IssueModel{}
	}

	cmp := comparator(sortBy)
	if cmp == nil {
		return sorted
	}

	sign := 1
	if order == SortDesc {
		sign = -1
	}
	slices.SortStableFunc(sorted, func(a, b model.IssueModel) int {
		return sign * cmp(&a, &b)
	})
	return sorted
}

// SortByDefault 默认排序：优先级（高在前）→ 截止日期升序（无截止日期排最后）→ 进度升序
func SortByDefault(issues []model.IssueModel) []model.IssueModel {
	sorted := slices.Clone(issues)
	if sorted == nil {
		return []model.IssueModel{}
	}
	slices.SortStableFunc(sorted, func(a, b model.IssueModel) int {
		return compareDefault(&a, &b)
	})
	return sorted
}

func comparator(sortBy SortKey) func(a, b *model.IssueModel) int {
	switch sortBy {
	case SortDefault:
		return compareDefault
	case SortPriority:
		return func(a, b *model.IssueModel) int {
			return PriorityRank(a.Priority) - PriorityRank(b.Priority)
		}
	case SortStatus:
		return func(a, b *model.IssueModel) int {
			return StatusRank(a.Status) - StatusRank(b.Status)
		}
	case SortDueDate:
		return func(a, b *model.IssueModel) int {
			return compareDueDate(a.DueDate, b.DueDate)
		}
	case SortProgress:
		return func(a, b *model.IssueModel) int {
			return a.Progress - b.Progress
		}
	case SortTitle:
		collator := collate.New(language.Japanese)
		return func(a, b *model.IssueModel) int {
			return collator.CompareString(a.Title, b.Title)
		}
	case SortAssignee:
		collator := collate.New(language.Japanese)
		return func(a, b *model.IssueModel) int {
			return collator.CompareString(a.Assignee.DisplayName, b.Assignee.DisplayName)
		}
	}
	return nil
}

func compareDefault(a, b *model.IssueModel) int {
	if d := PriorityRank(a.Priority) - PriorityRank(b.Priority); d != 0 {
		return d
	}
	if d := compareDueDate(a.DueDate, b.DueDate); d != 0 {
		return d
	}
	return a.Progress - b.Progress
}

// compareDueDate 没有截止日期视为无穷大
func compareDueDate(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}
