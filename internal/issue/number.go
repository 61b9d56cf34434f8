package issue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blues/tracker/internal/apperr"
)

// IssueNumberPrefix 课题编号前缀
const IssueNumberPrefix = "ISSUE-"

// FormatIssueNumber 生成 ISSUE-00001 形式的编号，序号补零到 5 位
func FormatIssueNumber(seq int64) string {
	return fmt.Sprintf("%s%05d", IssueNumberPrefix, seq)
}

// ParseIssueNumber 解析编号中的序号
func ParseIssueNumber(number string) (int64, error) {
	if !strings.HasPrefix(number, IssueNumberPrefix) {
		return 0, apperr.Validation("无效的课题编号: %q", number)
	}
	digits := strings.TrimPrefix(number, IssueNumberPrefix)
	if len(digits) < 5 {
		return 0, apperr.Validation("无效的课题编号: %q", number)
	}
	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || seq <= 0 {
		return 0, apperr.Validation("无效的课题编号: %q", number)
	}
	return seq, nil
}
