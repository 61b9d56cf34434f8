// Package seed 从 YAML 文件导入团队与课题，经过业务逻辑层写入，权限与状态推导照常生效
package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/issue"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/logic"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/store"
	"gopkg.in/yaml.v3"
)

// Fixtures 导入文件结构
type Fixtures struct {
	Teams  []TeamFixture  `yaml:"teams"`
	Issues []IssueFixture `yaml:"issues"`
}

type UserFixture struct {
	Uid         string `yaml:"uid"`
	DisplayName string `yaml:"displayName"`
	Email       string `yaml:"email"`
}

type MemberFixture struct {
	UserFixture `yaml:",inline"`
	Role        model.TeamRole `yaml:"role"`
}

type TeamFixture struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Admin       UserFixture     `yaml:"admin"`
	Members     []MemberFixture `yaml:"members"`
}

type IssueFixture struct {
	Title              string              `yaml:"title"`
	Description        string              `yaml:"description"`
	CompletionCriteria string              `yaml:"completionCriteria"`
	Priority           model.IssuePriority `yaml:"priority"`
	Progress           int                 `yaml:"progress"`
	DueDate            string              `yaml:"dueDate"` // 2006-01-02
	Team               string              `yaml:"team"`    // 团队名称，空表示个人课题
	Private            bool                `yaml:"private"`
	CreatedBy          UserFixture         `yaml:"createdBy"`
	Assignee           UserFixture         `yaml:"assignee"`
}

// Result 导入数量
type Result struct {
	Teams  int
	Issues int
}

// Parse 解析 YAML
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &f, nil
}

// LoadFile 读取并解析文件
func LoadFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(data)
}

// Seeder 以各条数据的创建者身份调用业务逻辑
type Seeder struct {
	provider *auth.StaticProvider
	issues   *logic.IssueLogic
	teams    *logic.TeamLogic
	location *time.Location
}

// NewSeeder 创建导入器
func NewSeeder(st store.Store) *Seeder {
	return &Seeder{
		provider: auth.NewStaticProvider(nil),
		issues:   logic.NewIssueLogic(st),
		teams:    logic.NewTeamLogic(st),
		location: time.Local,
	}
}

func (s *Seeder) as(ctx context.Context, u UserFixture) (*auth.Session, error) {
	s.provider.SetUser(&model.UserRef{Uid: u.Uid, DisplayName: u.DisplayName})
	return auth.SessionFrom(ctx, s.provider)
}

// Apply 先导入团队，再导入课题
func (s *Seeder) Apply(ctx context.Context, f *Fixtures) (*Result, error) {
	result := &Result{}
	teamIds := make(map[string]string, len(f.Teams))

	for _, tf := range f.Teams {
		admin, err := s.as(ctx, tf.Admin)
		if err != nil {
			return result, fmt.Errorf("team %q admin: %w", tf.Name, err)
		}
		team, err := s.teams.CreateTeam(ctx, admin, logic.TeamInput{
			Name:        tf.Name,
			Description: tf.Description,
			Email:       tf.Admin.Email,
		})
		if err != nil {
			return result, fmt.Errorf("create team %q: %w", tf.Name, err)
		}
		for _, m := range tf.Members {
			if m.Uid == tf.Admin.Uid {
				continue
			}
			if _, err := s.teams.AddMember(ctx, admin, team.Id, model.TeamMember{
				Uid:         m.Uid,
				DisplayName: m.DisplayName,
				Email:       m.Email,
				Role:        m.Role,
			}); err != nil {
				return result, fmt.Errorf("add member %s to %q: %w", m.Uid, tf.Name, err)
			}
		}
		teamIds[tf.Name] = team.Id
		result.Teams++
	}

	for _, fx := range f.Issues {
		creator, err := s.as(ctx, fx.CreatedBy)
		if err != nil {
			return result, fmt.Errorf("issue %q creator: %w", fx.Title, err)
		}

		input := logic.IssueInput{
			Title:              fx.Title,
			Description:        fx.Description,
			CompletionCriteria: fx.CompletionCriteria,
			Priority:           fx.Priority,
			Progress:           fx.Progress,
			IsPrivate:          fx.Private,
			Assignee:           model.UserRef{Uid: fx.Assignee.Uid, DisplayName: fx.Assignee.DisplayName},
		}
		if fx.Team != "" {
			id, ok := teamIds[fx.Team]
			if !ok {
				return result, fmt.Errorf("issue %q references unknown team %q", fx.Title, fx.Team)
			}
			input.TeamId = id
		}
		if fx.DueDate != "" {
			due, _, err := issue.ParseDateRange(fx.DueDate, "", s.location)
			if err != nil {
				return result, fmt.Errorf("issue %q: %w", fx.Title, err)
			}
			input.DueDate = due
		}

		if _, err := s.issues.CreateIssue(ctx, creator, input); err != nil {
			return result, fmt.Errorf("create issue %q: %w", fx.Title, err)
		}
		result.Issues++
	}

	s.provider.SetUser(nil)
	logger.Info("Seeded %d teams and %d issues", result.Teams, result.Issues)
	return result, nil
}
