// Package mention 解析评论中的 @[uid:displayName] 提及并分发通知
package mention

import (
	"regexp"

	"github.com/blues/tracker/internal/model"
)

// tokenPattern 匹配 @[uid:displayName]，uid 不含冒号与空白，显示名不含右方括号
var tokenPattern = regexp.MustCompile(`@\[([^:\]\s]+):([^\]]+)\]`)

// Token 评论中出现的原始提及
type Token struct {
	Uid         string
	DisplayName string
}

// Tokens 按出现顺序返回所有格式正确的提及，不做去重和成员校验
func Tokens(text string) []Token {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, Token{Uid: m[1], DisplayName: m[2]})
	}
	return tokens
}

// ExtractMentions 将提及解析为成员列表中的用户。
// 不在成员列表中的 uid 直接忽略；同一用户多次提及只保留第一次。
func ExtractMentions(text string, members []model.TeamMember) []model.UserRef {
	users := make([]model.UserRef, 0)
	if text == "" || len(members) == 0 {
		return users
	}

	byUid := make(map[string]model.TeamMember, len(members))
	for _, m := range members {
		byUid[m.Uid] = m
	}

	seen := make(map[string]struct{})
	for _, token := range Tokens(text) {
		member, ok := byUid[token.Uid]
		if !ok {
			continue
		}
		if _, dup := seen[token.Uid]; dup {
			continue
		}
		seen[token.Uid] = struct{}{}
		users = append(users, model.UserRef{
			Uid:         member.Uid,
			DisplayName: member.DisplayName,
			PhotoURL:    member.PhotoURL,
		})
	}
	return users
}

// Uids 提取 uid 列表，用于评论的 mentions 快照
func Uids(users []model.UserRef) []string {
	uids := make([]string, 0, len(users))
	for _, u := range users {
		uids = append(uids, u.Uid)
	}
	return uids
}
