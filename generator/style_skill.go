package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const SkillNameBlogStyle = "blog_style"

// blogStyleHeading is sliced out of prompt_used by the history view; keep
// the literal string stable.
const blogStyleHeading = "## 블로그 스타일 가이드"

// styleCommonKey is the always-applied guide; category keys layer on top.
const styleCommonKey = "common"

// StyleSkill injects stored writing-style guides: the common guide plus the
// guide registered for the requested category, when present.
type StyleSkill struct {
	styles StyleReader
}

func NewStyleSkill(styles StyleReader) *StyleSkill {
	return &StyleSkill{styles: styles}
}

func (s *StyleSkill) Name() string { return SkillNameBlogStyle }

func (s *StyleSkill) Description() string {
	return "보보쌤 블로그 스타일 가이드 적용 (공통 + 카테고리별)"
}

func (s *StyleSkill) Execute(ctx context.Context, sc *SkillContext) (SkillResult, error) {
	if s.styles == nil {
		return SkillResult{
			SkillName: s.Name(),
			Data:      map[string]any{},
			Summary:   "(DB 연결 없음 - 스타일 가이드 스킵)",
		}, nil
	}

	common, err := s.styles.GetBlogStyle(styleCommonKey)
	if err != nil {
		return SkillResult{}, errors.Wrap(err, "reading common style")
	}

	var categoryStyle string
	if sc.Category != "" {
		categoryStyle, err = s.styles.GetBlogStyle(sc.Category)
		if err != nil {
			return SkillResult{}, errors.Wrapf(err, "reading style for category %s", sc.Category)
		}
	}

	if common == "" && categoryStyle == "" {
		return SkillResult{
			SkillName: s.Name(),
			Data:      map[string]any{},
			Summary:   "(저장된 스타일 가이드가 없습니다)",
		}, nil
	}

	var sb strings.Builder
	sb.WriteString(blogStyleHeading + "\n")
	sb.WriteString("아래 스타일 가이드를 반드시 따라 작성하세요.\n")
	if common != "" {
		sb.WriteString("\n### 공통 스타일\n")
		sb.WriteString(common)
		sb.WriteString("\n")
	}
	if categoryStyle != "" {
		sb.WriteString(fmt.Sprintf("\n### 카테고리 스타일: %s\n", sc.Category))
		sb.WriteString(categoryStyle)
		sb.WriteString("\n")
	}

	return SkillResult{
		SkillName: s.Name(),
		Data: map[string]any{
			"has_common":   common != "",
			"has_category": categoryStyle != "",
			"category":     sc.Category,
			"total_chars":  len([]rune(common)) + len([]rune(categoryStyle)),
		},
		Summary: sb.String(),
	}, nil
}
