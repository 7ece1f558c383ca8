package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleSkillCommonAndCategory(t *testing.T) {
	skill := NewStyleSkill(&fakeStyleReader{styles: map[string]string{
		"common":  "짧은 문단을 유지합니다.",
		"수능 국어": "기출 예시를 인용합니다.",
	}})

	result, err := skill.Execute(context.Background(), &SkillContext{Category: "수능 국어"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Summary, "## 블로그 스타일 가이드\n"))
	assert.Contains(t, result.Summary, "### 공통 스타일\n짧은 문단을 유지합니다.")
	assert.Contains(t, result.Summary, "### 카테고리 스타일: 수능 국어\n기출 예시를 인용합니다.")
	assert.Equal(t, true, result.Data["has_common"])
	assert.Equal(t, true, result.Data["has_category"])
	wantChars := len([]rune("짧은 문단을 유지합니다.")) + len([]rune("기출 예시를 인용합니다."))
	assert.Equal(t, wantChars, result.Data["total_chars"])
}

func TestStyleSkillCommonOnly(t *testing.T) {
	skill := NewStyleSkill(&fakeStyleReader{styles: map[string]string{
		"common": "짧은 문단을 유지합니다.",
	}})

	result, err := skill.Execute(context.Background(), &SkillContext{Category: "수능 수학"})
	require.NoError(t, err)

	assert.Contains(t, result.Summary, "### 공통 스타일")
	assert.NotContains(t, result.Summary, "### 카테고리 스타일")
	assert.Equal(t, false, result.Data["has_category"])
}

func TestStyleSkillNoGuidesDegrades(t *testing.T) {
	skill := NewStyleSkill(&fakeStyleReader{styles: map[string]string{}})

	result, err := skill.Execute(context.Background(), &SkillContext{Category: "수능 국어"})
	require.NoError(t, err)
	assert.Equal(t, "(저장된 스타일 가이드가 없습니다)", result.Summary)
}

func TestStyleSkillNilStoreDegrades(t *testing.T) {
	skill := NewStyleSkill(nil)

	result, err := skill.Execute(context.Background(), &SkillContext{})
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "DB 연결 없음")
}
