package generator

import (
	"context"
	"strings"
)

// MockLLM is a local placeholder that never calls an external model.
type MockLLM struct{}

func (m MockLLM) Generate(_ context.Context, model, systemPrompt, userPrompt string) (string, error) {
	var sb strings.Builder
	sb.WriteString("# 자동 생성 예시 글\n\n")
	sb.WriteString("모델 호출 없이 생성된 자리표시용 본문입니다.\n\n")
	sb.WriteString("## 요청 내용\n\n")
	sb.WriteString("```\n")
	sb.WriteString(userPrompt)
	sb.WriteString("\n```\n")
	_ = model
	_ = systemPrompt
	return sb.String(), nil
}
