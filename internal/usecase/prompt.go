package usecase

import (
	"fmt"
	"strings"

	"rustplugin-bot/internal/domain"
)

const defaultTemperature = 0.7

// PromptOptions overrides the per-kind generation settings. A zero MaxTokens
// and a nil or negative Temperature keep the defaults; a Temperature of 0 is
// honored.
type PromptOptions struct {
	MaxTokens   int
	Temperature *float64
}

var defaultMaxTokens = map[domain.TaskKind]int{
	domain.TaskGenerateCode: 2000,
	domain.TaskExplain:      1500,
	domain.TaskModify:       2000,
	domain.TaskFreeform:     1500,
}

// BuildRequest assembles the request for kind with the matching system
// instructions. content is passed through untouched.
func BuildRequest(kind domain.TaskKind, content string, opts PromptOptions) domain.PromptRequest {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens[kind]
	}
	temperature := defaultTemperature
	if opts.Temperature != nil && *opts.Temperature >= 0 {
		temperature = *opts.Temperature
	}
	return domain.PromptRequest{
		Kind:               kind,
		SystemInstructions: systemInstructions(kind),
		UserContent:        content,
		MaxTokens:          maxTokens,
		Temperature:        temperature,
	}
}

func systemInstructions(kind domain.TaskKind) string {
	switch kind {
	case domain.TaskGenerateCode:
		return strings.Join([]string{
			"Ты квалифицированный разработчик плагинов для игры Rust (uMod/Oxide).",
			"Создай рабочий C# плагин с полной функциональностью по описанию пользователя.",
			"Верни только готовый к использованию код с комментариями внутри кода.",
			"Не добавляй пояснений, оговорок и текста вне кода.",
		}, "\n")
	case domain.TaskExplain:
		return strings.Join([]string{
			"Ты объясняешь C# код для плагинов Rust подробно и пошагово,",
			"для новичка и для опытного разработчика.",
			"Разбери назначение плагина, хуки, команды, конфигурацию и права доступа.",
		}, "\n")
	case domain.TaskModify:
		return strings.Join([]string{
			"Ты квалифицированный разработчик плагинов для игры Rust (uMod/Oxide).",
			"Внеси в присланный C# плагин запрошенные изменения.",
			"Верни только полный изменённый код плагина, без пояснений вне кода.",
		}, "\n")
	default:
		return strings.Join([]string{
			"Ты помощник по разработке плагинов для игры Rust на C# (uMod/Oxide).",
			"Отвечай точно и по делу. Если нужен код, приводи рабочий код.",
		}, "\n")
	}
}

// ExplainContent is the user message asking to explain code.
func ExplainContent(code string) string {
	return "Объясни этот код:\n" + code
}

// ModifyContent combines the original code with the requested change.
func ModifyContent(code, change string) string {
	return fmt.Sprintf("Запрошенные изменения:\n%s\n\nИсходный код:\n```csharp\n%s\n```", strings.TrimSpace(change), code)
}

// AnalyzeContent asks for a review of code; note is an optional user caption.
func AnalyzeContent(code, note string) string {
	var b strings.Builder
	b.WriteString("Проанализируй этот C# плагин для Rust: опиши, что он делает, найди ошибки и предложи улучшения.\n")
	if note = strings.TrimSpace(note); note != "" {
		b.WriteString("Комментарий пользователя: ")
		b.WriteString(note)
		b.WriteString("\n")
	}
	b.WriteString("\n```csharp\n")
	b.WriteString(code)
	b.WriteString("\n```")
	return b.String()
}
