package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rustplugin-bot/internal/domain"
)

func TestClassifyCaption(t *testing.T) {
	cases := []struct {
		caption string
		want    domain.Intent
	}{
		{"", domain.IntentAnalyze},
		{"   ", domain.IntentAnalyze},
		{"измени команду /tp на /teleport", domain.IntentModify},
		{"Измените, пожалуйста, кулдаун", domain.IntentModify},
		{"исправь ошибку компиляции", domain.IntentModify},
		{"добавь права для админов", domain.IntentModify},
		{"Please FIX the null reference", domain.IntentModify},
		{"add a config option", domain.IntentModify},
		{"что делает этот плагин?", domain.IntentAnalyze},
		{"review the padding logic", domain.IntentAnalyze},
		{"проверь на ошибки", domain.IntentAnalyze},
		{"удали лишние логи", domain.IntentModify},
		{"нужно исправление кулдауна", domain.IntentModify},
		{"can you add a /home command?", domain.IntentModify},
		{"Looks fine. Then rewrite the config loader", domain.IntentModify},
		{"update", domain.IntentModify},
		{"what does this address?", domain.IntentAnalyze},
		{"объясни метод AddItem", domain.IntentAnalyze},
		{"additional notes", domain.IntentAnalyze},
		{"explain the Update hook", domain.IntentAnalyze},
		{"why does it fix the position twice?", domain.IntentAnalyze},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ClassifyCaption(tc.caption), "caption=%q", tc.caption)
	}
}
