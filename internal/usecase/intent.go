package usecase

import (
	"strings"
	"unicode"

	"rustplugin-bot/internal/domain"
)

// russianModifyStems match any word they prefix, covering imperative,
// polite and noun forms ("исправь", "исправьте", "исправление").
var russianModifyStems = []string{
	"измени", "исправ", "добав", "передела", "замени", "убери", "удали", "доработ",
}

// englishModifyVerbs must be a whole word opening a clause, so nouns and
// mentions ("the Update hook", "address", "AddItem") do not count.
var englishModifyVerbs = map[string]bool{
	"modify": true, "change": true, "fix": true, "add": true,
	"remove": true, "replace": true, "rewrite": true, "update": true,
}

// clauseFillers may precede the verb of an English request.
var clauseFillers = map[string]bool{
	"please": true, "pls": true, "kindly": true, "can": true, "could": true,
	"would": true, "you": true, "also": true, "then": true, "and": true,
}

// ClassifyCaption derives the intent of an uploaded document from its caption.
// Captions without a modification keyword, including empty ones, are analyzed.
func ClassifyCaption(caption string) domain.Intent {
	lower := strings.ToLower(caption)
	for _, w := range words(lower) {
		for _, stem := range russianModifyStems {
			if strings.HasPrefix(w, stem) {
				return domain.IntentModify
			}
		}
	}
	for _, clause := range strings.FieldsFunc(lower, isClauseBreak) {
		for _, w := range words(clause) {
			if clauseFillers[w] {
				continue
			}
			if englishModifyVerbs[w] {
				return domain.IntentModify
			}
			break
		}
	}
	return domain.IntentAnalyze
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func isClauseBreak(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '\n':
		return true
	}
	return false
}
