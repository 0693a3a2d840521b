// Package intent classifies free-form input into the routing signals used to
// pick a model and tool set.
//
// Classification is keyword based: two fixed vocabularies are matched on word
// boundaries, case-insensitively. The two signals are independent, so a prompt
// may be both search-worthy and reasoning-worthy; callers decide precedence.
package intent

import (
	"regexp"
	"strings"
)

// Signals is the classifier output for one piece of text.
type Signals struct {
	SearchLikely    bool
	ReasoningLikely bool
}

// Search-indicative terms. Each entry is a regexp fragment anchored at a word start.
var searchTerms = []string{
	`search(es|ing)?`,
	`look(ing)? up`,
	`latest`,
	`news`,
	`price[sd]?`,
	`pricing`,
	`weather`,
	`stocks?`,
	`today'?s?`,
	`current(ly)?`,
	`recent(ly)?`,
	`scores?`,
	`forecasts?`,
}

// Reasoning-indicative terms.
var reasoningTerms = []string{
	`think(ing)?`,
	`plan(s|ning|ned)?`,
	`solv(e|es|ing)`,
	`optimi[sz](e|es|ing|ation)`,
	`cod(e|es|ing)`,
	`architect\w*`,
	`design(s|ing)?`,
	`algorithms?`,
	`analy[sz](e|es|is|ing)`,
	`prove`,
	`proof`,
	`debug(ging)?`,
	`refactor(ing)?`,
	`strateg(y|ies)`,
	`calculat(e|ing|ion)`,
	`step by step`,
}

// Tokens that usually only appear in source code or stack traces.
var codeTerms = []string{
	"```",
	"func ",
	"function ",
	"def ",
	"class ",
	"import ",
	"const ",
	"return ",
	"=>",
	"();",
	"#include",
	"traceback",
	"exception",
	"syntaxerror",
	"stack trace",
}

var (
	searchRE    = compileVocabulary(searchTerms)
	reasoningRE = compileVocabulary(reasoningTerms)
)

func compileVocabulary(terms []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(terms, "|") + `)\b`)
}

// Classify reports which routing signals the text carries.
func Classify(text string) Signals {
	return Signals{
		SearchLikely:    IsSearchLike(text),
		ReasoningLikely: IsReasoningLike(text),
	}
}

func IsSearchLike(text string) bool {
	return searchRE.MatchString(text)
}

func IsReasoningLike(text string) bool {
	return reasoningRE.MatchString(text)
}

// LooksLikeCode reports whether the text appears to contain source code.
func LooksLikeCode(text string) bool {
	lower := strings.ToLower(text)
	for _, tok := range codeTerms {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// HasFencedCode reports whether the text contains a fenced code block marker.
func HasFencedCode(text string) bool {
	return strings.Contains(text, "```")
}
