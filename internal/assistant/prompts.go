package assistant

import "fmt"

// Response styles selectable from the settings store. Unknown styles fall
// back to StyleCasual.
const (
	StyleCasual = "casual"
	StyleFormal = "formal"
	StyleBrief  = "brief"
)

// styleClause maps a response style to the tone instruction embedded in
// every system prompt.
func styleClause(style string) string {
	switch style {
	case StyleFormal:
		return "Use polite, formal phrasing."
	case StyleBrief:
		return "Keep every reply to a few words."
	default:
		return "Use relaxed, conversational phrasing."
	}
}

// suggestionsPrompt builds the system prompt for short reply suggestions.
func suggestionsPrompt(style string) string {
	return "You are helping someone respond during a live phone call. " +
		"Given the other party's last utterance, reply with one short, natural spoken response. " +
		"No quotes, no numbering, no explanations. " + styleClause(style)
}

// bilingualPrompt builds the system prompt for paired-language replies.
func bilingualPrompt(style, primaryLang, secondaryLang string) string {
	return fmt.Sprintf(
		"You are helping someone respond during a live phone call. "+
			"Produce exactly 3 short reply options as a numbered list. "+
			"Each option is one line in %s followed by the %s version in parentheses on the next line. %s",
		langName(primaryLang), langName(secondaryLang), styleClause(style))
}

// translationPrompt builds the system prompt for verbatim translation.
func translationPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(
		"Translate the user's text from %s to %s. "+
			"Reply with the translation only, nothing else.",
		langName(sourceLang), langName(targetLang))
}

// langName expands the language codes the settings UI offers; anything
// else passes through as-is.
func langName(code string) string {
	switch code {
	case "en":
		return "English"
	case "ru":
		return "Russian"
	case "es":
		return "Spanish"
	case "de":
		return "German"
	case "fr":
		return "French"
	default:
		return code
	}
}
