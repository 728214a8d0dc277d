package assistant

import (
	"fmt"
	"strings"
)

// intentBranch classifies an utterance for the rule-based mocks. The
// keyword tables are checked in order; the first hit wins.
type intentBranch int

const (
	intentDefault intentBranch = iota
	intentGreeting
	intentGratitude
	intentFarewell
	intentQuestion
)

var intentKeywords = []struct {
	branch   intentBranch
	keywords []string
}{
	{intentGreeting, []string{"hello", "hi ", "hey", "привет", "здравствуйте", "добрый день"}},
	{intentGratitude, []string{"thank", "thanks", "спасибо", "благодарю"}},
	{intentFarewell, []string{"bye", "goodbye", "see you", "пока", "до свидания"}},
}

// classifyIntent picks the mock branch for an utterance, deterministically.
func classifyIntent(text string) intentBranch {
	lower := " " + strings.ToLower(text) + " "
	for _, entry := range intentKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.branch
			}
		}
	}
	if strings.Contains(text, "?") {
		return intentQuestion
	}
	return intentDefault
}

// mockSuggestions is the rule-based suggestion fallback. Same input text,
// same 3 strings, always.
func mockSuggestions(text string) []string {
	switch classifyIntent(text) {
	case intentGreeting:
		return []string{
			"Hi! Good to hear from you.",
			"Hello! How have you been?",
			"Hey, what's up?",
		}
	case intentGratitude:
		return []string{
			"You're welcome!",
			"Happy to help.",
			"Any time.",
		}
	case intentFarewell:
		return []string{
			"Take care!",
			"Talk to you later.",
			"Bye for now.",
		}
	case intentQuestion:
		return []string{
			"Let me think about that.",
			"Good question, I'm not sure yet.",
			"Can you give me a bit more detail?",
		}
	default:
		return []string{
			"I see what you mean.",
			"Got it, go on.",
			"Okay, makes sense.",
		}
	}
}

// mockBilingual is the rule-based bilingual fallback, always exactly
// maxBilingualPairs entries.
func mockBilingual(text string) []BilingualPair {
	switch classifyIntent(text) {
	case intentGreeting:
		return []BilingualPair{
			{Primary: "Hi! Good to hear from you.", Secondary: "Привет! Рад тебя слышать."},
			{Primary: "Hello! How have you been?", Secondary: "Здравствуйте! Как ваши дела?"},
			{Primary: "Hey, what's up?", Secondary: "Привет, как дела?"},
		}
	case intentGratitude:
		return []BilingualPair{
			{Primary: "You're welcome!", Secondary: "Пожалуйста!"},
			{Primary: "Happy to help.", Secondary: "Рад помочь."},
			{Primary: "Any time.", Secondary: "Обращайтесь."},
		}
	case intentFarewell:
		return []BilingualPair{
			{Primary: "Take care!", Secondary: "Береги себя!"},
			{Primary: "Talk to you later.", Secondary: "Поговорим позже."},
			{Primary: "Bye for now.", Secondary: "Пока."},
		}
	case intentQuestion:
		return []BilingualPair{
			{Primary: "Let me think about that.", Secondary: "Дай подумать."},
			{Primary: "Good question.", Secondary: "Хороший вопрос."},
			{Primary: "Can you clarify?", Secondary: "Можешь уточнить?"},
		}
	default:
		return []BilingualPair{
			{Primary: "I see what you mean.", Secondary: "Понимаю, о чём ты."},
			{Primary: "Got it, go on.", Secondary: "Понял, продолжай."},
			{Primary: "Okay, makes sense.", Secondary: "Хорошо, логично."},
		}
	}
}

// phraseTable is the static translation fallback, keyed by
// "source:target" then the lowercased phrase.
var phraseTable = map[string]map[string]string{
	"en:ru": {
		"hello":     "Привет",
		"thank you": "Спасибо",
		"yes":       "Да",
		"no":        "Нет",
		"goodbye":   "До свидания",
		"please":    "Пожалуйста",
	},
	"ru:en": {
		"привет":      "Hello",
		"спасибо":     "Thank you",
		"да":          "Yes",
		"нет":         "No",
		"до свидания": "Goodbye",
		"пожалуйста":  "Please",
	},
}

// mockTranslation serves the static phrase table, falling back to a
// templated placeholder for phrases it does not know.
func mockTranslation(text, sourceLang, targetLang string) string {
	key := strings.ToLower(strings.TrimSpace(text))
	key = strings.Trim(key, ".!?")

	if table, ok := phraseTable[sourceLang+":"+targetLang]; ok {
		if hit, ok := table[key]; ok {
			return hit
		}
	}
	return fmt.Sprintf("[%s] %s", targetLang, text)
}
