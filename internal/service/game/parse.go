package game

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

const choiceCount = 4

type generatedQuestion struct {
	Question string `json:"question"`
	Choices  []struct {
		Letter string `json:"letter"`
		Text   string `json:"text"`
	} `json:"choices"`
	Correct string `json:"correct"`
}

// ParseQuestion 将模型输出解析为一道未作答的新题。
// 允许前后夹带说明文字或代码块，只取第一个 JSON 对象。
// 返回的题目没有 ID。
func ParseQuestion(content string) (game.Question, error) {
	start := strings.Index(content, "{")
	if start < 0 {
		return game.Question{}, fmt.Errorf("%w: no JSON object in reply", ErrGenerationFormat)
	}

	var raw generatedQuestion
	if err := json.NewDecoder(strings.NewReader(content[start:])).Decode(&raw); err != nil {
		return game.Question{}, fmt.Errorf("%w: %v", ErrGenerationFormat, err)
	}

	text := strings.TrimSpace(raw.Question)
	if text == "" {
		return game.Question{}, fmt.Errorf("%w: empty question text", ErrGenerationFormat)
	}
	if len(raw.Choices) != choiceCount {
		return game.Question{}, fmt.Errorf("%w: expected %d choices, got %d", ErrGenerationFormat, choiceCount, len(raw.Choices))
	}

	q := game.Question{
		Question: text,
		Correct:  normalizeLetter(raw.Correct),
		Choices:  make([]game.Choice, 0, choiceCount),
	}

	seen := make(map[string]bool, choiceCount)
	for _, c := range raw.Choices {
		letter := normalizeLetter(c.Letter)
		if letter == "" {
			return game.Question{}, fmt.Errorf("%w: choice without a letter", ErrGenerationFormat)
		}
		if seen[letter] {
			return game.Question{}, fmt.Errorf("%w: duplicate choice %s", ErrGenerationFormat, letter)
		}
		seen[letter] = true
		q.Choices = append(q.Choices, game.Choice{Letter: letter, Text: strings.TrimSpace(c.Text)})
	}

	if q.CorrectChoice() == nil {
		return game.Question{}, fmt.Errorf("%w: correct answer %q matches no choice", ErrGenerationFormat, raw.Correct)
	}
	return q, nil
}

// normalizeLetter 取首字符并转为大写。
func normalizeLetter(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r))
}
