package game_test

import (
	"errors"
	"testing"

	gamesvc "github.com/zhouzirui/millionaire/backend/internal/service/game"
)

func TestParseQuestion(t *testing.T) {
	content := "Here you go:\n```json\n" + `{
		"question": "Which planet is known as the <blank> planet?",
		"choices": [
			{"letter": "a)", "text": "Venus"},
			{"letter": "b)", "text": "Mars"},
			{"letter": "c)", "text": "Jupiter"},
			{"letter": "d)", "text": "Saturn"}
		],
		"correct": "b) Mars"
	}` + "\n```"

	q, err := gamesvc.ParseQuestion(content)
	if err != nil {
		t.Fatalf("ParseQuestion err: %v", err)
	}

	if q.Correct != "B" {
		t.Fatalf("unexpected correct letter: %q", q.Correct)
	}
	letters := ""
	for _, c := range q.Choices {
		letters += c.Letter
		if c.Removed || c.AudienceChoice != 0 {
			t.Fatalf("choice %s not freshly initialised: %+v", c.Letter, c)
		}
	}
	if letters != "ABCD" {
		t.Fatalf("unexpected letters: %s", letters)
	}
	if q.Answered || q.AnsweredCorrectly || q.Passed || q.ID != "" {
		t.Fatalf("question should be unanswered and unidentified: %+v", q)
	}
	if q.CorrectChoice().Text != "Mars" {
		t.Fatalf("unexpected correct choice: %+v", q.CorrectChoice())
	}
}

func TestParseQuestionFromArray(t *testing.T) {
	q, err := gamesvc.ParseQuestion(`[` + questionJSON("q", "C") + `]`)
	if err != nil {
		t.Fatalf("ParseQuestion err: %v", err)
	}
	if q.Correct != "C" {
		t.Fatalf("unexpected correct letter: %q", q.Correct)
	}
}

func TestParseQuestionIgnoresTrailingProse(t *testing.T) {
	content := "Here you go:\n" + questionJSON("Which planet is red?", "B") + "\nHope that helps! Use {blank} next time."
	q, err := gamesvc.ParseQuestion(content)
	if err != nil {
		t.Fatalf("ParseQuestion err: %v", err)
	}
	if q.Question != "Which planet is red?" || q.Correct != "B" {
		t.Fatalf("unexpected question: %+v", q)
	}
}

func TestParseQuestionRejects(t *testing.T) {
	cases := map[string]string{
		"not json":        "Sure! The answer is Paris.",
		"broken json":     `{"question": "x", "choices": [`,
		"three choices":   `{"question":"x","choices":[{"letter":"A","text":"1"},{"letter":"B","text":"2"},{"letter":"C","text":"3"}],"correct":"A"}`,
		"no match":        `{"question":"x","choices":[{"letter":"A","text":"1"},{"letter":"B","text":"2"},{"letter":"C","text":"3"},{"letter":"D","text":"4"}],"correct":"E"}`,
		"duplicate":       `{"question":"x","choices":[{"letter":"A","text":"1"},{"letter":"a","text":"2"},{"letter":"C","text":"3"},{"letter":"D","text":"4"}],"correct":"A"}`,
		"empty question":  `{"question":" ","choices":[{"letter":"A","text":"1"},{"letter":"B","text":"2"},{"letter":"C","text":"3"},{"letter":"D","text":"4"}],"correct":"A"}`,
		"missing letters": `{"question":"x","choices":[{"letter":"","text":"1"},{"letter":"B","text":"2"},{"letter":"C","text":"3"},{"letter":"D","text":"4"}],"correct":"B"}`,
	}

	for name, content := range cases {
		if _, err := gamesvc.ParseQuestion(content); !errors.Is(err, gamesvc.ErrGenerationFormat) {
			t.Errorf("%s: expected ErrGenerationFormat, got %v", name, err)
		}
	}
}
