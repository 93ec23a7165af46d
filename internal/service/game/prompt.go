package game

import (
	"fmt"
	"strings"
)

const questionSchema = `{"question":"The text for the string","choices":[{"letter":"The letter choice","text":"The choice"}],"correct":"The correct choice"}`

func systemPrompt(categories []string) string {
	theme := strings.Join(categories, ", ")
	if theme == "" {
		theme = "general knowledge"
	}

	var b strings.Builder
	b.WriteString("You are a helpful AI assistant. ")
	b.WriteString("You answer the user's queries. ")
	b.WriteString("You NEVER return anything but a JSON string. ")
	b.WriteString(`Let's play "Who wants to be a millionaire". `)
	b.WriteString("The questions should be themed on ")
	b.WriteString(theme)
	b.WriteString(". Return each question as a JSON object following this schema: ")
	b.WriteString(questionSchema)
	b.WriteString(". When you want to use a blank in a question, use <blank>. ")
	b.WriteString("There should always be 4 choices and 1 correct answer.")
	return b.String()
}

func askPrompt(points int) string {
	return fmt.Sprintf("Generate a question worth $%d for me please.", points)
}
