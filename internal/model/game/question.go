package game

// Choice 题目的四个选项之一。
type Choice struct {
	Letter         string `json:"letter" bson:"letter"`
	Text           string `json:"text" bson:"text"`
	Removed        bool   `json:"removed" bson:"removed"`
	AudienceChoice int    `json:"audience_choice" bson:"audience_choice"`
}

// Question 生成的单选题。
type Question struct {
	ID                string   `json:"id" bson:"id"`
	Question          string   `json:"question" bson:"question"`
	Choices           []Choice `json:"choices" bson:"choices"`
	Correct           string   `json:"correct" bson:"correct"`
	Answered          bool     `json:"answered" bson:"answered"`
	AnsweredCorrectly bool     `json:"answered_correctly" bson:"answered_correctly"`
	Passed            bool     `json:"passed" bson:"passed"`
}

// Pending 表示题目是否仍在等待作答或跳过。
func (q *Question) Pending() bool {
	return !q.Answered && !q.Passed
}

// AllowedLetters 列出仍可选择的选项字母。
func (q *Question) AllowedLetters() []string {
	letters := make([]string, 0, len(q.Choices))
	for _, c := range q.Choices {
		if !c.Removed {
			letters = append(letters, c.Letter)
		}
	}
	return letters
}

// RemovedLetters 列出被去错排除的选项字母。
func (q *Question) RemovedLetters() []string {
	var letters []string
	for _, c := range q.Choices {
		if c.Removed {
			letters = append(letters, c.Letter)
		}
	}
	return letters
}

// CorrectChoice 返回正确选项，没有时返回 nil。
func (q *Question) CorrectChoice() *Choice {
	for i := range q.Choices {
		if q.Choices[i].Letter == q.Correct {
			return &q.Choices[i]
		}
	}
	return nil
}
