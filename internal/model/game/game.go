package game

import "time"

// Role 标记对话记录中消息的角色。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 出题对话记录中的一轮消息。
type Message struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// Person 报名名单中的一条记录。
type Person struct {
	Name  string `json:"name" bson:"name"`
	Phone string `json:"phone" bson:"phone"`
}

// Participant 游戏可以联系的报名者。
type Participant struct {
	Name       string `json:"name" bson:"name"`
	Phone      string `json:"phone" bson:"phone"`
	LastStatus string `json:"last_status" bson:"last_status"`
}

// LifeLines 记录已使用的求助。
type LifeLines struct {
	NarrowItDown    bool `json:"narrow_it_down" bson:"narrow_it_down"`
	PhoneADev       bool `json:"phone_a_dev" bson:"phone_a_dev"`
	TextTheAudience bool `json:"text_the_audience" bson:"text_the_audience"`
}

// Number 可接收观众短信的自有号码。
type Number struct {
	Country     string `json:"country" bson:"country"`
	CountryName string `json:"countryName" bson:"countryName"`
	MSISDN      string `json:"msisdn" bson:"msisdn"`
	Number      string `json:"number" bson:"number"`
}

// Game 一场游戏的聚合根。
type Game struct {
	ID           string        `json:"id" bson:"_id"`
	Title        string        `json:"title" bson:"title"`
	URL          string        `json:"url,omitempty" bson:"url,omitempty"`
	Categories   []string      `json:"categories" bson:"categories"`
	Score        int           `json:"score" bson:"score"`
	Over         bool          `json:"over" bson:"over"`
	Player       *Person       `json:"player" bson:"player"`
	Participants []Participant `json:"participants" bson:"participants"`
	LifeLines    LifeLines     `json:"life_lines" bson:"life_lines"`
	Messages     []Message     `json:"messages" bson:"messages"`
	Questions    []Question    `json:"questions" bson:"questions"`
	Numbers      []Number      `json:"numbers" bson:"numbers"`

	// 每次电话求助或呼叫选手时重新计算。
	JWT string       `json:"jwt,omitempty" bson:"jwt,omitempty"`
	Dad *Participant `json:"dad,omitempty" bson:"dad,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// CurrentQuestion 返回最近一道题，没有时返回 nil。
func (g *Game) CurrentQuestion() *Question {
	if len(g.Questions) == 0 {
		return nil
	}
	return &g.Questions[len(g.Questions)-1]
}

// Clone 返回深拷贝，修改副本不影响已存储的状态。
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}

	c := *g
	c.Categories = append([]string(nil), g.Categories...)
	c.Participants = append([]Participant(nil), g.Participants...)
	c.Messages = append([]Message(nil), g.Messages...)
	c.Numbers = append([]Number(nil), g.Numbers...)
	if g.Player != nil {
		p := *g.Player
		c.Player = &p
	}
	if g.Dad != nil {
		d := *g.Dad
		c.Dad = &d
	}
	if g.Questions != nil {
		c.Questions = make([]Question, len(g.Questions))
		for i, q := range g.Questions {
			q.Choices = append([]Choice(nil), q.Choices...)
			c.Questions[i] = q
		}
	}
	return &c
}
