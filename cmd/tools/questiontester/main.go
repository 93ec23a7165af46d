package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/millionaire/backend/internal/config"
	"github.com/zhouzirui/millionaire/backend/internal/model/game"
	"github.com/zhouzirui/millionaire/backend/internal/repository"
	"github.com/zhouzirui/millionaire/backend/internal/service/ai"
	gameService "github.com/zhouzirui/millionaire/backend/internal/service/game"
	"github.com/zhouzirui/millionaire/backend/internal/service/vonage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "", "测试模式: question 或 sms")
	categories := flag.String("categories", "", "逗号分隔的题目主题")
	count := flag.Int("count", 3, "question 模式下连续出题的数量")
	to := flag.String("to", "", "sms 模式下的接收号码")
	text := flag.String("text", "Testing, testing, 1 2 3", "sms 模式下的短信内容")
	timeout := flag.Duration("timeout", 2*time.Minute, "请求超时时间")

	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "question":
		runQuestions(ctx, cfg, splitCategories(*categories), *count)
	case "sms":
		runSMS(ctx, cfg, *to, *text)
	default:
		flag.Usage()
		log.Fatal("请通过 -mode=question 或 -mode=sms 指定测试模式")
	}
}

func splitCategories(raw string) []string {
	var out []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// runQuestions 用临时游戏连续出题并全部答对，
// 依次测试每个奖金档位的出题效果。
func runQuestions(ctx context.Context, cfg *config.Config, categories []string, count int) {
	if !cfg.AI.Enabled() {
		log.Fatal("出题服务未启用，请先配置 Ark 凭证与 Model")
	}

	generator, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("AI 服务初始化失败: %v", err)
	}

	dir, err := os.MkdirTemp("", "questiontester")
	if err != nil {
		log.Fatalf("创建临时目录失败: %v", err)
	}
	defer os.RemoveAll(dir)

	repo, err := repository.NewFileRepository(filepath.Join(dir, "games.json"))
	if err != nil {
		log.Fatalf("创建临时存储失败: %v", err)
	}

	svc := gameService.NewService(repo, gameService.Deps{Generator: generator})
	g, err := svc.CreateGame(ctx, gameService.CreateParams{Title: "question tester", Categories: categories})
	if err != nil {
		log.Fatalf("创建游戏失败: %v", err)
	}

	for i := 0; i < count && !g.Over; i++ {
		points := gameService.NextTierPoints(g)
		start := time.Now()
		g, err = svc.Ask(ctx, g.ID)
		if err != nil {
			log.Fatalf("出题失败: %v", err)
		}

		q := g.CurrentQuestion()
		printQuestion(q, points, time.Since(start))

		g, err = svc.Answer(ctx, g.ID, q.Correct)
		if err != nil {
			log.Fatalf("作答失败: %v", err)
		}
	}

	log.Printf("测试结束: score=$%d questions=%d", gameService.Score(g), len(g.Questions))
}

func printQuestion(q *game.Question, points int, took time.Duration) {
	fmt.Printf("\n[$%d] %s (%s)\n", points, q.Question, took.Round(time.Millisecond))
	for _, c := range q.Choices {
		marker := " "
		if c.Letter == q.Correct {
			marker = "*"
		}
		fmt.Printf("  %s %s: %s\n", marker, c.Letter, c.Text)
	}
}

func runSMS(ctx context.Context, cfg *config.Config, to, text string) {
	if !cfg.Vonage.Enabled() {
		log.Fatal("短信服务未启用，请先配置 VONAGE_* 环境变量")
	}
	if to == "" {
		log.Fatal("sms 模式需要通过 -to 指定接收号码")
	}

	client, err := vonage.NewClient(cfg.Vonage)
	if err != nil {
		log.Fatalf("Vonage 客户端初始化失败: %v", err)
	}

	numbers, err := client.OwnedNumbers(ctx)
	if err != nil {
		log.Printf("[WARN] 查询号码失败: %v", err)
	}
	for _, n := range numbers {
		log.Printf("应用号码: %s (%s)", n.Number, n.CountryName)
	}

	if err := client.SendSMS(ctx, cfg.Vonage.FromNumber, to, text); err != nil {
		log.Fatalf("短信发送失败: %v", err)
	}
	log.Printf("短信已发送: to=%s", to)
}
