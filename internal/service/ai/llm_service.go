package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/millionaire/backend/internal/config"
	"github.com/zhouzirui/millionaire/backend/internal/logger"
	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

const transcriptKey = "transcript"

// ErrEmptyReply 模型返回空内容时的错误。
var ErrEmptyReply = errors.New("model returned an empty reply")

// Service 为游戏对话记录生成下一条助手回复。
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

// NewService 使用配置的 Ark 模型创建出题服务。
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg.Timeout)
}

// NewServiceWithModel 使用任意模型创建出题服务。
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, timeout time.Duration) (*Service, error) {
	// 对话记录里含有之前回复的原始 JSON，
	// 因此用占位符传入，不走 FString 模板。
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder(transcriptKey, false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile question chain: %w", err)
	}

	return &Service{chain: runnable, timeout: timeout}, nil
}

// Generate 将对话记录交给模型并返回回复文本。
func (s *Service) Generate(ctx context.Context, transcript []game.Message) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	response, err := s.chain.Invoke(ctx, map[string]any{
		transcriptKey: toSchemaMessages(transcript),
	})
	if err != nil {
		return "", fmt.Errorf("failed to run question chain: %w", err)
	}

	content := strings.TrimSpace(response.Content)
	if content == "" {
		return "", ErrEmptyReply
	}

	logger.Debug("question generated", "turns", len(transcript), "length", len(content), "elapsed", time.Since(start))
	return content, nil
}

func toSchemaMessages(transcript []game.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(transcript))
	for _, msg := range transcript {
		switch msg.Role {
		case game.RoleSystem:
			messages = append(messages, schema.SystemMessage(msg.Content))
		case game.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(msg.Content))
		}
	}
	return messages
}
