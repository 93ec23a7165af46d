package audience

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Entry 一条有效的观众投票。
type Entry struct {
	GameID string
	From   string
	Letter string
}

func (e Entry) line() string {
	return e.GameID + "," + e.From + "," + e.Letter + "\n"
}

// Log 所有游戏共享的只追加投票日志。
// 每行格式为 "gameId,fromNumber,letter"。
type Log struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenLog 以追加方式打开日志，不存在时创建。
func OpenLog(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open response log: %w", err)
	}
	return &Log{path: path, file: f}, nil
}

// Append 写入一行，并发调用会被串行化。
func (l *Log) Append(e Entry) error {
	if strings.ContainsAny(e.GameID+e.From+e.Letter, ",\n") {
		return fmt.Errorf("response log entry contains a separator: %+v", e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("response log closed")
	}
	if _, err := l.file.WriteString(e.line()); err != nil {
		return fmt.Errorf("append response: %w", err)
	}
	return nil
}

// Entries 读取当前全部日志，跳过空行和格式错误的行。
func (l *Log) Entries() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read response log: %w", err)
	}
	return ParseEntries(data), nil
}

// Close 关闭日志文件。
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ParseEntries 解析原始日志内容。
func ParseEntries(data []byte) []Entry {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		parts := strings.Split(strings.TrimSpace(scanner.Text()), ",")
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			continue
		}
		entries = append(entries, Entry{GameID: parts[0], From: parts[1], Letter: parts[2]})
	}
	return entries
}
