package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"resumerag/internal/errors"
	"resumerag/internal/watch"
)

// PromptOverride replaces the built-in system and/or user prompt of one
// operation. A file wins over inline text.
type PromptOverride struct {
	System     string `mapstructure:"system"`
	SystemFile string `mapstructure:"systemFile"`
	User       string `mapstructure:"user"`
	UserFile   string `mapstructure:"userFile"`
}

// PromptConfig holds per-operation prompt overrides.
type PromptConfig struct {
	Analysis    PromptOverride `mapstructure:"analysis"`
	Questions   PromptOverride `mapstructure:"questions"`
	Feedback    PromptOverride `mapstructure:"feedback"`
	IdealAnswer PromptOverride `mapstructure:"idealAnswer"`
	Ask         PromptOverride `mapstructure:"ask"`
}

// For returns the override block for op.
func (p PromptConfig) For(op Operation) PromptOverride {
	switch op {
	case OpAnalysis:
		return p.Analysis
	case OpQuestions:
		return p.Questions
	case OpFeedback:
		return p.Feedback
	case OpIdealAnswer:
		return p.IdealAnswer
	case OpAsk:
		return p.Ask
	}
	return PromptOverride{}
}

// Files lists every configured prompt file.
func (p PromptConfig) Files() []string {
	var files []string
	for _, op := range Operations {
		o := p.For(op)
		if o.SystemFile != "" {
			files = append(files, o.SystemFile)
		}
		if o.UserFile != "" {
			files = append(files, o.UserFile)
		}
	}
	return files
}

func (p PromptConfig) validateFiles() error {
	for _, file := range p.Files() {
		info, err := os.Stat(file)
		if err != nil {
			return fmt.Errorf("prompt file %s: %w", file, err)
		}
		if info.IsDir() {
			return fmt.Errorf("prompt file %s is a directory", file)
		}
	}
	return nil
}

// LoadedPrompt is the resolved override text for one operation. Empty
// fields mean "use the built-in prompt".
type LoadedPrompt struct {
	System       string
	User         string
	SystemSource string // file, config or default
	UserSource   string
}

// PromptStore holds prompt overrides and reloads file-backed ones on
// demand. It is safe for concurrent use.
type PromptStore struct {
	mu      sync.RWMutex
	cfg     PromptConfig
	loaded  map[Operation]LoadedPrompt
	watcher *watch.FileWatcher
	logger  *errors.Logger
}

// NewPromptStore reads all configured prompt files once.
func NewPromptStore(cfg PromptConfig, logger *errors.Logger) (*PromptStore, error) {
	s := &PromptStore{cfg: cfg, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads every prompt file. On error the previous prompts stay.
func (s *PromptStore) Reload() error {
	loaded := make(map[Operation]LoadedPrompt, len(Operations))
	for _, op := range Operations {
		o := s.cfg.For(op)
		system, systemSource, err := resolvePrompt(o.SystemFile, o.System)
		if err != nil {
			return fmt.Errorf("failed to load %s system prompt: %w", op, err)
		}
		user, userSource, err := resolvePrompt(o.UserFile, o.User)
		if err != nil {
			return fmt.Errorf("failed to load %s user prompt: %w", op, err)
		}
		loaded[op] = LoadedPrompt{System: system, User: user, SystemSource: systemSource, UserSource: userSource}
	}

	s.mu.Lock()
	s.loaded = loaded
	s.mu.Unlock()

	if s.logger != nil {
		for _, op := range Operations {
			p := loaded[op]
			s.logger.Debug("Prompt sources resolved", "operation", op, "system", p.SystemSource, "user", p.UserSource)
		}
	}
	return nil
}

// Get returns the current override for op.
func (s *PromptStore) Get(op Operation) LoadedPrompt {
	if s == nil {
		return LoadedPrompt{SystemSource: "default", UserSource: "default"}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[op]
}

// Watch reloads prompts whenever one of the prompt files changes.
func (s *PromptStore) Watch() error {
	files := s.cfg.Files()
	if len(files) == 0 {
		return nil
	}
	s.watcher = watch.New("prompts", files, 0, func() {
		if err := s.Reload(); err != nil && s.logger != nil {
			s.logger.LogError(err, "Prompt reload failed, keeping previous prompts")
		}
	}, s.logger)
	return s.watcher.Start()
}

// Close stops watching prompt files.
func (s *PromptStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Stop()
}

func resolvePrompt(file, inline string) (string, string, error) {
	if file != "" {
		content, err := loadPromptFromFile(file)
		if err != nil {
			return "", "", err
		}
		return content, "file", nil
	}
	if strings.TrimSpace(inline) != "" {
		return inline, "config", nil
	}
	return "", "default", nil
}

func loadPromptFromFile(path string) (string, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return text, nil
}
