package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Level aliases
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var globalLogger *slog.Logger
var isTerminal = term.IsTerminal

var sensitiveKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"bearer":        true,
	"body":          true,
	"content":       true,
	"password":      true,
	"payload":       true,
	"prompt":        true,
	"reply":         true,
	"secret":        true,
	"source_text":   true,
	"text":          true,
	"token":         true,
	"translation":   true,
	"value":         true,
}

// Attribute keys are matched by substring against these, so "openai_api_key"
// and "system_prompt" are caught while "path" and "tokens" pass through.
var sensitiveKeySubstrings = []string{
	"api_key",
	"apikey",
	"secret",
	"password",
	"authorization",
	"bearer",
	"prompt",
	"_text",
	"translation",
}

var sensitiveValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsk-[A-Za-z0-9_-]{10,}\b`),
	regexp.MustCompile(`\bsk-proj-[A-Za-z0-9_-]{10,}\b`),
	regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{10,}\b`),
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]+=*\b`),
	regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|secret)\b\s*[:=]\s*\S+`),
}

// RedactAttr is a slog.ReplaceAttr function that redacts sensitive information.
func RedactAttr(_ []string, a slog.Attr) slog.Attr {
	if shouldRedact(a) {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

func shouldRedact(a slog.Attr) bool {
	key := strings.ToLower(a.Key)
	if key == "translations" || key == "translated" {
		return false
	}
	if sensitiveKeys[key] {
		return true
	}
	for _, sub := range sensitiveKeySubstrings {
		if strings.Contains(key, sub) {
			return true
		}
	}

	var value string
	switch a.Value.Kind() {
	case slog.KindString:
		value = a.Value.String()
	default:
		value = fmt.Sprint(a.Value.Any())
	}
	if value == "" {
		return false
	}
	for _, re := range sensitiveValuePatterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

func init() {
	// Default logger: Info level to Stderr
	Init(LevelInfo, nil)
}

// Init initializes the global logger.
// logLevel sets the minimum level to log.
// logFile is an optional writer for JSONL output (e.g., an os.File).
func Init(level slog.Level, logFile io.Writer) {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: RedactAttr,
	}

	// Console Handler (Pretty)
	useColor := logFile == nil && isTerminal(int(os.Stderr.Fd()))
	consoleHandler := NewPrettyHandler(os.Stderr, opts, useColor)

	var handler slog.Handler = consoleHandler

	// If logFile is provided, use a multi-handler (simplified as a wrapper here)
	if logFile != nil {
		jsonHandler := slog.NewJSONHandler(logFile, opts)
		handler = &multiHandler{
			handlers: []slog.Handler{consoleHandler, jsonHandler},
		}
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

// Global Logging Functions
func Debug(msg string, args ...any) { globalLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { globalLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { globalLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { globalLogger.Error(msg, args...) }

// Fatal logs an error and exits
func Fatal(msg string, args ...any) {
	globalLogger.Error(msg, args...)
	os.Exit(1)
}

// --- Pretty Handler Implementation ---

// BatchKey is the attribute the console handler lifts into a "[batch N]"
// prefix, so per-batch lines line up under each other.
const BatchKey = "batch"

// PrettyHandler writes one line per record:
//
//	15:04:05 WARN  [batch 2] Retrying batch attempt=1 backoff=2s
type PrettyHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   *slog.HandlerOptions
	attrs  []slog.Attr
	groups []string
	color  bool
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) *PrettyHandler {
	return &PrettyHandler{mu: &sync.Mutex{}, w: w, opts: opts, color: color}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "\033[31m"
	case l >= slog.LevelWarn:
		return "\033[33m"
	case l >= slog.LevelInfo:
		return "\033[32m"
	default:
		return "\033[90m"
	}
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var batch string
	var rest strings.Builder

	writeAttr := func(a slog.Attr, groups []string) {
		if h.opts != nil && h.opts.ReplaceAttr != nil {
			a = h.opts.ReplaceAttr(groups, a)
		}
		if a.Key == "" {
			return
		}
		if a.Key == BatchKey && len(groups) == 0 && batch == "" {
			batch = a.Value.String()
			return
		}
		key := a.Key
		for i := len(groups) - 1; i >= 0; i-- {
			key = groups[i] + "." + key
		}
		if h.color {
			fmt.Fprintf(&rest, " \033[90m%s=\033[0m%v", key, a.Value)
			return
		}
		fmt.Fprintf(&rest, " %s=%v", key, a.Value)
	}

	for _, a := range h.attrs {
		writeAttr(a, h.groups)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a, h.groups)
		return true
	})

	var line strings.Builder
	line.WriteString(r.Time.Format("15:04:05"))
	line.WriteByte(' ')
	if h.color {
		fmt.Fprintf(&line, "%s%-5s\033[0m", levelColor(r.Level), r.Level.String())
	} else {
		fmt.Fprintf(&line, "%-5s", r.Level.String())
	}
	line.WriteByte(' ')
	if batch != "" {
		fmt.Fprintf(&line, "[batch %s] ", batch)
	}
	line.WriteString(r.Message)
	line.WriteString(rest.String())
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = append(h2.attrs[:len(h2.attrs):len(h2.attrs)], attrs...)
	return &h2
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(h2.groups[:len(h2.groups):len(h2.groups)], name)
	return &h2
}

// --- Multi Handler Implementation ---

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
