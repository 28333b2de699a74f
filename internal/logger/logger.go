package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

type Logger struct {
	mu           sync.Mutex
	terminal     io.Writer
	jsonOut      io.Writer
	logFile      *os.File
	minLevel     LogLevel
	colorEnabled bool
}

// NewLogger writes colored lines to stdout and JSON lines to a daily file in dir.
func NewLogger(dir, level string) *Logger {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatal("Failed to create logs directory:", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	logFileName := filepath.Join(dir, fmt.Sprintf("booking-service-%s.log", timestamp))

	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatal("Failed to create log file:", err)
	}

	l := &Logger{
		terminal:     os.Stdout,
		jsonOut:      logFile,
		logFile:      logFile,
		minLevel:     ParseLevel(level),
		colorEnabled: true,
	}

	l.Info("LOGGER", "Logging system initialized")
	l.Info("LOGGER", fmt.Sprintf("Log file: %s", logFileName))

	return l
}

// NewWithWriter sends JSON lines to w and skips the terminal. Used by tests.
func NewWithWriter(w io.Writer, level string) *Logger {
	return &Logger{
		jsonOut:  w,
		minLevel: ParseLevel(level),
	}
}

func ParseLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (l *Logger) log(level LogLevel, category, message string) {
	if level < l.minLevel {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     levelToString(level),
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.terminal != nil {
		fmt.Fprint(l.terminal, l.formatTerminalOutput(entry))
	}
	if l.jsonOut != nil {
		jsonBytes, _ := json.Marshal(entry)
		l.jsonOut.Write(append(jsonBytes, '\n'))
	}
}

func (l *Logger) formatTerminalOutput(entry LogEntry) string {
	timestamp := entry.Timestamp[11:19]

	if !l.colorEnabled {
		return fmt.Sprintf("%s %-5s [%-10s] %s\n", timestamp, entry.Level, entry.Category, entry.Message)
	}

	var levelColor, categoryColor *color.Color
	switch entry.Level {
	case "DEBUG":
		levelColor = color.New(color.FgCyan)
		categoryColor = color.New(color.FgCyan, color.Bold)
	case "INFO":
		levelColor = color.New(color.FgGreen)
		categoryColor = color.New(color.FgGreen, color.Bold)
	case "WARN":
		levelColor = color.New(color.FgYellow)
		categoryColor = color.New(color.FgYellow, color.Bold)
	case "ERROR", "FATAL":
		levelColor = color.New(color.FgRed, color.Bold)
		categoryColor = color.New(color.FgRed, color.Bold)
	default:
		levelColor = color.New(color.FgWhite)
		categoryColor = color.New(color.FgWhite, color.Bold)
	}

	timeStr := color.New(color.FgBlue).Sprint(timestamp)
	levelStr := levelColor.Sprintf("%-5s", entry.Level)
	categoryStr := categoryColor.Sprintf("[%-10s]", entry.Category)

	if entry.File != "" && entry.Line > 0 {
		fileInfo := color.New(color.FgMagenta).Sprintf(" (%s:%d)", entry.File, entry.Line)
		return fmt.Sprintf("%s %s %s %s%s\n", timeStr, levelStr, categoryStr, entry.Message, fileInfo)
	}
	return fmt.Sprintf("%s %s %s %s\n", timeStr, levelStr, categoryStr, entry.Message)
}

func levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "INFO"
	}
}

func (l *Logger) Debug(category, message string) {
	l.log(DEBUG, category, message)
}

func (l *Logger) Info(category, message string) {
	l.log(INFO, category, message)
}

func (l *Logger) Warn(category, message string) {
	l.log(WARN, category, message)
}

func (l *Logger) Error(category, message string) {
	l.log(ERROR, category, message)
}

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

// Component helpers

func (l *Logger) LogBooking(action, bookingID, message string) {
	l.log(INFO, "BOOKING", fmt.Sprintf("[%s] %s - %s", action, bookingID, message))
}

func (l *Logger) LogWebhook(orderID, transactionStatus, message string) {
	l.log(INFO, "WEBHOOK", fmt.Sprintf("[%s] %s - %s", transactionStatus, orderID, message))
}

func (l *Logger) LogCheckin(bookingID, result string) {
	l.log(INFO, "CHECKIN", fmt.Sprintf("%s - %s", bookingID, result))
}

func (l *Logger) LogWithdrawal(action, requestID, message string) {
	l.log(INFO, "WITHDRAWAL", fmt.Sprintf("[%s] %s - %s", action, requestID, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.log(INFO, "API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.log(INFO, "KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.log(INFO, "DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.log(WARN, "SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	if l.logFile != nil {
		l.Info("LOGGER", "Closing log file")
		l.logFile.Close()
	}
}
