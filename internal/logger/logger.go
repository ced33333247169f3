// Package logger - логирование с префиксом процесса (portal, demo) и асинхронной записью,
// чтобы сетевые вызовы клиента и обработчики демо-бэкенда не ждали вывода.
// Поддерживается логирование времени выполнения операций.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

const asyncBufferSize = 4096

var (
	prefix   string
	logLevel = levelInfo
	levelMu  sync.RWMutex
	ch       chan string
	once     sync.Once
)

type level int

const (
	levelDebug level = iota
	levelInfo
)

func parseLevel(s string) level {
	switch s {
	case "debug", "trace":
		return levelDebug
	default:
		return levelInfo
	}
}

func initWorker() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		SetLevel(v)
	}
	ch = make(chan string, asyncBufferSize)
	go func() {
		for msg := range ch {
			log.Print(msg)
		}
	}()
}

func enqueue(msg string) {
	once.Do(initWorker)
	select {
	case ch <- msg:
	default:
		// Буфер полон: не блокируем, теряем лог
	}
}

// SetPrefix задаёт префикс для всех последующих логов (например "portal", "demo").
func SetPrefix(p string) {
	prefix = p
}

// SetLevel переключает уровень ("debug" или "info"); вызывается после config.Load.
func SetLevel(s string) {
	levelMu.Lock()
	logLevel = parseLevel(s)
	levelMu.Unlock()
}

func debugEnabled() bool {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return logLevel == levelDebug
}

func tag() string {
	if prefix == "" {
		return ""
	}
	return "[" + prefix + "] "
}

// Info пишет в log с префиксом (асинхронно).
func Info(v ...any) {
	enqueue(tag() + fmt.Sprint(v...))
}

// Infof форматирует и пишет с префиксом (асинхронно).
func Infof(format string, v ...any) {
	enqueue(tag() + fmt.Sprintf(format, v...))
}

// Debugf пишет только при LOG_LEVEL=debug.
func Debugf(format string, v ...any) {
	if !debugEnabled() {
		return
	}
	enqueue(tag() + "DEBUG: " + fmt.Sprintf(format, v...))
}

// Error пишет ошибку с префиксом (асинхронно).
func Error(v ...any) {
	enqueue(tag() + "ERROR: " + fmt.Sprint(v...))
}

// Errorf форматирует ошибку с префиксом (асинхронно).
func Errorf(format string, v ...any) {
	enqueue(tag() + "ERROR: " + fmt.Sprintf(format, v...))
}

// LogDuration логирует имя операции и время выполнения в миллисекундах (асинхронно).
// При LOG_LEVEL=info логирует только вызовы дольше 100ms; при LOG_LEVEL=debug: все.
func LogDuration(fn string, start time.Time) {
	elapsed := time.Since(start)
	if debugEnabled() || elapsed >= 100*time.Millisecond {
		enqueue(fmt.Sprintf("%sfn=%s duration_ms=%d", tag(), fn, elapsed.Milliseconds()))
	}
}

// DeferLogDuration возвращает функцию для вызова в defer: defer logger.DeferLogDuration("portal.SendMessage", time.Now())().
func DeferLogDuration(fn string, start time.Time) func() {
	return func() { LogDuration(fn, start) }
}
