package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator выдаёт внутренние идентификаторы и номера для людей.
type IDGenerator interface {
	NewID() string
	NewReference(prefix string, at time.Time) string
}

// UUIDGenerator генерирует UUIDv7: идентификаторы растут со временем и не пересекаются.
type UUIDGenerator struct{}

// NewID возвращает новый UUIDv7.
func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// NewReference возвращает номер вида SRN-20261016-1A2B3C4D.
func (g UUIDGenerator) NewReference(prefix string, at time.Time) string {
	return formatReference(prefix, at, uuid.New().String())
}

// SequenceGenerator выдаёт детерминированные идентификаторы для тестов.
type SequenceGenerator struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewID возвращает следующий идентификатор последовательности.
func (g *SequenceGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%d", g.Prefix, g.n)
}

// NewReference возвращает номер на основе следующего идентификатора.
func (g *SequenceGenerator) NewReference(prefix string, at time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return formatReference(prefix, at, fmt.Sprintf("%08d", g.n))
}

func formatReference(prefix string, at time.Time, suffix string) string {
	suffix = strings.ToUpper(strings.ReplaceAll(suffix, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102"), suffix)
}
