package utils

import (
	"sync"
	"time"
)

// Clock - источник текущего времени. В продакшене RealClock, в тестах FakeClock.
type Clock interface {
	Now() time.Time
}

// RealClock возвращает время по UTC.
type RealClock struct{}

// Now возвращает текущее время.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// FakeClock - управляемые часы для тестов. Время стоит, пока не вызван Advance.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock создает часы, остановленные на заданном моменте.
func NewFakeClock(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// Now возвращает текущее время часов.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance сдвигает часы вперёд.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Set переставляет часы на заданный момент.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}
