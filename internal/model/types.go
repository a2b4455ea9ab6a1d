// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Default drill settings used when nothing is persisted.
const (
	DefaultTimeLimitMinutes = 10
	DefaultMinFactor        = 1
	DefaultMaxFactor        = 6
	DefaultNoDuplicates     = true
)

// Settings defines the four user-configurable drill values.
type Settings struct {
	TimeLimitMinutes int
	MinFactor        int
	MaxFactor        int
	NoDuplicates     bool
}

// DefaultSettings returns the settings used on first run.
func DefaultSettings() Settings {
	return Settings{
		TimeLimitMinutes: DefaultTimeLimitMinutes,
		MinFactor:        DefaultMinFactor,
		MaxFactor:        DefaultMaxFactor,
		NoDuplicates:     DefaultNoDuplicates,
	}
}

// TotalSeconds returns the countdown length of a session.
func (s Settings) TotalSeconds() int {
	return s.TimeLimitMinutes * 60
}

// PoolSize returns the number of ordered factor pairs in the range.
func (s Settings) PoolSize() int {
	if s.MinFactor > s.MaxFactor {
		return 0
	}
	n := s.MaxFactor - s.MinFactor + 1
	return n * n
}

// Validate reports settings a session cannot run with.
func (s Settings) Validate() error {
	if s.TimeLimitMinutes < 1 {
		return &ConfigurationError{Field: "time limit", Reason: fmt.Sprintf("must be at least 1 minute, got %d", s.TimeLimitMinutes)}
	}
	if s.MinFactor > s.MaxFactor {
		return &ConfigurationError{Field: "factor range", Reason: fmt.Sprintf("min factor %d is greater than max factor %d", s.MinFactor, s.MaxFactor)}
	}
	return nil
}

// ConfigurationError describes settings that cannot produce a drill.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Problem is a single multiplication problem.
type Problem struct {
	A int
	B int
}

// Product returns the expected answer.
func (p Problem) Product() int {
	return p.A * p.B
}

// Key identifies the problem positionally, so 2×3 and 3×2 differ.
func (p Problem) Key() string {
	return fmt.Sprintf("%d-%d", p.A, p.B)
}

// Attempt records one submitted answer.
type Attempt struct {
	Problem
	Input      string
	Correct    bool
	AnsweredAt time.Time
}

// SessionResult captures a completed drill session.
type SessionResult struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Settings  Settings
	Attempts  int
	Correct   int
	History   []Attempt
}

// StatsConfig defines filters for stats output.
type StatsConfig struct {
	Since *time.Time
	Last  int
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	SessionID string
	EndedAt   time.Time
	Settings  Settings
	Attempts  int
	Correct   int
}

// FactAggregate aggregates answers for one problem across sessions.
type FactAggregate struct {
	A         int
	B         int
	Correct   int
	Incorrect int
}
