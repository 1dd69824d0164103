package util

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

func Assert(cond bool, msg string) {
	ignoreAsserts := viper.GetBool("ignore-asserts")
	if !ignoreAsserts && !cond {
		panic(msg)
	}
}

type KV[K any, V any] struct {
	Key   K
	Value V
}

// OrderedRangeKV returns the entries of m ordered by key.
func OrderedRangeKV[K cmp.Ordered, V any](m map[K]V) []*KV[K, V] {
	keys := make([]K, 0, len(m))
	for key := range m { // nosemgrep: range-over-map
		keys = append(keys, key)
	}
	slices.Sort(keys)

	sorted := make([]*KV[K, V], len(keys))
	for i, key := range keys {
		sorted[i] = &KV[K, V]{Key: key, Value: m[key]}
	}
	return sorted
}

// Next returns the first activation of cronExp after curr.
func Next(curr time.Time, cronExp string) (time.Time, error) {
	scheduler, err := ParseCron(cronExp)
	if err != nil {
		return time.Time{}, err
	}

	return scheduler.Next(curr), nil
}

func ParseCron(cronExp string) (cron.Schedule, error) {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(cronExp)
}

func RemoveWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeFingerprint strips spaces and an 0x prefix and upper cases
// the rest, "0123 4567 89ab" becomes "0123456789AB".
func NormalizeFingerprint(s string) string {
	s = RemoveWhitespace(s)
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	return strings.ToUpper(s)
}

// IsFingerprint reports whether s is a hex key id or fingerprint of 8,
// 16 or 40 digits.
func IsFingerprint(s string) bool {
	switch len(s) {
	case 8, 16, 40:
	default:
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

func DeferAndLog(f func() error) {
	if err := f(); err != nil {
		slog.Warn("defer failed", "err", err)
	}
}
