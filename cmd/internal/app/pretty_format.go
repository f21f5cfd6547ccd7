package app

import (
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBright  = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"

	logWidthEnv     = "GUESTLIST_LOG_WIDTH"
	defaultLogWidth = 100
	minLogWidth     = 40
	ellipsis        = "…"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// visualLen is the printed width of s in runes, ignoring color escapes.
func visualLen(s string) int {
	return utf8.RuneCountInString(stripANSI(s))
}

// terminalWidth prefers GUESTLIST_LOG_WIDTH, then COLUMNS. Values below 40 are ignored.
func (h *prettyHandler) terminalWidth() int {
	for _, key := range []string{logWidthEnv, "COLUMNS"} {
		n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
		if err == nil && n >= minLogWidth {
			return n
		}
	}
	return defaultLogWidth
}

// wrapSegments packs segments into lines no wider than width. Continuation lines start
// with indent. A segment that cannot fit on its own is truncated with an ellipsis.
func wrapSegments(segments []string, sep string, width int, indent string) []string {
	var (
		lines []string
		cur   strings.Builder
		curW  int
	)
	flush := func() {
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
			curW = 0
		}
	}

	for _, seg := range segments {
		segW := visualLen(seg)
		if curW > 0 && curW+visualLen(sep)+segW <= width {
			cur.WriteString(sep)
			cur.WriteString(seg)
			curW += visualLen(sep) + segW
			continue
		}
		if curW > 0 {
			flush()
		}
		prefix := ""
		if len(lines) > 0 {
			prefix = indent
		}
		room := width - visualLen(prefix)
		if segW > room {
			seg = truncateVisual(seg, room)
			segW = visualLen(seg)
		}
		cur.WriteString(prefix)
		cur.WriteString(seg)
		curW = visualLen(prefix) + segW
	}
	flush()
	return lines
}

func truncateVisual(s string, width int) string {
	plain := []rune(stripANSI(s))
	if width <= 0 {
		return ""
	}
	if len(plain) <= width {
		return string(plain)
	}
	return string(plain[:width-1]) + ellipsis
}

func paint(s, color string, on bool) string {
	if !on || s == "" || color == "" {
		return s
	}
	return color + s + ansiReset
}

func levelTag(level slog.Level, color bool) string {
	switch {
	case level >= slog.LevelError:
		return paint("ERROR", ansiRed, color)
	case level >= slog.LevelWarn:
		return paint("WARN ", ansiYellow, color)
	case level < slog.LevelInfo:
		return paint("DEBUG", ansiMagenta, color)
	default:
		return paint("INFO ", ansiBlue, color)
	}
}

func statusColor(code int) string {
	switch {
	case code >= 500:
		return ansiRed
	case code >= 400:
		return ansiYellow
	case code >= 200 && code < 300:
		return ansiGreen
	default:
		return ""
	}
}
