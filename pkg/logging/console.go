package logging

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// levelStyles are resolved against the destination writer, so a file or
// pipe gets plain text and a terminal gets color.
type levelStyles struct {
	debug lipgloss.Style
	info  lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	dim   lipgloss.Style
}

func newLevelStyles(w io.Writer) levelStyles {
	r := lipgloss.NewRenderer(w)
	badge := r.NewStyle().Bold(true).Width(5)
	return levelStyles{
		debug: badge.Foreground(lipgloss.Color("#888888")),
		info:  badge.Foreground(lipgloss.Color("#00FF00")),
		warn:  badge.Foreground(lipgloss.Color("#FFFF00")),
		err:   badge.Foreground(lipgloss.Color("#FF0000")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

func (s levelStyles) badge(level Level) string {
	switch level {
	case DebugLevel:
		return s.debug.Render(level.String())
	case WarnLevel:
		return s.warn.Render(level.String())
	case ErrorLevel:
		return s.err.Render(level.String())
	default:
		return s.info.Render(level.String())
	}
}

// NewConsoleLogger creates a logger that renders colored single-line records:
//
//	2025-01-02 15:04:05 INFO  GFD membership changed members="S1 S2"
func NewConsoleLogger(writer io.Writer, level Level) *ConsoleLogger {
	return &ConsoleLogger{
		core:   &core{writer: writer, level: level},
		styles: newLevelStyles(writer),
		fields: make([]Field, 0),
	}
}

func (l *ConsoleLogger) log(level Level, msg string, fields ...Field) {
	if !l.core.enabled(level) {
		return
	}
	styles := l.styles

	var b strings.Builder
	b.WriteString(styles.dim.Render(time.Now().Format("2006-01-02 15:04:05")))
	b.WriteByte(' ')
	b.WriteString(styles.badge(level))
	b.WriteByte(' ')
	b.WriteString(msg)

	fieldMap := mergeFields(l.fields, fields)
	keys := make([]string, 0, len(fieldMap))
	for k := range fieldMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, formatValue(fieldMap[k]))
	}
	b.WriteByte('\n')

	l.core.write([]byte(b.String()))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		if strings.ContainsAny(val, " \t\"") {
			return fmt.Sprintf("%q", val)
		}
		return val
	default:
		return fmt.Sprint(val)
	}
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

func (l *ConsoleLogger) With(fields ...Field) Logger {
	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)
	return &ConsoleLogger{core: l.core, styles: l.styles, fields: newFields}
}

func (l *ConsoleLogger) SetLevel(level Level) { l.core.setLevel(level) }
func (l *ConsoleLogger) GetLevel() Level      { return l.core.getLevel() }
