package fulfillment

import (
	"strings"

	"github.com/compeng-bot/compeng-bot-go/internal/resolver"
)

// FormatTitles renders one "CODE:\tTitle" line per entry.
func FormatTitles(entries []resolver.Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Key+":\t"+e.Value)
	}
	return strings.Join(lines, "\n")
}

// FormatOutlines renders one "CODE:\nOutline" block per entry.
func FormatOutlines(entries []resolver.Entry) string {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, e.Key+":\n"+e.Value)
	}
	return strings.Join(blocks, "\n")
}

// FormatCourseLecturers renders a "CODE:" header followed by one name per line.
func FormatCourseLecturers(entries []resolver.ListEntry) string {
	return formatList(entries, "\n")
}

// FormatLecturerCourses renders a "Name:" header followed by one comma-joined line of codes.
func FormatLecturerCourses(entries []resolver.ListEntry) string {
	return formatList(entries, ", ")
}

func formatList(entries []resolver.ListEntry, sep string) string {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		body := e.Fallback
		if len(e.Values) > 0 {
			body = strings.Join(e.Values, sep)
		}
		blocks = append(blocks, e.Key+":\n"+body)
	}
	return strings.Join(blocks, "\n")
}
