package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one log line split into its parts. Lines that do not carry a
// level tag keep everything in Message.
type Entry struct {
	Time    string
	Level   string
	Message string
}

var linePattern = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}(?:\.\d+)?)?\s*\[(ERROR|WARN|INFO|DEBUG|TRACE)\]\s?(.*)$`)

// Parse splits a line written by the logging package ("2026/01/02 15:04:05
// [WARN] message") into an Entry. Level is lower case.
func Parse(line string) Entry {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Entry{Message: line}
	}
	return Entry{Time: m[1], Level: strings.ToLower(m[2]), Message: m[3]}
}

// ParseLines applies Parse to every line.
func ParseLines(lines []string) []Entry {
	entries := make([]Entry, len(lines))
	for i, line := range lines {
		entries[i] = Parse(line)
	}
	return entries
}

// Problems keeps only warn and error entries, oldest first.
func Problems(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Level == "warn" || e.Level == "error" {
			out = append(out, e)
		}
	}
	return out
}
