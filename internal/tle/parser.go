package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Parse reads element sets from r. Both the three-line layout (name line
// followed by lines 1 and 2) and bare two-line records are accepted, mixed
// freely. Lines that do not belong to a 1/2 pair are skipped, as are pairs
// that fail the checksum or have an unreadable catalog number or epoch; each
// skip is logged at warn.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var (
		entries []TLEEntry
		name    string
	)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, "1 ") {
			if strings.HasPrefix(line, "2 ") {
				logger.Warn("skipping orphan TLE line 2", "line_index", i)
				name = ""
				continue
			}
			name = strings.TrimSpace(strings.TrimPrefix(line, "0 "))
			continue
		}
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "2 ") {
			logger.Warn("skipping TLE line 1 without line 2", "line_index", i, "name", name)
			name = ""
			continue
		}

		entry, err := parseRecord(name, line, lines[i+1])
		if err != nil {
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name, "error", err)
		} else {
			entries = append(entries, entry)
		}
		name = ""
		i++
	}

	return entries, nil
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string, logger *slog.Logger) ([]TLEEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening TLE file: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f, logger)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// ParseLines builds a single entry from a line pair, as supplied by API
// callers that pass raw element sets.
func ParseLines(name, line1, line2 string) (TLEEntry, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
		return TLEEntry{}, fmt.Errorf("lines must start with \"1 \" and \"2 \"")
	}
	return parseRecord(strings.TrimSpace(name), line1, line2)
}

// lineLen is the fixed width of both element-set lines, checksum included.
const lineLen = 69

// Checksum returns the modulo-10 checksum of a TLE line: the sum of its
// digits over columns 1-68, with each minus sign counting as 1.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < lineLen-1; i++ {
		switch c := line[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

func checkLine(n int, line string) error {
	if len(line) < lineLen {
		return fmt.Errorf("line %d too short (%d chars)", n, len(line))
	}
	want := line[lineLen-1]
	if want < '0' || want > '9' || int(want-'0') != Checksum(line) {
		return fmt.Errorf("line %d checksum mismatch: have %c, computed %d", n, want, Checksum(line))
	}
	return nil
}

func parseRecord(name, line1, line2 string) (TLEEntry, error) {
	if err := checkLine(1, line1); err != nil {
		return TLEEntry{}, err
	}
	if err := checkLine(2, line2); err != nil {
		return TLEEntry{}, err
	}

	// catalog number: columns 3-7
	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid NORAD ID %q: %w", noradStr, err)
	}

	// epoch: columns 19-32
	epoch, err := ParseEpoch(line1[18:32])
	if err != nil {
		return TLEEntry{}, err
	}

	if name == "" {
		name = strconv.Itoa(noradID)
	}

	return TLEEntry{
		NORADID: noradID,
		Name:    name,
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, nil
}
