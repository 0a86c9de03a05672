package tle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseThreeLine(t *testing.T) {
	entries, err := Parse(strings.NewReader(issRecord+hubbleRecord), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	iss := entries[0]
	if iss.NORADID != 25544 || iss.Name != "ISS (ZARYA)" {
		t.Errorf("entry 0 = %d %q", iss.NORADID, iss.Name)
	}
	if want := time.Date(2025, 2, 14, 4, 19, 40, 0, time.UTC); !iss.Epoch.Equal(want) {
		t.Errorf("epoch = %v, want %v", iss.Epoch, want)
	}
	if !strings.HasPrefix(iss.Line1, "1 25544U") || !strings.HasPrefix(iss.Line2, "2 25544") {
		t.Errorf("lines not preserved: %q / %q", iss.Line1, iss.Line2)
	}
}

// Element-set history files are bare line pairs, one per epoch.
func TestParseTwoLineHistory(t *testing.T) {
	history := "" +
		"1 25544U 98067A   24010.50000000  .00016717  00000+0  30099-3 0  9997\n" +
		"2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057\n" +
		"\r\n" +
		"1 25544U 98067A   24011.50000000  .00016717  00000+0  30099-3 0  9998\r\n" +
		"2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057\r\n"

	entries, err := Parse(strings.NewReader(history), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "25544" {
		t.Errorf("unnamed entry name = %q, want catalog number", entries[0].Name)
	}
	if !entries[1].Epoch.After(entries[0].Epoch) {
		t.Errorf("epochs out of order: %v, %v", entries[0].Epoch, entries[1].Epoch)
	}
}

func TestParseSkipsMalformed(t *testing.T) {
	input := "" +
		"ORPHAN LINE 1 ONLY\n" +
		"1 99999U 00000A   24010.50000000  .00000000  00000+0  00000+0 0  9995\n" +
		"2 11111  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495052\n" +
		"BAD EPOCH\n" +
		"1 11111U 00000A   24ABC.50000000  .00000000  00000+0  00000+0 0  9994\n" +
		"BROKEN PAIR\n" +
		"1 22222U 00000A   24010.5000\n" +
		"2 22222  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057\n" +
		issRecord

	entries, err := Parse(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// First pair parses (line 2 catalog number is not cross-checked); the bad
	// epoch has no line 2; the truncated line 1 is rejected.
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}
	if entries[0].NORADID != 99999 || entries[0].Name != "ORPHAN LINE 1 ONLY" {
		t.Errorf("entry 0 = %d %q", entries[0].NORADID, entries[0].Name)
	}
	if entries[1].NORADID != 25544 || entries[1].Name != "ISS (ZARYA)" {
		t.Errorf("entry 1 = %d %q", entries[1].NORADID, entries[1].Name)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.tle")
	if err := os.WriteFile(path, []byte(issRecord), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := ParseFile(path, testLogger)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.tle"), testLogger); err == nil {
		t.Error("ParseFile on missing file succeeded")
	}
}

func TestParseLines(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(issRecord), "\n")
	e, err := ParseLines(lines[0], lines[1], lines[2])
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	if e.NORADID != 25544 {
		t.Errorf("NORADID = %d", e.NORADID)
	}
	if _, err := ParseLines("x", lines[2], lines[1]); err == nil {
		t.Error("ParseLines with swapped lines succeeded")
	}
}

func TestChecksum(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(issRecord+hubbleRecord), "\n")
	for _, line := range lines {
		if len(line) < 69 {
			continue
		}
		if got, want := Checksum(line), int(line[68]-'0'); got != want {
			t.Errorf("Checksum(%q) = %d, want %d", line, got, want)
		}
	}
	// Minus signs count as 1; letters, spaces, dots and plus signs as 0.
	if got := Checksum("1 -A+.-"); got != 3 {
		t.Errorf("Checksum = %d, want 3", got)
	}
}

func TestParseSkipsBadChecksum(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(issRecord), "\n")
	corrupt := func(line string) string {
		return line[:68] + string('0'+byte((int(line[68]-'0')+1)%10))
	}

	tests := []struct {
		name         string
		line1, line2 string
	}{
		{"line 1", corrupt(lines[1]), lines[2]},
		{"line 2", lines[1], corrupt(lines[2])},
		{"missing checksum column", lines[1][:68], lines[2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "ISS (ZARYA)\n" + tt.line1 + "\n" + tt.line2 + "\n" + hubbleRecord
			entries, err := Parse(strings.NewReader(input), testLogger)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(entries) != 1 || entries[0].NORADID != 20580 {
				t.Errorf("got %+v, want only the valid HST entry", entries)
			}
			if _, err := ParseLines("ISS (ZARYA)", tt.line1, tt.line2); err == nil {
				t.Error("ParseLines accepted a bad checksum")
			}
		})
	}
}
