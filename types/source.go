package types

import (
	"sort"
	"strconv"
	"strings"
)

// Source is the text of one Kitten source file. It converts byte offsets
// into the "<line>.<col>" form used in diagnostics and assertion reports.
type Source struct {
	Path string
	Text string

	lines []int // offset of each line start
}

// NewSource creates a Source for text read from path.
func NewSource(path, text string) *Source {
	s := &Source{Path: path, Text: text, lines: []int{0}}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			s.lines = append(s.lines, i+1)
		}
	}
	return s
}

// LineCol returns the 1-based line and column of offset. Offsets past the
// end are clamped to the end of the text.
func (s *Source) LineCol(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.Text) {
		offset = len(s.Text)
	}
	i := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > offset }) - 1
	return i + 1, offset - s.lines[i] + 1
}

// Position formats offset as "<line>.<col>". A negative offset has no
// position and yields the empty string.
func (s *Source) Position(offset int) string {
	if offset < 0 {
		return ""
	}
	line, col := s.LineCol(offset)
	return strconv.Itoa(line) + "." + strconv.Itoa(col)
}

// Base returns the file name without directories and extension.
func (s *Source) Base() string {
	name := s.Path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}
