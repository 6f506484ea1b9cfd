// Package listing turns `ls -la` output from an agent into file entries.
//
// The grammar is the GNU long format: eight whitespace separated columns
// followed by the name. Column layout and the date format depend on the
// remote locale, so odd lines are dropped rather than reported.
package listing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	File Kind = iota
	Directory
	Link
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case Link:
		return "link"
	default:
		return "file"
	}
}

// Entry is one row of a listing.
type Entry struct {
	Name        string
	Path        string
	Kind        Kind
	Size        int64
	Permissions string
	Modified    string
}

func (e Entry) IsDir() bool { return e.Kind == Directory }

// ErrLine marks a listing line that could not be fully parsed.
var ErrLine = errors.New("listing: malformed line")

const (
	minFields  = 9
	linkMarker = " -> "
)

// Command returns the shell command whose output Parse understands.
func Command(path string) string {
	return "ls -la " + Quote(Clean(path))
}

// Parse reads listing output for the directory parent. The first line is
// the "total" summary and is skipped.
func Parse(output, parent string) []Entry {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) < 2 {
		return nil
	}
	entries := make([]Entry, 0, len(lines)-1)
	for _, line := range lines[1:] {
		e, ok, _ := parseLine(line, parent)
		if ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// parseLine returns ok=false for lines that produce no entry. A non-nil
// error with ok=true means the entry was kept with a degraded field.
func parseLine(line, parent string) (Entry, bool, error) {
	fields := strings.Fields(line)
	if len(fields) < minFields {
		return Entry{}, false, fmt.Errorf("%w: %d fields", ErrLine, len(fields))
	}
	// device nodes print "major, minor" in the size column
	if len(fields) > minFields && strings.HasSuffix(fields[4], ",") {
		fields = append(fields[:5:5], fields[6:]...)
	}

	e := Entry{
		Permissions: fields[0],
		Modified:    strings.Join(fields[5:8], " "),
		Name:        strings.Join(fields[8:], " "),
	}
	switch fields[0][0] {
	case 'd':
		e.Kind = Directory
	case 'l':
		e.Kind = Link
	}
	if e.Kind == Link {
		if i := strings.Index(e.Name, linkMarker); i >= 0 {
			e.Name = e.Name[:i]
		}
	}
	if e.Name == "." || e.Name == ".." {
		return Entry{}, false, nil
	}
	e.Path = JoinPath(parent, e.Name)

	var err error
	e.Size, err = strconv.ParseInt(fields[4], 10, 64)
	if err != nil || e.Size < 0 {
		e.Size = 0
		return e, true, fmt.Errorf("%w: size %q", ErrLine, fields[4])
	}
	return e, true, nil
}
