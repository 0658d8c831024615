// Package chunkedfile reads test inputs made of several Spiral programs
// and the diagnostics each is expected to produce.
//
// Chunks are separated by "---" lines. A line containing "###" expects a
// diagnostic on that line: the rest of the line is a quoted regular
// expression the message must match. Because "###" sits in a comment the
// chunk stays valid source:
//
//	var x: Int = "hi"; // ### "cannot assign String to Int"
//	---
//	if (1) {} // ### "condition must be bool"
//
// A line may carry several expectations, one per "###".
package chunkedfile

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Reporter is implemented by *testing.T.
type Reporter interface {
	Errorf(format string, args ...any)
}

// A Chunk is one program of a chunked file. Source is padded with leading
// newlines so that its line numbers match the file's.
type Chunk struct {
	Source   string
	filename string
	report   Reporter
	want     map[int][]*regexp.Regexp
}

// Read loads filename and splits it into chunks, reporting malformed
// expectations through report.
func Read(filename string, report Reporter) []Chunk {
	data, err := os.ReadFile(filename)
	if err != nil {
		report.Errorf("%s", err)
		return nil
	}
	return split(filename, strings.ReplaceAll(string(data), "\r\n", "\n"), report)
}

func split(filename, data string, report Reporter) []Chunk {
	var chunks []Chunk
	line := 1
	for _, text := range strings.Split(data, "\n---\n") {
		chunk := Chunk{
			Source:   strings.Repeat("\n", line-1) + text,
			filename: filename,
			report:   report,
			want:     make(map[int][]*regexp.Regexp),
		}
		for _, l := range strings.Split(text, "\n") {
			parts := strings.Split(l, "###")
			for _, part := range parts[1:] {
				rest := strings.TrimSpace(part)
				pattern, err := strconv.Unquote(rest)
				if err != nil {
					report.Errorf("\n%s:%d: not a quoted regexp: %s", filename, line, rest)
					continue
				}
				rx, err := regexp.Compile(pattern)
				if err != nil {
					report.Errorf("\n%s:%d: %v", filename, line, err)
					continue
				}
				chunk.want[line] = append(chunk.want[line], rx)
			}
			line++
		}
		line++ // the separator
		chunks = append(chunks, chunk)
	}
	return chunks
}

// GotError records a diagnostic at line. It must match one of the line's
// outstanding expectations, which it then consumes.
func (c *Chunk) GotError(line int, msg string) {
	wants := c.want[line]
	for i, rx := range wants {
		if rx.MatchString(msg) {
			c.want[line] = append(wants[:i:i], wants[i+1:]...)
			return
		}
	}
	if len(wants) > 0 {
		c.report.Errorf("\n%s:%d: error %q does not match any of %s", c.filename, line, msg, patterns(wants))
		return
	}
	c.report.Errorf("\n%s:%d: unexpected error: %s", c.filename, line, msg)
}

// Done reports every expectation that no diagnostic consumed.
func (c *Chunk) Done() {
	for line, wants := range c.want {
		for _, rx := range wants {
			c.report.Errorf("\n%s:%d: expected error matching %q", c.filename, line, rx)
		}
	}
}

func patterns(rxs []*regexp.Regexp) string {
	quoted := make([]string, len(rxs))
	for i, rx := range rxs {
		quoted[i] = fmt.Sprintf("%q", rx)
	}
	return strings.Join(quoted, ", ")
}
