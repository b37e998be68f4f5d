package ingest

import (
	"regexp"
	"strings"
)

// knownHeading matches the section titles the evaluators care about, on a
// line of their own with optional trailing colon.
var knownHeading = regexp.MustCompile(`(?i)^#{0,4}\s*(executive summary|summary|introduction|overview|approach|methodology|proposed solution|solution|project timeline|timeline|schedule|team|resources|staffing|technical approach|technology|migration approach|migration|assessment|analysis|operational support|operations)\s*:?\s*$`)

// upperHeading matches a shouting-case line that likely starts an unrelated
// section and therefore ends the current one.
var upperHeading = regexp.MustCompile(`^\s*[A-Z][^a-z]*$`)

// ExtractSections pulls named sections out of the document text. A section
// runs from its heading line to the next heading (known or upper-case) or
// the end of the document. Later occurrences of a heading overwrite earlier
// ones.
func ExtractSections(content string) map[string]string {
	sections := make(map[string]string)
	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		match := knownHeading.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if match == nil {
			continue
		}
		name := strings.ToLower(match[1])
		var body []string
		j := i + 1
		for ; j < len(lines); j++ {
			trimmed := strings.TrimSpace(lines[j])
			if trimmed != "" && (knownHeading.MatchString(trimmed) || upperHeading.MatchString(trimmed)) {
				break
			}
			body = append(body, lines[j])
		}
		if text := strings.TrimSpace(strings.Join(body, "\n")); text != "" {
			sections[name] = text
		}
		i = j - 1
	}
	return sections
}
