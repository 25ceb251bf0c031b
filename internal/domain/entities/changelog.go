package entities

import (
	"fmt"
	"slices"
	"strings"
)

// ChangelogPath is the file the submitter amends when changelog entries are enabled.
const ChangelogPath = "CHANGELOG.md"

const (
	unreleasedHeading = "## [Unreleased]"
	changedHeading    = "### Changed"
	releaseHeadPrefix = "## ["
	bulletPrefix      = "- "
)

// unreleasedSection holds line indexes of the "## [Unreleased]" block of a
// Keep-a-Changelog document. changed is -1 when there is no "### Changed" heading.
type unreleasedSection struct {
	heading int
	end     int
	changed int
}

// BaseImageChangelogEntry renders the bullet describing a base image move.
func BaseImageChangelogEntry(tasks []UpdateTask) string {
	if len(tasks) == 0 {
		return ""
	}
	target := tasks[0].Target

	var previous []string
	for _, task := range tasks {
		if !slices.Contains(previous, task.Current.Tag) {
			previous = append(previous, task.Current.Tag)
		}
	}

	return fmt.Sprintf(
		"%schanged the base image `%s` from `%s` to `%s`",
		bulletPrefix, target.Familiar().Repository, strings.Join(previous, "`, `"), target.Tag,
	)
}

// AddChangelogEntries appends entries under "### Changed" of the Unreleased section,
// creating the subsection when missing. The second result is false when content has no
// Unreleased section and was returned unchanged.
func AddChangelogEntries(content string, entries []string) (string, bool) {
	if len(entries) == 0 {
		return content, false
	}

	lines := strings.Split(content, "\n")
	section, ok := findUnreleasedSection(lines)
	if !ok {
		return content, false
	}

	var insertAt int
	var block []string
	if section.changed >= 0 {
		insertAt = lastBulletIndex(lines, section.changed, section.end) + 1
		block = entries
	} else {
		insertAt = section.heading + 1
		block = append([]string{"", changedHeading, ""}, entries...)
	}

	result := make([]string, 0, len(lines)+len(block))
	result = append(result, lines[:insertAt]...)
	result = append(result, block...)
	result = append(result, lines[insertAt:]...)
	return strings.Join(result, "\n"), true
}

func findUnreleasedSection(lines []string) (unreleasedSection, bool) {
	section := unreleasedSection{heading: -1, end: len(lines), changed: -1}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case section.heading < 0:
			if trimmed == unreleasedHeading {
				section.heading = i
			}
		case strings.HasPrefix(trimmed, releaseHeadPrefix):
			section.end = i
			return section, true
		case trimmed == changedHeading && section.changed < 0:
			section.changed = i
		}
	}

	return section, section.heading >= 0
}

// lastBulletIndex returns the index of the last bullet below the heading at from,
// stopping at the first line that is neither blank nor a bullet.
func lastBulletIndex(lines []string, from, end int) int {
	last := from
	for i := from + 1; i < end; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, bulletPrefix) {
			break
		}
		last = i
	}
	return last
}
