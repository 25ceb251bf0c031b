package entities

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Action is the outcome of comparing the tag found in a Dockerfile against the target tag.
type Action int

const (
	// NoChange leaves the instruction untouched.
	NoChange Action = iota
	// Update rewrites the instruction to the target tag.
	Update
)

func (a Action) String() string {
	if a == Update {
		return "update"
	}
	return "no-change"
}

// DecideTag decides whether the instruction referencing current must move to target.
// A forced decision always updates, even when both tags are already equal. References
// to a different image never update.
func DecideTag(current, target ImageReference, forced bool) Action {
	if !current.SameRepository(target) {
		return NoChange
	}
	if forced || current.Tag != target.Tag {
		return Update
	}
	return NoChange
}

// TagDirection describes the move from currentTag to targetTag for pull request wording:
// "upgrade" or "downgrade" between semantic versions, "re-stamp" for equal tags,
// and "change" otherwise.
func TagDirection(currentTag, targetTag string) string {
	if currentTag == targetTag {
		return "re-stamp"
	}

	current := canonicalVersion(currentTag)
	target := canonicalVersion(targetTag)
	if !semver.IsValid(current) || !semver.IsValid(target) {
		return "change"
	}

	switch semver.Compare(target, current) {
	case 1:
		return "upgrade"
	case -1:
		return "downgrade"
	default:
		return "re-stamp"
	}
}

func canonicalVersion(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}
