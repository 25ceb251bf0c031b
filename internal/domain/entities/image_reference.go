package entities

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docker/distribution/reference"
)

// DefaultTag is the tag an image reference carries when none is written.
const DefaultTag = "latest"

// fromLinePattern captures the image token of a base-image instruction,
// skipping any leading flags such as --platform.
var fromLinePattern = regexp.MustCompile(`(?i)^\s*FROM\s+(?:--\S+\s+)*(\S+)`)

// ImageReference identifies a container image by repository and tag.
// Repository keeps the name as written (registry prefix included); comparisons
// go through SameRepository, which normalises both sides.
type ImageReference struct {
	Repository string
	Tag        string
	Digest     string
}

// NewImageReference builds a validated reference from a repository name and an explicit tag.
func NewImageReference(repository, tag string) (ImageReference, error) {
	named, err := reference.ParseNormalizedNamed(repository)
	if err != nil {
		return ImageReference{}, fmt.Errorf("invalid image name %q: %w", repository, err)
	}
	if _, isTagged := named.(reference.Tagged); isTagged {
		return ImageReference{}, fmt.Errorf("image name %q must not carry a tag", repository)
	}
	if _, tagErr := reference.WithTag(named, tag); tagErr != nil {
		return ImageReference{}, fmt.Errorf("invalid image tag %q: %w", tag, tagErr)
	}
	return ImageReference{Repository: repository, Tag: tag}, nil
}

// ParseImageReference parses an `image[:tag][@digest]` token. It returns false for
// tokens that are not literal image names, e.g. build-arg expansions like `$BASE`.
func ParseImageReference(token string) (ImageReference, bool) {
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, "${}") {
		return ImageReference{}, false
	}

	named, err := reference.ParseNormalizedNamed(token)
	if err != nil {
		return ImageReference{}, false
	}

	ref := ImageReference{Repository: writtenRepository(token), Tag: DefaultTag}
	if tagged, ok := named.(reference.Tagged); ok {
		ref.Tag = tagged.Tag()
	}
	if digested, ok := named.(reference.Digested); ok {
		ref.Digest = digested.Digest().String()
	}
	return ref, true
}

// ParseFromInstruction extracts the image referenced by a single `FROM` line.
func ParseFromInstruction(line string) (ImageReference, bool) {
	match := fromLinePattern.FindStringSubmatch(line)
	if match == nil {
		return ImageReference{}, false
	}
	return ParseImageReference(match[1])
}

// String renders the reference as `repository:tag`.
func (r ImageReference) String() string {
	if r.Tag == "" {
		return r.Repository
	}
	return r.Repository + ":" + r.Tag
}

// WithTag returns a copy pointing at tag. The digest is dropped since it pins the old tag.
func (r ImageReference) WithTag(tag string) ImageReference {
	return ImageReference{Repository: r.Repository, Tag: tag}
}

// Familiar returns the reference with its repository in short form (`ubuntu`
// instead of `docker.io/library/ubuntu`).
func (r ImageReference) Familiar() ImageReference {
	return ImageReference{Repository: familiarName(r.Repository), Tag: r.Tag, Digest: r.Digest}
}

// SameRepository reports whether both references name the same image, ignoring tags.
func (r ImageReference) SameRepository(other ImageReference) bool {
	if r.Repository == "" || other.Repository == "" {
		return false
	}
	return familiarName(r.Repository) == familiarName(other.Repository)
}

func familiarName(repository string) string {
	named, err := reference.ParseNormalizedNamed(repository)
	if err != nil {
		return repository
	}
	return reference.FamiliarName(named)
}

// writtenRepository strips the tag and digest from token, keeping the name as written.
func writtenRepository(token string) string {
	if at := strings.Index(token, "@"); at >= 0 {
		token = token[:at]
	}
	lastSlash := strings.LastIndex(token, "/")
	if lastColon := strings.LastIndex(token, ":"); lastColon > lastSlash {
		token = token[:lastColon]
	}
	return token
}
