package entities

import (
	"fmt"

	"github.com/google/uuid"
)

// IdempotencyMarker is embedded in every pull request this tool opens. It is a
// fixed public identifier, stable across runs and releases, never a secret.
const IdempotencyMarker = "5b8f0c3e-2d7a-4e91-b6c4-9a1e7d3f2c58"

var markerID = uuid.MustParse(IdempotencyMarker) //nolint:gochecknoglobals // parsed once

// Fingerprint returns the marker scoped to a target image. Campaigns for different
// target images against the same repository therefore never match each other.
func Fingerprint(target ImageReference) string {
	return fmt.Sprintf("<!-- imagebump:%s target=%s -->", markerID, target.Familiar().String())
}
