package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// defaultFilename is substituted when sanitizing a client-supplied
// filename leaves nothing usable (spec §4.3 step 5).
const defaultFilename = "blob"

// defaultMIMEType is returned when content sniffing can't determine a
// type, and is the fixed sentinel for the empty-content case (spec §9).
const defaultMIMEType = "application/octet-stream"

// Metadata is the derived, write-once-per-reference sidecar data spec
// §3 describes: filename, sniffed MIME type, size, and creation time.
type Metadata struct {
	Filename string    `toml:"filename"`
	MIMEType string    `toml:"mime_type"`
	Size     int64     `toml:"size"`
	Created  time.Time `toml:"created"`
}

// writeMetadata persists m to path as TOML. It is called only once per
// reference, as the last step of a successful Add (spec §5: metadata is
// written last so its presence signals a fully committed blob).
func writeMetadata(path string, m Metadata) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating metadata file %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("writing metadata file %s: %w", path, err)
	}
	return nil
}

// readMetadata loads the sidecar metadata for a committed blob.
func readMetadata(path string) (Metadata, error) {
	var m Metadata
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Metadata{}, fmt.Errorf("reading metadata file %s: %w", path, err)
	}
	return m, nil
}

// controlCharPattern matches ASCII control characters, which have no
// business in a filename. Path components are stripped separately by
// filepath.Base in sanitizeFilename.
var controlCharPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// sanitizeFilename strips path separators and control characters from a
// client-supplied filename (spec §4.3 step 5), falling back to a default
// when nothing usable remains.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = controlCharPattern.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return defaultFilename
	}
	return name
}
