package upload

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"fileflow/internal/config"
)

// sanitizeName strips non-printable characters and replaces the ones object
// metadata and keys cannot carry.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case !unicode.IsPrint(r):
			continue
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "file"
	}
	return out
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// singleUploadKey builds files/<base>_<unixmilli>_<id8><ext>.
func singleUploadKey(fileName string, now time.Time) string {
	name := sanitizeName(fileName)
	ext := path.Ext(name)
	base := strings.ReplaceAll(strings.TrimSuffix(name, ext), " ", "_")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s%s_%d_%s%s", config.SingleUploadPrefix, base, now.UnixMilli(), shortID(), ext)
}

// multipartKey builds videos/<name>_<id8>.
func multipartKey(fileName string) string {
	name := strings.ReplaceAll(sanitizeName(fileName), " ", "_")
	return fmt.Sprintf("%s%s_%s", config.MultipartPrefix, name, shortID())
}
