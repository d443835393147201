// Package media holds the pure rules applied to picked files: which media
// types are accepted and what a file is called once saved.
package media

import (
	"strings"

	"github.com/rohits-web03/mediadrop/internal/models"
)

var acceptedPrefixes = []string{"image/", "video/"}

// Accepts reports whether a declared media type is an image or a video.
func Accepts(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	for _, p := range acceptedPrefixes {
		if strings.HasPrefix(mt, p) {
			return true
		}
	}
	return false
}

// Validate splits candidates into the accepted files, in their original
// order, and a count of rejected ones. A non-zero rejected count means the
// whole batch must be reported as invalid even though accepted files proceed.
func Validate(candidates []models.FileHandle) (accepted []models.FileHandle, rejected int) {
	accepted = make([]models.FileHandle, 0, len(candidates))
	for _, c := range candidates {
		if Accepts(c.Type) {
			accepted = append(accepted, c)
		} else {
			rejected++
		}
	}
	return accepted, rejected
}
