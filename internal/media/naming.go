package media

import (
	"strconv"
	"strings"
)

// Separator sits between the custom name and the position of a file
// within a multi-file batch.
type Separator string

const (
	// PreviewSeparator is used for names shown before saving: "clip 2.mp4".
	PreviewSeparator Separator = " "
	// DiskSeparator is used for names files are saved under: "clip_2.mp4".
	DiskSeparator Separator = "_"
)

// ComputeName returns the output name of the file at index within a batch of
// batchSize files. An empty template keeps the original name. Otherwise the
// template gets a positional suffix when the batch holds more than one file,
// followed by the original extension. Originals without an extension get
// no trailing dot.
func ComputeName(original, template string, index, batchSize int, sep Separator) string {
	if template == "" {
		return original
	}

	var b strings.Builder
	b.WriteString(template)
	if batchSize > 1 {
		b.WriteString(string(sep))
		b.WriteString(strconv.Itoa(index + 1))
	}
	if ext := Extension(original); ext != "" {
		b.WriteByte('.')
		b.WriteString(ext)
	}
	return b.String()
}

// PreviewName is ComputeName with the preview separator.
func PreviewName(original, template string, index, batchSize int) string {
	return ComputeName(original, template, index, batchSize, PreviewSeparator)
}

// DiskName is ComputeName with the on-disk separator.
func DiskName(original, template string, index, batchSize int) string {
	return ComputeName(original, template, index, batchSize, DiskSeparator)
}

// Extension returns the text after the last dot of name, or "" if there is none.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i+1:]
}
