package service

import (
	"fmt"
	"strings"
)

// BuildContext renders retrieved chunks into a prompt context string. Each
// chunk becomes a "Source: {source_id}\n{text}" block and blocks are joined
// with a blank line, preserving the input order.
//
// maxChars caps the result length in runes. Whole blocks are appended while
// they fit; the first block that would overflow is cut mid-block so the
// result is exactly maxChars long, and everything after it is dropped.
// maxChars <= 0 disables the cap.
func BuildContext(chunks []*RetrievedChunk, maxChars int) string {
	var b strings.Builder
	written := 0

	for i, chunk := range chunks {
		block := fmt.Sprintf("Source: %s\n%s", chunk.Metadata.SourceID, chunk.Content)
		if i > 0 {
			block = "\n\n" + block
		}

		if maxChars <= 0 {
			b.WriteString(block)
			continue
		}

		runes := []rune(block)
		remaining := maxChars - written
		if remaining <= 0 {
			break
		}
		if len(runes) > remaining {
			b.WriteString(string(runes[:remaining]))
			written = maxChars
			break
		}
		b.WriteString(block)
		written += len(runes)
	}

	return b.String()
}
