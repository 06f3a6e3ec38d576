package service

import (
	"fmt"

	"github.com/testloom-ai/testloom/internal/domain"
)

// ChunkConfig controls the fixed-size sliding window used to split documents
// before embedding.
type ChunkConfig struct {
	ChunkSize int
	Overlap   int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 1000,
		Overlap:   200,
	}
}

// Validate checks that the window parameters describe a terminating split.
func (c ChunkConfig) Validate() error {
	if c.Overlap < 0 {
		return domain.NewDomainError(domain.ErrCodeInvalidConfiguration,
			fmt.Sprintf("chunk overlap must not be negative, got %d", c.Overlap))
	}
	if c.ChunkSize <= c.Overlap {
		return domain.NewDomainError(domain.ErrCodeInvalidConfiguration,
			fmt.Sprintf("chunk size %d must be greater than overlap %d", c.ChunkSize, c.Overlap))
	}
	return nil
}

// SplitText splits text into character windows of cfg.ChunkSize runes where
// consecutive windows share cfg.Overlap runes. The split is deterministic:
// a window is emitted for every start offset at a multiple of
// (ChunkSize - Overlap) that lies inside the text, so the trailing windows
// may be shorter than ChunkSize. Empty input yields no chunks.
func SplitText(text string, cfg ChunkConfig) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}
	if len(runes) <= cfg.ChunkSize {
		return []string{text}, nil
	}

	step := cfg.ChunkSize - cfg.Overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}
