package extract

import (
	"fmt"
	"os"
	"strings"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
)

// extractText reads the whole file as one unpaginated segment. Invalid
// UTF-8 byte sequences are dropped rather than failing the upload.
func extractText(path string) ([]types.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}
	return []types.Segment{{Text: strings.ToValidUTF8(string(data), "")}}, nil
}
