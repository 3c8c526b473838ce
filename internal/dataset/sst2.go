package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/model"
)

// LoadSST2 reads an SST-2-style TSV file with rows of `sentence<TAB>label`,
// where label is 0 (negative) or 1 (positive). A `sentence	label` header
// line is tolerated and skipped.
func LoadSST2(path string) ([]model.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sst2: %w", err)
	}
	defer f.Close()

	var examples []model.Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, '\t')
		if idx < 0 {
			return nil, fmt.Errorf("sst2: line %d: missing tab separator", lineNo)
		}
		text := strings.TrimSpace(line[:idx])
		labelStr := strings.TrimSpace(line[idx+1:])
		label, err := strconv.Atoi(labelStr)
		if err != nil {
			if lineNo == 1 {
				continue // header line
			}
			return nil, fmt.Errorf("sst2: line %d: bad label %q: %w", lineNo, labelStr, err)
		}
		examples = append(examples, model.Example{Text: text, Label: label})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sst2: read %s: %w", path, err)
	}
	return examples, nil
}
