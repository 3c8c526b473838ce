package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/model"
)

// LoadAGNews reads an AG News-style CSV file with rows of
// `class,title,description`, where class is 1-based (1=World .. 4=SciTech).
// Title and description are joined with a space to form the example text.
func LoadAGNews(path string) ([]model.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("agnews: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // validated per row below

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("agnews: parse %s: %w", path, err)
	}

	examples := make([]model.Example, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("agnews: row %d has %d fields, want >= 2", i+1, len(rec))
		}
		class, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("agnews: row %d: bad class %q: %w", i+1, rec[0], err)
		}
		text := strings.TrimSpace(strings.Join(rec[1:], " "))
		examples = append(examples, model.Example{
			Text:  text,
			Label: class - 1, // CSV classes are 1-based
		})
	}
	return examples, nil
}
