// AngelaMos | 2026
// fixtures.go

package problem

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/gosimple/slug"
	"go.yaml.in/yaml/v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

type fixtureFile struct {
	Problems []fixture `yaml:"problems"`
}

type fixture struct {
	Slug        string         `yaml:"slug"`
	Title       string         `yaml:"title"`
	TestCases   []TestCase     `yaml:"test_cases"`
	Boilerplate map[int]string `yaml:"boilerplate"`
}

// LoadFixtures reads the embedded catalog, or the file at path when set.
func LoadFixtures(path string) ([]Problem, error) {
	data := defaultFixtures
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixtures: %w", err)
		}
		data = b
	}
	return ParseFixtures(data)
}

func ParseFixtures(data []byte) ([]Problem, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Problems))
	problems := make([]Problem, 0, len(file.Problems))

	for i, f := range file.Problems {
		s := NormalizeSlug(f.Slug)
		if s == "" {
			s = NormalizeSlug(f.Title)
		}
		if s == "" {
			return nil, fmt.Errorf("fixture %d: slug or title is required", i)
		}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("fixture %d: duplicate slug %q", i, s)
		}
		if len(f.TestCases) == 0 {
			return nil, fmt.Errorf("fixture %q: at least one test case is required", s)
		}
		seen[s] = struct{}{}

		problems = append(problems, Problem{
			Slug:        s,
			Title:       f.Title,
			TestCases:   f.TestCases,
			Boilerplate: f.Boilerplate,
		})
	}

	return problems, nil
}

func NormalizeSlug(s string) string {
	return slug.Make(s)
}
