// AngelaMos | 2026
// entity.go

package problem

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type TestCase struct {
	Input  string `json:"input"  yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

type TestCases []TestCase

func (t TestCases) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return marshalJSONB(t)
}

func (t *TestCases) Scan(src any) error {
	return unmarshalJSONB(src, t)
}

// Boilerplate maps a judge language id to starter code.
type Boilerplate map[int]string

func (b Boilerplate) Value() (driver.Value, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	return marshalJSONB(b)
}

func (b *Boilerplate) Scan(src any) error {
	return unmarshalJSONB(src, b)
}

type Problem struct {
	Slug        string      `db:"slug"`
	Title       string      `db:"title"`
	TestCases   TestCases   `db:"test_cases"`
	Boilerplate Boilerplate `db:"boilerplate"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func marshalJSONB(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return b, nil
}

func unmarshalJSONB(src, dest any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan jsonb: unsupported type %T", src)
	}
	return json.Unmarshal(raw, dest)
}
