package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap maps a jsonb column to a Go map.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("jsonmap: unsupported column type")
	}
	if len(raw) == 0 {
		*j = nil
		return nil
	}

	return json.Unmarshal(raw, j)
}
