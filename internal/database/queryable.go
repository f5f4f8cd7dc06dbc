package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Queryable is the subset of sqlx's API which is shared between the DB and
// Tx types. Stores accept this interface so that callers decide whether an
// operation participates in a wider transaction.
type Queryable interface {
	Exec(query string, args ...any) (sql.Result, error)
	Get(dest any, query string, args ...any) error
	Select(dest any, query string, args ...any) error
	Rebind(query string) string
}

// JsonColumn wraps an arbitrary value so it can be scanned from, and stored
// to, a JSONB column without the model needing to know about the encoding.
type JsonColumn[T any] struct {
	val *T
}

func NewJsonColumn[T any](val *T) JsonColumn[T] {
	return JsonColumn[T]{val: val}
}

func (j *JsonColumn[T]) Scan(src any) error {
	if src == nil {
		j.val = nil
		return nil
	}

	srcBytes, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T in to JsonColumn: expected []byte", src)
	}

	var target T
	if err := json.Unmarshal(srcBytes, &target); err != nil {
		return err
	}

	j.val = &target
	return nil
}

func (j JsonColumn[T]) Value() (driver.Value, error) {
	if j.val == nil {
		return nil, nil
	}

	return json.Marshal(j.val)
}

func (j *JsonColumn[T]) Get() *T { return j.val }
