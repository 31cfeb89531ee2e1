package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// DocumentKind tags the top-level JSON type held by a Document.
type DocumentKind string

// Document kinds.
const (
	KindNull   DocumentKind = "null"
	KindObject DocumentKind = "object"
	KindArray  DocumentKind = "array"
	KindString DocumentKind = "string"
	KindNumber DocumentKind = "number"
	KindBool   DocumentKind = "bool"
)

// ErrInvalidDocument indicates the bytes are not a single valid JSON value.
var ErrInvalidDocument = errors.New("invalid JSON document")

var jsonNull = []byte("null")

// Document is a schema-agnostic structured value stored as jsonb.
// The zero value is a JSON null.
type Document struct {
	raw  json.RawMessage
	kind DocumentKind
}

// NewDocument validates raw JSON and wraps it in compact form.
func NewDocument(raw []byte) (Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Document{}, nil
	}
	if !json.Valid(trimmed) {
		return Document{}, ErrInvalidDocument
	}

	var buf bytes.Buffer
	buf.Grow(len(trimmed))
	if err := json.Compact(&buf, trimmed); err != nil {
		return Document{}, ErrInvalidDocument
	}
	cp := buf.Bytes()

	return Document{raw: cp, kind: kindOf(cp)}, nil
}

// MustDocument wraps v marshalled as JSON. It panics on marshal errors and
// is meant for literals and tests.
func MustDocument(v any) Document {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal document: %v", err))
	}
	doc, err := NewDocument(data)
	if err != nil {
		panic(err)
	}
	return doc
}

// EmptyArray returns a document holding [].
func EmptyArray() Document {
	return Document{raw: json.RawMessage("[]"), kind: KindArray}
}

// Kind returns the top-level JSON type.
func (d Document) Kind() DocumentKind {
	if d.kind == "" {
		return KindNull
	}
	return d.kind
}

// IsNull reports whether the document is absent or JSON null.
func (d Document) IsNull() bool {
	return d.Kind() == KindNull
}

// Bytes returns the raw JSON encoding.
func (d Document) Bytes() []byte {
	if len(d.raw) == 0 {
		return jsonNull
	}
	return d.raw
}

// Decode unmarshals the document into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Bytes(), v)
}

// OrEmptyArray substitutes [] for a null document.
func (d Document) OrEmptyArray() Document {
	if d.IsNull() {
		return EmptyArray()
	}
	return d
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	return d.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := NewDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Value implements driver.Valuer. Null documents are stored as SQL NULL.
func (d Document) Value() (driver.Value, error) {
	if d.IsNull() {
		return nil, nil
	}
	return []byte(d.raw), nil
}

// Scan implements sql.Scanner for json and jsonb columns.
func (d *Document) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("scan document: unsupported type %T", src)
	}
}

func kindOf(raw []byte) DocumentKind {
	switch raw[0] {
	case '{':
		return KindObject
	case '[':
		return KindArray
	case '"':
		return KindString
	case 't', 'f':
		return KindBool
	case 'n':
		return KindNull
	default:
		return KindNumber
	}
}
