// Package jsonfile stores outline documents as JSON files.
//
// The file holds a format tag, a version, the root id list and the records
// in document order:
//
//	{
//	  "format": "outliner",
//	  "version": 1,
//	  "roots": ["alice.20260101120000"],
//	  "records": [
//	    {"id": "alice.20260101120000", "headline": "A", "body": "",
//	     "children": [], "attributes": {}}
//	  ]
//	}
package jsonfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/outliner/internal/outline/persist"
)

// Format identifies outline files.
const Format = "outliner"

// Version is the file version written by Encode.
const Version = 1

// Errors returned by Decode.
var (
	ErrMalformed   = errors.New("jsonfile: malformed document")
	ErrWrongFormat = errors.New("jsonfile: not an outline document")
	ErrVersion     = errors.New("jsonfile: unsupported version")
)

// Encode renders doc as compact JSON.
func Encode(doc persist.Document) ([]byte, error) {
	out := `{}`
	var err error
	if out, err = sjson.Set(out, "format", Format); err != nil {
		return nil, err
	}
	if out, err = sjson.Set(out, "version", Version); err != nil {
		return nil, err
	}
	roots := doc.Roots
	if roots == nil {
		roots = []string{}
	}
	if out, err = sjson.Set(out, "roots", roots); err != nil {
		return nil, err
	}

	records := make([]string, len(doc.Records))
	for i, r := range doc.Records {
		if records[i], err = encodeRecord(r); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
	}
	if out, err = sjson.SetRaw(out, "records", "["+strings.Join(records, ",")+"]"); err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func encodeRecord(r persist.Record) (string, error) {
	children := r.Children
	if children == nil {
		children = []string{}
	}
	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}

	rec := `{}`
	var err error
	for _, f := range []struct {
		path  string
		value any
	}{
		{"id", r.ID},
		{"headline", r.Headline},
		{"body", r.Body},
		{"children", children},
		{"attributes", attrs},
	} {
		if rec, err = sjson.Set(rec, f.path, f.value); err != nil {
			return "", err
		}
	}
	return rec, nil
}

// Decode parses a document written by Encode.
func Decode(data []byte) (persist.Document, error) {
	if !gjson.ValidBytes(data) {
		return persist.Document{}, ErrMalformed
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return persist.Document{}, ErrMalformed
	}
	if f := root.Get("format"); f.String() != Format {
		return persist.Document{}, fmt.Errorf("%w: format %q", ErrWrongFormat, f.String())
	}
	if v := root.Get("version").Int(); v < 1 || v > Version {
		return persist.Document{}, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	var doc persist.Document
	roots, err := stringArray(root.Get("roots"), "roots")
	if err != nil {
		return persist.Document{}, err
	}
	doc.Roots = roots

	records := root.Get("records")
	if records.Exists() && !records.IsArray() {
		return persist.Document{}, fmt.Errorf("%w: records is not an array", ErrMalformed)
	}
	for i, rec := range records.Array() {
		r, err := decodeRecord(rec)
		if err != nil {
			return persist.Document{}, fmt.Errorf("record %d: %w", i, err)
		}
		doc.Records = append(doc.Records, r)
	}
	return doc, nil
}

func decodeRecord(rec gjson.Result) (persist.Record, error) {
	if !rec.IsObject() {
		return persist.Record{}, fmt.Errorf("%w: record is not an object", ErrMalformed)
	}
	id := rec.Get("id")
	if id.Type != gjson.String || id.String() == "" {
		return persist.Record{}, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	r := persist.Record{
		ID:       id.String(),
		Headline: rec.Get("headline").String(),
		Body:     rec.Get("body").String(),
	}
	children, err := stringArray(rec.Get("children"), "children")
	if err != nil {
		return persist.Record{}, err
	}
	r.Children = children

	attrs := rec.Get("attributes")
	if attrs.Exists() && !attrs.IsObject() {
		return persist.Record{}, fmt.Errorf("%w: attributes is not an object", ErrMalformed)
	}
	attrs.ForEach(func(k, v gjson.Result) bool {
		if r.Attributes == nil {
			r.Attributes = make(map[string]string)
		}
		r.Attributes[k.String()] = v.String()
		return true
	})
	return r, nil
}

func stringArray(v gjson.Result, name string) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s is not an array", ErrMalformed, name)
	}
	var out []string
	for _, e := range v.Array() {
		if e.Type != gjson.String {
			return nil, fmt.Errorf("%w: %s holds a non-string", ErrMalformed, name)
		}
		out = append(out, e.String())
	}
	return out, nil
}

// Load reads a document from path.
func Load(path string) (persist.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return persist.Document{}, err
	}
	doc, err := Decode(data)
	if err != nil {
		return persist.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes doc to path as indented JSON. The file is replaced
// atomically.
func Save(path string, doc persist.Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	data = pretty.Pretty(data)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
