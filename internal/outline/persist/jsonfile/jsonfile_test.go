package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/outliner/internal/outline/persist"
)

func sampleDoc() persist.Document {
	return persist.Document{
		Roots: []string{"a.20260101000000", "a.20260101000000.2"},
		Records: []persist.Record{
			{
				ID:       "a.20260101000000",
				Headline: "Top \"quoted\"",
				Body:     "line 1\nline 2",
				Children: []string{"a.20260101000000.1", "a.20260101000000.2"},
			},
			{
				ID:         "a.20260101000000.1",
				Headline:   "Child",
				Attributes: map[string]string{"color": "blue", "with.dot": "ok"},
			},
			{ID: "a.20260101000000.2", Headline: "Cloned"},
		},
	}
}

func TestEncodeDecode(t *testing.T) {
	doc := sampleDoc()
	data, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(data, "records.#").Int(); got != 3 {
		t.Errorf("records.# = %d, want 3", got)
	}
	if got := gjson.GetBytes(data, "records.1.attributes.with\\.dot").String(); got != "ok" {
		t.Errorf("dotted attribute = %q, want ok", got)
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !persist.Equal(doc, back) {
		t.Errorf("Decode(Encode()) = %+v, want %+v", back, doc)
	}
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(persist.Document{})
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(data, "roots").Raw; got != "[]" {
		t.Errorf("roots = %s, want []", got)
	}
	doc, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Roots) != 0 || len(doc.Records) != 0 {
		t.Errorf("Decode() = %+v, want empty", doc)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{"format":`, ErrMalformed},
		{"array", `[]`, ErrMalformed},
		{"wrong format", `{"format":"other","version":1}`, ErrWrongFormat},
		{"future version", `{"format":"outliner","version":99}`, ErrVersion},
		{"roots not array", `{"format":"outliner","version":1,"roots":"x"}`, ErrMalformed},
		{"record without id", `{"format":"outliner","version":1,"records":[{"headline":"x"}]}`, ErrMalformed},
		{"numeric child", `{"format":"outliner","version":1,"records":[{"id":"a","children":[1]}]}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("Decode() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	doc := sampleDoc()

	if err := Save(path, doc); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		t.Error("saved file is not pretty-printed")
	}

	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !persist.Equal(doc, back) {
		t.Errorf("Load() = %+v, want %+v", back, doc)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the document", len(entries))
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() = %v, want ErrNotExist", err)
	}
}
