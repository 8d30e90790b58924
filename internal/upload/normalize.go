package upload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// MaxSerializedChars bounds how much of the serialized workbook is embedded
// in a prompt. The cut is a hard byte cut after serialization and may split a
// row or value mid-token; that is an accepted lossy bound, not a parse error.
const MaxSerializedChars = 50000

// ErrMalformedUpload reports that the uploaded payload is not a readable
// spreadsheet. Nothing is persisted when it is returned.
var ErrMalformedUpload = errors.New("upload is not a readable spreadsheet")

// Normalize converts an uploaded workbook into a sheet-name → row-arrays map.
// Every sheet is converted independently; header rows get no special
// treatment here, downstream prompt building decides how to use them.
func Normalize(workbook io.Reader) (map[string][][]string, error) {
	f, err := excelize.OpenReader(workbook)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpload, err)
	}
	defer f.Close()

	sheets := make(map[string][][]string)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrMalformedUpload, name, err)
		}
		if rows == nil {
			rows = [][]string{}
		}
		sheets[name] = rows
	}
	return sheets, nil
}

// SerializeBounded renders the normalized sheets as JSON truncated to
// MaxSerializedChars.
func SerializeBounded(sheets map[string][][]string) string {
	blob, err := json.Marshal(sheets)
	if err != nil {
		return "{}"
	}
	if len(blob) > MaxSerializedChars {
		blob = blob[:MaxSerializedChars]
	}
	return string(blob)
}
