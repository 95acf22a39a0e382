package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
	// FormatJUnit names JUnit XML output. NewFormatter has no JUnit
	// formatter and returns a TextFormatter for it.
	FormatJUnit OutputFormat = "junit"
)

// Formatter formats command output.
type Formatter interface {
	Format(data interface{}) ([]byte, error)
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter formats output as plain text.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data interface{}) ([]byte, error) {
	return []byte(fmt.Sprintf("%v\n", data)), nil
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data interface{}) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats output as CSV. It is built for the shapes `search`
// and `bulk-search` actually produce: a slice of records (e.g.
// []transport.RecordDTO), a single record, or a []map[string]any from a
// decoded bulk response. Headers, if not given, are derived from the
// first row — exported struct fields in declaration order, or map keys
// sorted for determinism.
type CSVFormatter struct {
	Headers []string
}

// Format converts data to CSV format.
func (f *CSVFormatter) Format(data interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := f.FormatTo(buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data interface{}) error {
	headers, rows, err := csvRows(data, f.Headers)
	if err != nil {
		return err
	}

	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if len(headers) > 0 {
		if err := csvWriter.Write(headers); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}
	return csvWriter.Error()
}

// csvRows reduces an arbitrary result value to a header row plus data rows.
// It accepts a slice of structs, a slice of map[string]any, a single
// struct, or a single map[string]any — the shapes search/bulk-search
// output produces once unwrapped from their envelope.
func csvRows(data interface{}, headers []string) ([]string, [][]string, error) {
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil, fmt.Errorf("CSV formatting: nil value")
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return headers, nil, nil
		}
		if len(headers) == 0 {
			h, err := csvHeaders(v.Index(0))
			if err != nil {
				return nil, nil, err
			}
			headers = h
		}
		rows := make([][]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			row, err := csvRow(v.Index(i), headers)
			if err != nil {
				return nil, nil, err
			}
			rows = append(rows, row)
		}
		return headers, rows, nil
	case reflect.Struct, reflect.Map:
		if len(headers) == 0 {
			h, err := csvHeaders(v)
			if err != nil {
				return nil, nil, err
			}
			headers = h
		}
		row, err := csvRow(v, headers)
		if err != nil {
			return nil, nil, err
		}
		return headers, [][]string{row}, nil
	default:
		return nil, nil, fmt.Errorf("CSV formatting: unsupported type %s (want a slice, struct, or map)", v.Kind())
	}
}

// csvHeaders derives a header row from one element: struct field names in
// declaration order, or map keys sorted for determinism.
func csvHeaders(v reflect.Value) ([]string, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		headers := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue // unexported
			}
			headers = append(headers, csvFieldName(field))
		}
		return headers, nil
	case reflect.Map:
		headers := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			headers = append(headers, fmt.Sprintf("%v", k.Interface()))
		}
		sort.Strings(headers)
		return headers, nil
	default:
		return nil, fmt.Errorf("CSV formatting: unsupported row type %s (want a struct or map)", v.Kind())
	}
}

// csvFieldName prefers a struct field's json tag name over its Go name,
// matching the column names callers see in the JSON output format.
func csvFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	name, _, _ := splitTag(tag)
	if name == "" {
		return field.Name
	}
	return name
}

func splitTag(tag string) (name string, omitempty bool, rest string) {
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			return tag[:i], tag[i+1:] == "omitempty", tag[i+1:]
		}
	}
	return tag, false, ""
}

// csvRow renders one element's fields/keys into the column order given by
// headers. Missing map keys and nil pointer fields render as "".
func csvRow(v reflect.Value, headers []string) ([]string, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if !v.IsValid() || v.IsNil() {
			row := make([]string, len(headers))
			return row, nil
		}
		v = v.Elem()
	}

	row := make([]string, len(headers))
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		byHeader := make(map[string]reflect.Value, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue
			}
			byHeader[csvFieldName(field)] = v.Field(i)
		}
		for i, h := range headers {
			if fv, ok := byHeader[h]; ok {
				row[i] = csvScalar(fv)
			}
		}
	case reflect.Map:
		for i, h := range headers {
			mv := v.MapIndex(reflect.ValueOf(h))
			if mv.IsValid() {
				row[i] = csvScalar(mv)
			}
		}
	default:
		return nil, fmt.Errorf("CSV formatting: unsupported row type %s (want a struct or map)", v.Kind())
	}
	return row, nil
}

// csvScalar renders a single field/value as a CSV cell. Pointers to
// scalars (e.g. *float64 confidence fields, absent unless fuzzy ranking
// ran) render empty when nil.
func csvScalar(v reflect.Value) string {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if !v.IsValid() || v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Invalid:
		return ""
	default:
		if stringer, ok := v.Interface().(fmt.Stringer); ok {
			return stringer.String()
		}
		return fmt.Sprintf("%v", v.Interface())
	}
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
