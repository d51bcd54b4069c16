package results

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func extent(v int64) *int64 { return &v }

func sampleRecords() []Record {
	return []Record{
		{Iteration: 0, Action: "CREATE_DIR", Duration: 1000, Size: 0, FileExtentCount: extent(0), TotalExtentsCount: 0},
		{Iteration: 1, Action: "CREATE_FILE", Duration: 2_000_000, Size: 65536, FileExtentCount: extent(1), TotalExtentsCount: 1},
		{Iteration: 2, Action: "CREATE_FILE", Duration: 1_000_000, Size: 65536, FileExtentCount: extent(2), TotalExtentsCount: 3},
		{Iteration: 2, Action: "DELETE_FILE", Duration: 500, Size: 0, FileExtentCount: extent(0), TotalExtentsCount: 2},
		{Iteration: 5, Action: "CREATE_FILE_FALLOCATE", Duration: 3_000_000, Size: 131072, FileExtentCount: extent(1), TotalExtentsCount: 3},
	}
}

// writeJSONL writes records one per line, like the harness' streaming mode.
func writeJSONL(t *testing.T, recs []Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.jsonl")
	var buf bytes.Buffer
	for _, r := range recs {
		b, err := json.Marshal(&r)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		buf.Write(append(b, '\n'))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	body := `[
  {"iteration": 1, "action": "CREATE_FILE", "operation": "WRITE", "path": "/mnt/a", "size": 4096, "duration": 15000, "_file_extent_count": 1, "total_extents_count": 7},
  {"iteration": 2, "action": "DELETE_FILE", "size": 0, "duration": 900, "_file_extent_count": 0, "total_extents_count": 6}
]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	recs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records got %d", len(recs))
	}
	r := recs[0]
	if r.Iteration != 1 || r.Action != "CREATE_FILE" || r.Size != 4096 || r.Duration != 15000 || r.TotalExtentsCount != 7 {
		t.Fatalf("unexpected first record: %+v", r)
	}
	if r.FileExtentCount != nil || r.UnderscoreFileExtentCount == nil || *r.UnderscoreFileExtentCount != 1 {
		t.Fatalf("extent fields not decoded as expected: %+v", r)
	}
}

func TestLoadJSONLPreservesOrderAndSkipsBlankLines(t *testing.T) {
	recs := sampleRecords()
	path := writeJSONL(t, recs)
	// append a blank line at the end
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	f.WriteString("\n   \n")
	f.Close()

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("expected %d records got %d", len(recs), len(got))
	}
	for i := range recs {
		if got[i].Iteration != recs[i].Iteration || got[i].Action != recs[i].Action {
			t.Fatalf("record %d out of order: %+v", i, got[i])
		}
	}
}

func TestLoadCompressed(t *testing.T) {
	recs := sampleRecords()
	arr, err := json.Marshal(recs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	dir := t.TempDir()

	gzPath := filepath.Join(dir, "results.json.gz")
	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	gw.Write(arr)
	gw.Close()
	if err := os.WriteFile(gzPath, gzBuf.Bytes(), 0o644); err != nil {
		t.Fatalf("write gz: %v", err)
	}

	zstPath := filepath.Join(dir, "results.json.zst")
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if err := os.WriteFile(zstPath, enc.EncodeAll(arr, nil), 0o644); err != nil {
		t.Fatalf("write zst: %v", err)
	}
	enc.Close()

	for _, p := range []string{gzPath, zstPath} {
		got, err := Load(p)
		if err != nil {
			t.Fatalf("Load(%s): %v", p, err)
		}
		if len(got) != len(recs) {
			t.Fatalf("%s: expected %d records got %d", p, len(recs), len(got))
		}
	}
}

func TestLoadMissingFileIsIngestError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	var ie *IngestError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IngestError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestLoadMalformedLineReportsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	body := `{"iteration":1,"action":"CREATE_FILE","duration":1,"size":1,"file_extent_count":1,"total_extents_count":1}
{"iteration":2,"action":
`
	os.WriteFile(path, []byte(body), 0o644)
	_, err := Load(path)
	var ie *IngestError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IngestError, got %v", err)
	}
	if ie.Line != 2 || ie.Path != path {
		t.Fatalf("unexpected error location: %+v", ie)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("error message lacks line: %v", err)
	}
}

func TestLoadMalformedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`[{"iteration": "x"}]`), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed array")
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	recs, err := Decode(strings.NewReader("  \n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records got %d", len(recs))
	}
}

func TestFilterByIterationKeepsOrderAndIsIdempotent(t *testing.T) {
	recs := sampleRecords()
	once := FilterByIteration(recs, 2)
	if len(once) != 4 {
		t.Fatalf("expected 4 records <= 2 got %d", len(once))
	}
	for i := 1; i < len(once); i++ {
		if once[i].Iteration < once[i-1].Iteration {
			t.Fatalf("order not preserved: %+v", once)
		}
	}
	if twice := FilterByIteration(once, 2); !reflect.DeepEqual(once, twice) {
		t.Fatalf("same bound not idempotent")
	}
	if larger := FilterByIteration(once, 1000); !reflect.DeepEqual(once, larger) {
		t.Fatalf("larger bound changed an already filtered series")
	}
	if all := FilterByIteration(recs, 0); len(all) != len(recs) {
		t.Fatalf("default bound should keep everything, got %d", len(all))
	}
}

func TestFilterByActionNoMatchIsEmpty(t *testing.T) {
	recs := sampleRecords()
	got := FilterByAction(recs, "CREATE_FILE")
	if len(got) != 2 {
		t.Fatalf("expected 2 CREATE_FILE got %d", len(got))
	}
	none := FilterByAction(recs, "ALTER_BIGGER")
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice got %#v", none)
	}
}

func TestActionsAndCounts(t *testing.T) {
	recs := sampleRecords()
	want := []string{"CREATE_DIR", "CREATE_FILE", "DELETE_FILE", "CREATE_FILE_FALLOCATE"}
	if got := Actions(recs); !reflect.DeepEqual(got, want) {
		t.Fatalf("Actions = %v want %v", got, want)
	}
	counts := CountByAction(recs)
	if counts["CREATE_FILE"] != 2 || counts["DELETE_FILE"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestLoadSourceLabelFallback(t *testing.T) {
	path := writeJSONL(t, sampleRecords())
	src, err := LoadSource(path, "")
	if err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if src.Label != "results.jsonl" {
		t.Fatalf("unexpected label %q", src.Label)
	}
	bounded := src.WithIterationBound(1)
	if len(bounded.Records) != 2 || len(src.Records) != 5 {
		t.Fatalf("bound applied incorrectly: %d/%d", len(bounded.Records), len(src.Records))
	}
}

func TestLoadMissingDurationNamesLineAndField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodur.jsonl")
	body := `{"iteration":1,"action":"CREATE_FILE","duration":1000,"size":4096,"_file_extent_count":1,"total_extents_count":1}
{"iteration":2,"action":"CREATE_FILE","size":4096,"_file_extent_count":1,"total_extents_count":2}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	var ie *IngestError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IngestError, got %v", err)
	}
	var mf *MissingFieldError
	if !errors.As(err, &mf) || mf.Field != "duration" {
		t.Fatalf("expected missing duration, got %v", err)
	}
	if ie.Line != 2 || ie.Path != path {
		t.Fatalf("unexpected error location: %+v", ie)
	}
	if msg := err.Error(); !strings.Contains(msg, path) || !strings.Contains(msg, `"duration"`) {
		t.Fatalf("message should name file and field: %v", msg)
	}
}

func TestLoadArrayMissingTotalExtents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noext.json")
	body := `[{"iteration":1,"action":"CREATE_FILE","duration":1000,"size":4096,"file_extent_count":1}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	var mf *MissingFieldError
	if !errors.As(err, &mf) || mf.Field != "total_extents_count" {
		t.Fatalf("expected missing total_extents_count, got %v", err)
	}
	if !strings.Contains(err.Error(), "record 1") {
		t.Fatalf("message should name the record: %v", err)
	}
}

func TestLoadZeroValuedFieldsAreNotMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zeros.jsonl")
	body := `{"iteration":0,"action":"","duration":0,"size":0,"total_extents_count":0}` + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	recs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record got %d", len(recs))
	}
}

func TestLoadArrayRejectsTrailingData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trailing.json")
	body := `[{"iteration":1,"action":"CREATE_FILE","duration":1000,"size":4096,"total_extents_count":1}] junk`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	var ie *IngestError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IngestError for trailing data, got %v", err)
	}
	if _, err := Decode(strings.NewReader(`[] ` + "\n")); err != nil {
		t.Fatalf("trailing whitespace should be accepted: %v", err)
	}
}
