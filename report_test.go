package kibela2esa

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteReport(t *testing.T) {
	t.Parallel()

	created := &Document{ID: "7", Title: `Say "hi"`}
	if err := created.AssignDestination(101, "https://acme.esa.io/posts/101"); err != nil {
		t.Fatal(err)
	}
	failed := &Document{ID: "8", Title: "Never created"}
	other := &Document{ID: "9", Title: "Other"}
	if err := other.AssignDestination(102, "https://response.example/posts/102"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	n, err := WriteReport(&buf, testSettings(), []*Document{created, failed, other})
	if err != nil {
		t.Fatalf("WriteReport() unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("lines = %d, want 2", n)
	}

	want := "\"Say \"\"hi\"\"\"\t\"https://acme.kibe.la/notes/7\"\t\"https://acme.esa.io/posts/101\"\n" +
		"\"Other\"\t\"https://acme.kibe.la/notes/9\"\t\"https://acme.esa.io/posts/102\"\n"
	if buf.String() != want {
		t.Errorf("report =\n%q\nwant\n%q", buf.String(), want)
	}

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		if fields := strings.Split(line, "\t"); len(fields) != 3 {
			t.Errorf("line %q has %d fields, want 3", line, len(fields))
		}
	}
}

func TestWriteReport_ResponseURLWithoutBase(t *testing.T) {
	t.Parallel()

	s := testSettings()
	s.DestinationBaseURL = ""
	doc := &Document{ID: "1", Title: "T"}
	if err := doc.AssignDestination(5, "https://response.example/posts/5"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := WriteReport(&buf, s, []*Document{doc}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"https://response.example/posts/5"`) {
		t.Errorf("report = %q, want response URL", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteReport_WriterError(t *testing.T) {
	t.Parallel()

	doc := &Document{ID: "1", Title: "T"}
	_ = doc.AssignDestination(1, "")

	if _, err := WriteReport(failingWriter{}, testSettings(), []*Document{doc}); err == nil {
		t.Error("WriteReport() expected error from writer")
	}
}

func TestWriteReportFile_MissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "report.tsv")
	if _, err := WriteReportFile(path, testSettings(), nil); err == nil {
		t.Error("WriteReportFile() expected error for missing directory")
	}
}
