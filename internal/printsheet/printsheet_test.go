package printsheet

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/loadout/internal/model"
)

func testList() *model.LoadingList {
	return &model.LoadingList{
		ID:         7,
		SiteName:   "Harbour <north>",
		Date:       "2024-06-01",
		ReturnDate: "2024-06-03",
		TeamName:   "Crew A",
		Notes:      "gate code 1234",
		Allocations: []model.Allocation{
			{ItemID: 1, Quantity: 3, Loaded: true, Item: &model.Item{Name: "Barrier", Category: "Traffic"}},
			{ItemID: 2, Quantity: 2},
		},
	}
}

func TestFromList(t *testing.T) {
	s := FromList(testList(), time.Date(2024, 5, 31, 16, 5, 0, 0, time.UTC))

	if s.TotalLines != 2 || s.TotalQuantity != 5 {
		t.Errorf("expected 2 lines and 5 pieces, got %d and %d", s.TotalLines, s.TotalQuantity)
	}
	if s.Lines[0].Name != "Barrier" || !s.Lines[0].Loaded {
		t.Errorf("unexpected first line %+v", s.Lines[0])
	}
	if s.Lines[1].Name != "Item 2" {
		t.Errorf("expected placeholder name for line without item, got %q", s.Lines[1].Name)
	}
	if s.PrintedAt != "2024-05-31 16:05" {
		t.Errorf("unexpected print time %q", s.PrintedAt)
	}
	if got := FileName(s); got != "loading-list-7-2024-06-01.pdf" {
		t.Errorf("unexpected file name %q", got)
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, FromList(testList(), time.Now())); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Harbour &lt;north&gt;", "2024-06-03", "Crew A", "gate code 1234", "Barrier", "&#9745;", "2 lines, 5 pieces"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if strings.Contains(out, "<north>") {
		t.Error("expected site name to be escaped")
	}
}

func TestRenderEmptyList(t *testing.T) {
	var buf bytes.Buffer
	l := &model.LoadingList{ID: 1, SiteName: "Empty", Date: "2024-06-01", ReturnDate: "2024-06-01"}
	if err := Render(&buf, FromList(l, time.Now())); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "No items.") {
		t.Error("expected empty list marker")
	}
}

func TestBucketConfigEnabled(t *testing.T) {
	if (BucketConfig{}).Enabled() {
		t.Error("expected empty config to be disabled")
	}
	if _, err := NewBucketArchiver(context.Background(), BucketConfig{Bucket: "b"}); err == nil {
		t.Error("expected error for incomplete config")
	}
}

func TestBucketArchiverUploads(t *testing.T) {
	var mu sync.Mutex
	var method, path, contentType string
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method, path, contentType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := NewBucketArchiver(context.Background(), BucketConfig{
		Endpoint:        srv.URL,
		Bucket:          "sheets",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Prefix:          "lists/",
		PublicURL:       "https://cdn.example.com/",
	})
	if err != nil {
		t.Fatalf("NewBucketArchiver: %v", err)
	}

	loc, err := a.Archive(context.Background(), "loading-list-7-2024-06-01.pdf", []byte("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if loc != "https://cdn.example.com/lists/loading-list-7-2024-06-01.pdf" {
		t.Errorf("unexpected location %q", loc)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut || path != "/sheets/lists/loading-list-7-2024-06-01.pdf" {
		t.Errorf("unexpected request %s %s", method, path)
	}
	if contentType != "application/pdf" {
		t.Errorf("unexpected content type %q", contentType)
	}
	if string(body) != "%PDF-1.4 test" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestChromePrinter(t *testing.T) {
	var execPath string
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			execPath = p
			break
		}
	}
	if execPath == "" {
		t.Skip("no Chrome binary found")
	}

	var buf bytes.Buffer
	Render(&buf, FromList(testList(), time.Now()))

	pdf, err := ChromePrinter{ExecPath: execPath}.PrintPDF(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("PrintPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("expected PDF output")
	}
}
