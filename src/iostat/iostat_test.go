package iostat

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/plot"

	"github.com/iafilius/FragScope/src/panels"
)

const sample = `Device  r/s   w/s    rkB/s  wkB/s  %util
sda     1.00  120.50 4.00   964.0  12.30
sdb     0.00  3.00   0.00   24.0   0.40

Device  r/s   w/s    rkB/s  wkB/s  %util
sda     2.00  98.00  8.00   784.0  10,50
sda     broken row
`

func writeTable(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestParseSkipsRepeatedHeadersAndShortRows(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tbl.Header) != 6 || tbl.Header[5] != "%util" {
		t.Fatalf("unexpected header %v", tbl.Header)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	ws, err := tbl.Column("w/s")
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	if ws[0] != 120.5 || ws[2] != 98 {
		t.Fatalf("unexpected w/s %v", ws)
	}
	util, _ := tbl.Column("%util")
	if util[2] != 10.5 {
		t.Fatalf("decimal comma not accepted: %v", util)
	}
	dev, _ := tbl.Column("Device")
	if !math.IsNaN(dev[0]) {
		t.Fatalf("device names should parse as NaN, got %v", dev[0])
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(strings.NewReader("\n\n")); err == nil {
		t.Fatalf("expected error for empty table")
	}
}

func TestMissingColumn(t *testing.T) {
	path := writeTable(t, "a.txt", sample)
	tbl, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Panel(tbl, "a", []string{"r/s", "aqu-sz"})
	var ce *ColumnError
	if !errors.As(err, &ce) || ce.Column != "aqu-sz" {
		t.Fatalf("expected ColumnError for aqu-sz, got %v", err)
	}
}

func TestPanelUsesLogScale(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	p, err := Panel(tbl, "run 1", nil)
	if err != nil {
		t.Fatalf("panel: %v", err)
	}
	if _, ok := p.Y.Scale.(plot.LogScale); !ok {
		t.Fatalf("expected log scale, got %T", p.Y.Scale)
	}
	if p.Title.Text != "run 1" {
		t.Fatalf("unexpected title %q", p.Title.Text)
	}
}

func TestPanelWithoutPositiveSamplesStaysLinear(t *testing.T) {
	tbl, err := Parse(strings.NewReader("r/s w/s %util\n0 0 0\n0 0 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := Panel(tbl, "idle", nil)
	if err != nil {
		t.Fatalf("panel: %v", err)
	}
	if _, ok := p.Y.Scale.(plot.LogScale); ok {
		t.Fatalf("log scale without positive samples")
	}
	var buf bytes.Buffer
	if err := panels.RenderGrid(&buf, "png", [][]*plot.Plot{{p}}, panels.DefaultWidth, panels.DefaultRowHeight); err != nil {
		t.Fatalf("render: %v", err)
	}
}

func TestPlotsOnePanelPerFile(t *testing.T) {
	a := writeTable(t, "a.txt", sample)
	b := writeTable(t, "b.txt", sample)
	grid, err := Plots([]Input{{Path: a, Title: "ext4"}, {Path: b}}, []string{"r/s", "w/s"})
	if err != nil {
		t.Fatalf("plots: %v", err)
	}
	if len(grid) != 2 || len(grid[0]) != 1 {
		t.Fatalf("unexpected grid shape %dx%d", len(grid), len(grid[0]))
	}
	if grid[0][0].Title.Text != "ext4" || grid[1][0].Title.Text != "b.txt" {
		t.Fatalf("unexpected titles %q %q", grid[0][0].Title.Text, grid[1][0].Title.Text)
	}
	img, err := panels.GridImage(grid, panels.DefaultWidth, panels.DefaultRowHeight)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// two 4in rows at 96 dpi
	if dy := img.Bounds().Dy(); dy < 767 || dy > 769 {
		t.Fatalf("unexpected image height %d", dy)
	}

	if _, err := Plots([]Input{{Path: filepath.Join(t.TempDir(), "missing")}}, nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
