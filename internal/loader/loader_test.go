package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"aaaa bbbb", "cccc"}, Split("aaaa bbbb cccc", 10, 0))
	assert.Equal(t, []string{"aaaa bbbb", "bbbb cccc"}, Split("aaaa bbbb cccc", 10, 5))
	assert.Empty(t, Split("", 10, 2))
	assert.Equal(t, []string{"short"}, Split("short", 100, 20))
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("The dog has a fever and will not eat. ", 80)
	a := Split(text, 200, 40)
	b := Split(text, 200, 40)
	assert.Equal(t, a, b)
	for _, c := range a {
		assert.LessOrEqual(t, len([]rune(c)), 200)
	}
	assert.Greater(t, len(a), 1)
}

func TestSplit_NoWhitespaceStillAdvances(t *testing.T) {
	chunks := Split(strings.Repeat("x", 25), 10, 3)
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("x", 10), chunks[0])
	assert.Equal(t, strings.Repeat("x", 4), chunks[len(chunks)-1])
}

func TestLoad_Text(t *testing.T) {
	path := writeFile(t, "notes.txt", "Cow fever\r\n\r\n\r\nTreat with rest.  \n")
	doc, err := New(1000, 100).Load(context.Background(), Source{Path: path}, ".TXT")
	require.NoError(t, err)
	assert.Equal(t, "Cow fever\n\nTreat with rest.", doc.Text)
	assert.Equal(t, []string{"Cow fever\n\nTreat with rest."}, doc.Chunks)
}

func TestLoad_InlineContent(t *testing.T) {
	doc, err := New(1000, 100).Load(context.Background(), Source{Content: "stored text"}, ".pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"stored text"}, doc.Chunks)
}

func TestLoad_Errors(t *testing.T) {
	l := New(1000, 100)
	_, err := l.Load(context.Background(), Source{Path: writeFile(t, "a.exe", "MZ")}, "")
	assert.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = l.Load(context.Background(), Source{Path: writeFile(t, "blank.txt", "  \n\n ")}, "")
	assert.ErrorIs(t, err, ErrNoText)

	_, err = l.Load(context.Background(), Source{Path: writeFile(t, "broken.pdf", "not a pdf")}, "")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, Source{Content: "x"}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, "animals.csv", "name,species,location\nBella,dog,Pune\nMoti,cow,Nashik\n")
	doc, err := New(1000, 0).Load(context.Background(), Source{Path: path}, "")
	require.NoError(t, err)
	assert.Equal(t, "name: Bella\nspecies: dog\nlocation: Pune\n\nname: Moti\nspecies: cow\nlocation: Nashik", doc.Text)
}

func TestLoad_HTML(t *testing.T) {
	path := writeFile(t, "page.html", `<html><head><title>x</title><style>p{}</style></head>
<body><h1>Medicines</h1><p>ID 19: <b>Ivermectin</b></p><script>var a = 1;</script></body></html>`)
	doc, err := New(1000, 0).Load(context.Background(), Source{Path: path}, "")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Medicines")
	assert.Contains(t, doc.Text, "ID 19: Ivermectin")
	assert.NotContains(t, doc.Text, "var a")
	assert.NotContains(t, doc.Text, "p{}")
}

func TestLoad_DOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>one</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	doc, err := New(1000, 0).Load(context.Background(), Source{Path: path}, "")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond one", doc.Text)
}

// writePDF builds a one-page PDF with a standard font, one text line per entry.
func writePDF(t *testing.T, name string, lines ...string) string {
	t.Helper()
	var content strings.Builder
	content.WriteString("BT /F1 12 Tf 14 TL 72 720 Td")
	for i, line := range lines {
		if i > 0 {
			content.WriteString(" T*")
		}
		fmt.Fprintf(&content, " (%s) Tj", line)
	}
	content.WriteString(" ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestLoad_PDF(t *testing.T) {
	path := writePDF(t, "notes.pdf", "Medicine 19: Ivermectin", "Applies to cow, bull, horse and dog")

	doc, err := New(1000, 0).Load(context.Background(), Source{Path: path}, ".pdf")
	require.NoError(t, err)
	assert.Equal(t, "Medicine 19: Ivermectin\nApplies to cow, bull, horse and dog", doc.Text)
	assert.Equal(t, []string{doc.Text}, doc.Chunks)
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.xlsx")
	x := excelize.NewFile()
	require.NoError(t, x.SetCellValue("Sheet1", "A1", "medicine"))
	require.NoError(t, x.SetCellValue("Sheet1", "B1", "id"))
	require.NoError(t, x.SetCellValue("Sheet1", "A2", "Ivermectin"))
	require.NoError(t, x.SetCellValue("Sheet1", "B2", 19))
	require.NoError(t, x.SaveAs(path))
	require.NoError(t, x.Close())

	doc, err := New(1000, 0).Load(context.Background(), Source{Path: path}, "")
	require.NoError(t, err)
	assert.Equal(t, "Sheet: Sheet1\n\nmedicine: Ivermectin\nid: 19", doc.Text)
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports(".PDF"))
	assert.True(t, Supports(".xlsx"))
	assert.False(t, Supports(".exe"))
	assert.False(t, Supports("pdf"))
}
