package docextract

import (
	"bytes"
	"compress/zlib"
	"fmt"
)

// buildPDF assembles a single-page PDF whose page content is stream.
// When compress is set the stream is stored with FlateDecode.
func buildPDF(stream string, compress bool) []byte {
	body := []byte(stream)
	streamDict := fmt.Sprintf("<< /Length %d >>", len(body))
	if compress {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		_, _ = zw.Write(body)
		_ = zw.Close()
		body = z.Bytes()
		streamDict = fmt.Sprintf("<< /Length %d /Filter /FlateDecode >>", len(body))
	}

	objects := [][]byte{
		[]byte("<< /Type /Catalog /Pages 2 0 R >>"),
		[]byte("<< /Type /Pages /Kids [3 0 R] /Count 1 >>"),
		[]byte("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>"),
		[]byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"),
		append(append([]byte(streamDict+"\nstream\n"), body...), []byte("\nendstream")...),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n", i+1)
		out.Write(obj)
		out.WriteString("\nendobj\n")
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return out.Bytes()
}

// textStream wraps show-text operations in a text object.
func textStream(ops ...string) string {
	var b bytes.Buffer
	b.WriteString("BT\n/F1 12 Tf\n72 712 Td\n")
	for _, op := range ops {
		b.WriteString(op)
		b.WriteString("\n")
	}
	b.WriteString("ET")
	return b.String()
}
