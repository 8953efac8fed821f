package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainRequest = "From: reader@example.com\r\n" +
	"To: requests@example.com\r\n" +
	"Subject: Researcher Format request\r\n" +
	"Message-ID: <req-1@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello,\r\n" +
	"\r\n" +
	"Coded parameters for your transformation\r\n" +
	"o=AA|TT\r\n" +
	"v=r\r\n" +
	"txt=botany\r\n" +
	"End of coded parameters\r\n" +
	"\r\n" +
	"Thanks\r\n"

func TestExtractRequestFromEmailRawPlain(t *testing.T) {
	doc, err := ExtractRequestFromEmailRaw([]byte(plainRequest))
	require.NoError(t, err)
	assert.Equal(t, "Researcher Format request", doc.Subject)
	assert.Empty(t, doc.Attachments)

	block := DetectCodedParameters(doc.Lines)
	require.True(t, block.Found)
	assert.Equal(t, []string{"o=AA|TT", "v=r", "txt=botany"}, block.Lines)
}

func TestExtractRequestFromEmailRawAttachment(t *testing.T) {
	raw := strings.Join([]string{
		"From: reader@example.com",
		"Subject: request",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"See attached.",
		"--b1",
		`Content-Type: text/plain; name="params.txt"`,
		`Content-Disposition: attachment; filename="params.txt"`,
		"",
		"Coded parameters for your transformation",
		"l1=fre",
		"End of coded parameters",
		"--b1--",
		"",
	}, "\r\n")

	doc, err := ExtractRequestFromEmailRaw([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"params.txt"}, doc.Attachments)

	block := DetectCodedParameters(doc.Lines)
	require.True(t, block.Found)
	assert.Equal(t, []string{"l1=fre"}, block.Lines)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitLines("a\r\n\r\n  b  \n"))
}
