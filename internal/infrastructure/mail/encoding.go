package mail

import (
	"encoding/base64"
	"io"
	"mime/quotedprintable"
)

// base64 bodies are wrapped at 76 characters.
const lineLen = 76

func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > lineLen {
		if _, err := io.WriteString(w, encoded[:lineLen]+"\r\n"); err != nil {
			return err
		}
		encoded = encoded[lineLen:]
	}
	_, err := io.WriteString(w, encoded+"\r\n")
	return err
}

func writeQuotedPrintable(w io.Writer, s string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := io.WriteString(qp, s); err != nil {
		return err
	}
	return qp.Close()
}
