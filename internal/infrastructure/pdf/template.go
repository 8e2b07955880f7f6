// Package pdf renders cash documents to PDF with headless Chrome.
package pdf

import (
	"bytes"
	"fmt"
	"html/template"

	"cashdesk/internal/domain/documents"
)

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} {{.Number}}</title>
<style>
  body { font-family: "DejaVu Sans", Arial, sans-serif; font-size: 12pt; margin: 0; }
  h1 { font-size: 18pt; margin: 0 0 4mm 0; }
  .number { font-size: 14pt; font-weight: bold; }
  table { width: 100%; border-collapse: collapse; margin-top: 8mm; }
  th { text-align: left; width: 35%; padding: 2mm 0; color: #555; }
  td { padding: 2mm 0; border-bottom: 1px solid #ddd; }
  .amount { font-size: 14pt; font-weight: bold; }
  .sign { margin-top: 20mm; display: flex; justify-content: space-between; }
  .sign div { width: 45%; border-top: 1px solid #000; padding-top: 2mm; font-size: 10pt; }
</style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="number">No. {{.Number}}</div>
  <table>
    <tr><th>Date</th><td>{{.Date.Format "02 Jan 2006"}}</td></tr>
    <tr><th>{{.PartyLabel}}</th><td>{{.PartyName}}</td></tr>
    <tr><th>Description</th><td>{{.Description}}</td></tr>
    <tr><th>Amount</th><td class="amount">{{.Amount}}</td></tr>
  </table>
  <div class="sign">
    <div>Prepared by</div>
    <div>{{.PartyLabel}} signature</div>
  </div>
</body>
</html>`

var pageTemplate = template.Must(template.New("document").Parse(documentTemplate))

// RenderHTML lays out a document as a standalone HTML page.
func RenderHTML(p documents.Printable) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
