package response

import (
	"bytes"
	"html/template"
)

const mimeHTMLUTF8 = MimeHTML + "; charset=utf-8"

// Template renders tmpl with data into an HTML response.
func Template(status StatusCode, tmpl *template.Template, data any) (Response, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Response{}, wrapEncode(err)
	}
	return Body(status, mimeHTMLUTF8, buf.Bytes()), nil
}
