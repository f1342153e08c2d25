// Package params merges the named parameters of a request from its query
// string, form or JSON body, and path pattern.
package params

import (
	"mime"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	mimeForm = "application/x-www-form-urlencoded"
	mimeJSON = "application/json"
)

// Extract merges parameters. Later sources win: query, then body fields,
// then path parameters. Repeated query or form values are joined with
// commas. Top-level JSON strings are taken verbatim; other JSON values keep
// their raw encoding and JSON nulls are skipped.
func Extract(query url.Values, pathParams map[string]string, contentType string, body []byte) map[string]string {
	out := make(map[string]string, len(query)+len(pathParams))

	mergeValues(out, query)

	switch mediaType(contentType) {
	case mimeForm:
		if form, err := url.ParseQuery(string(body)); err == nil {
			mergeValues(out, form)
		}
	case mimeJSON:
		mergeJSON(out, body)
	}

	for k, v := range pathParams {
		out[k] = v
	}
	return out
}

// FromQueryString is Extract for a raw query string.
func FromQueryString(rawQuery string, pathParams map[string]string, contentType string, body []byte) map[string]string {
	query, _ := url.ParseQuery(rawQuery)
	return Extract(query, pathParams, contentType, body)
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func mergeValues(out map[string]string, values url.Values) {
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		out[k] = strings.Join(vs, ",")
	}
}

func mergeJSON(out map[string]string, body []byte) {
	if !gjson.ValidBytes(body) {
		return
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return
	}
	doc.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Null:
		case gjson.String:
			out[key.String()] = value.Str
		default:
			out[key.String()] = value.Raw
		}
		return true
	})
}
