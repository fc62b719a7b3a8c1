package fetch

import (
	"mime"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// lowConfidenceCharsets are declared charsets that servers commonly send
// as placeholders; bodies labeled with them are re-detected statistically.
var lowConfidenceCharsets = map[string]bool{
	"iso-8859-1": true,
	"latin-1":    true,
	"us-ascii":   true,
}

// decodeBody resolves the effective charset of a response body and
// decodes it to a UTF-8 string. Detection is best-effort: any failure
// keeps the declared charset and the raw bytes.
func decodeBody(body []byte, contentType string) (string, string) {
	declared := declaredCharset(contentType)

	name := declared
	if name == "" || lowConfidenceCharsets[name] {
		if detected := detectCharset(body); detected != "" {
			name = detected
		}
	}

	if name == "" || name == "utf-8" || name == "utf8" {
		return string(body), name
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body), name
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body), name
	}
	return string(decoded), name
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}

func detectCharset(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	result, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || result == nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}
