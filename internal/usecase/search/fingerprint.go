package search

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
)

const fingerprintVersion = "v1"

// Fingerprint derives the result cache key for a request. Every input that
// changes the ranked set (text, field, top_k, threshold, dates, rerank) is
// included; page, page_size and user are not.
func Fingerprint(req *request.Request) string {
	var b strings.Builder
	b.WriteString(fingerprintVersion)
	b.WriteByte('|')
	b.WriteString(strconv.Quote(req.Text()))
	b.WriteByte('|')
	b.WriteString(string(req.Field()))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.TopK()))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(req.Threshold(), 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(req.Dates().Key())
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(req.Rerank()))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
