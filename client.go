package eprints

import (
	"net/http"
	"strings"
)

const (
	oaiBaseURL    = "https://export.arxiv.org/oai2"
	eprintBaseURL = "https://arxiv.org/e-print"

	// acceptArchive encourages mirrors to serve raw tarball bytes rather
	// than an HTML landing page.
	acceptArchive = "application/gzip, application/x-gzip, application/x-tar, application/octet-stream;q=0.9, */*;q=0.5"
)

// userAgent builds the outbound identification string. The operator
// contact is embedded only when it looks like a mail address.
func userAgent(contact string) string {
	contact = strings.TrimSpace(contact)
	if strings.Contains(contact, "@") {
		return "eprints/1.0 (mailto:" + contact + ")"
	}
	return "eprints/1.0"
}

// setRequestHeaders applies the shared identification headers to an
// outbound request.
func setRequestHeaders(req *http.Request, contact string) {
	req.Header.Set("User-Agent", userAgent(contact))
	req.Header.Set("Accept", acceptArchive)
}
