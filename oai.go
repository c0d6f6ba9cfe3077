package eprints

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// oaiSnippetLen bounds the diagnostic snippet logged for unparseable
// listing responses.
const oaiSnippetLen = 500

// OAIClient is an OAI-PMH client for the arXiv metadata listing endpoint.
type OAIClient struct {
	client  *http.Client
	baseURL string
	contact string
}

// NewOAIClient creates a new OAI-PMH client. contact is the operator
// contact address advertised in the User-Agent (may be empty).
func NewOAIClient(contact string) *OAIClient {
	return &OAIClient{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: oaiBaseURL,
		contact: contact,
	}
}

// ListPage is one page of the catalog walk. Cursor is the continuation
// token for the next page; an empty Cursor means the catalog is exhausted.
type ListPage struct {
	IDs     []string
	Records []Record
	Cursor  string
}

// ListRecords fetches one page of record identifiers via OAI-PMH.
// If cursor is empty the walk starts from the beginning with the given
// set and date bounds; otherwise only the cursor is sent and the server
// carries the original query bounds.
//
// Records flagged deleted by the server are excluded from IDs. A response
// body that fails to parse as OAI-PMH XML terminates pagination: the call
// logs a snippet of the body and returns an empty page with no cursor.
func (c *OAIClient) ListRecords(ctx context.Context, cursor, set string, from, until time.Time) (*ListPage, error) {
	params := url.Values{}
	params.Set("verb", "ListRecords")

	if cursor != "" {
		params.Set("resumptionToken", cursor)
	} else {
		params.Set("metadataPrefix", "arXiv")
		if set != "" {
			params.Set("set", set)
		}
		if !from.IsZero() {
			params.Set("from", from.Format("2006-01-02"))
		}
		if !until.IsZero() {
			params.Set("until", until.Format("2006-01-02"))
		}
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setRequestHeaders(req, c.contact)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list records: unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var oaiResp oaiPMHResponse
	if err := xml.Unmarshal(body, &oaiResp); err != nil {
		log.Printf("oai: non-XML response snippet: %s", snippet(body, oaiSnippetLen))
		return &ListPage{}, nil
	}

	if oaiResp.Error.Code != "" {
		// noRecordsMatch is ordinary exhaustion, not a failure.
		if oaiResp.Error.Code == "noRecordsMatch" {
			return &ListPage{}, nil
		}
		return nil, fmt.Errorf("oai error %s: %s", oaiResp.Error.Code, oaiResp.Error.Value)
	}

	page := &ListPage{
		Cursor: strings.TrimSpace(oaiResp.ListRecords.ResumptionToken.Value),
	}

	for _, rec := range oaiResp.ListRecords.Records {
		if rec.Header.Status == "deleted" {
			continue
		}
		id := identifierTail(rec.Header.Identifier)
		if id == "" {
			continue
		}
		page.IDs = append(page.IDs, id)
		page.Records = append(page.Records, Record{
			ID:        id,
			Datestamp: rec.Header.Datestamp,
			SetSpecs:  rec.Header.SetSpec,
		})
	}

	return page, nil
}

// identifierTail extracts the bare item identifier from a compound OAI
// identifier, e.g. "oai:arXiv.org:math/0001001" -> "math/0001001".
func identifierTail(ident string) string {
	if ident == "" {
		return ""
	}
	if idx := strings.LastIndex(ident, ":"); idx >= 0 {
		return ident[idx+1:]
	}
	return ident
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

// XML structures for OAI-PMH parsing. Only record headers are consumed;
// the harvester does not need the per-record metadata payload.

type oaiPMHResponse struct {
	XMLName     xml.Name       `xml:"OAI-PMH"`
	Error       oaiError       `xml:"error"`
	ListRecords oaiListRecords `xml:"ListRecords"`
}

type oaiError struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

type oaiListRecords struct {
	Records         []oaiRecord        `xml:"record"`
	ResumptionToken oaiResumptionToken `xml:"resumptionToken"`
}

type oaiResumptionToken struct {
	Value            string `xml:",chardata"`
	CompleteListSize int    `xml:"completeListSize,attr"`
	Cursor           int    `xml:"cursor,attr"`
}

type oaiRecord struct {
	Header oaiHeader `xml:"header"`
}

type oaiHeader struct {
	Status     string   `xml:"status,attr"`
	Identifier string   `xml:"identifier"`
	Datestamp  string   `xml:"datestamp"`
	SetSpec    []string `xml:"setSpec"`
}
