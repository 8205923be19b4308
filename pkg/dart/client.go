// Package dart provides a client for the DART open data API, which
// publishes the corporate registry used for partner name resolution.
// The full registry ships as a zipped XML document; the client unpacks
// and decodes it into a flat corp list.
package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// Corp is one registry entry. StockCode is empty for unlisted companies.
type Corp struct {
	CorpCode   string `xml:"corp_code" csv:"corp_code"`
	CorpName   string `xml:"corp_name" csv:"corp_name"`
	StockCode  string `xml:"stock_code" csv:"stock_code"`
	ModifyDate string `xml:"modify_date" csv:"modify_date"`
}

// Client defines the DART operations used by the pipeline.
type Client interface {
	// DownloadCorpCodes fetches and decodes the full registry.
	DownloadCorpCodes(ctx context.Context) ([]Corp, error)
}

// Option configures the DART client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new DART client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://opendart.fss.or.kr",
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the XML error document DART returns instead of a zip when
// the request is rejected.
type apiError struct {
	Status  string `xml:"status"`
	Message string `xml:"message"`
}

func (c *httpClient) DownloadCorpCodes(ctx context.Context) ([]Corp, error) {
	reqURL := c.baseURL + "/api/corpCode.xml?crtfc_key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "dart: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dart: download corp codes")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dart: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("dart: unexpected status %d", resp.StatusCode)
	}

	// A rejected key yields an XML error document instead of a zip.
	if !bytes.HasPrefix(body, []byte("PK")) {
		var apiErr apiError
		if xml.Unmarshal(body, &apiErr) == nil && apiErr.Status != "" {
			return nil, eris.Errorf("dart: api error %s: %s", apiErr.Status, apiErr.Message)
		}
		return nil, eris.New("dart: response is not a zip archive")
	}

	return parseCorpCodeZip(body)
}

func parseCorpCodeZip(data []byte) ([]Corp, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "dart: open zip")
	}

	var xmlFile *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			xmlFile = f
			break
		}
	}
	if xmlFile == nil {
		return nil, eris.New("dart: no xml file in archive")
	}

	rc, err := xmlFile.Open()
	if err != nil {
		return nil, eris.Wrap(err, "dart: open zip entry")
	}
	defer rc.Close() //nolint:errcheck

	return decodeCorpList(rc)
}

// decodeCorpList streams <list> elements out of the registry document.
// The declared charset varies between dumps, so decoding goes through
// htmlindex rather than assuming UTF-8.
func decodeCorpList(r io.Reader) ([]Corp, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "dart: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var corps []Corp
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "dart: read token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "list" {
			continue
		}

		var corp Corp
		if err := decoder.DecodeElement(&corp, &se); err != nil {
			return nil, eris.Wrap(err, "dart: decode corp")
		}
		corp.StockCode = strings.TrimSpace(corp.StockCode)
		corps = append(corps, corp)
	}

	if len(corps) == 0 {
		return nil, eris.New("dart: registry document contained no corps")
	}
	return corps, nil
}
