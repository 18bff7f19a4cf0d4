package actionloghttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogcorr"
	"github.com/corewire/actionlog/actionlogdiagram"
)

// HTTPClient models a concrete http.Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client queries a remote Server's document API. It implements the Get and
// ByCorrelation halves of the diagram store contract, which is all the CLI
// needs.
type Client struct {
	client  HTTPClient
	baseurl string
	app     string
}

// NewClient returns a client calling the provided URL, which is assumed to
// be an instance of the Server also defined in this package. The app name is
// emitted as x-client on every outbound request.
func NewClient(client HTTPClient, baseurl, app string) *Client {
	if !strings.HasPrefix(baseurl, "http") {
		baseurl = "http://" + baseurl
	}
	return &Client{
		client:  client,
		baseurl: baseurl,
		app:     app,
	}
}

// Get fetches one document by action id. Returns
// actionlogdiagram.ErrNotFound for an unknown id.
func (c *Client) Get(ctx context.Context, id string) (*actionlog.ActionDocument, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseurl+"/actions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}

	var doc actionlog.ActionDocument
	if err := c.do(httpReq, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ByCorrelation fetches up to limit documents correlated to the given ids.
func (c *Client) ByCorrelation(ctx context.Context, correlationIDs []string, limit int) ([]*actionlog.ActionDocument, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseurl+"/actions", nil)
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}

	urlquery := httpReq.URL.Query()
	urlquery.Set("correlation-id", strings.Join(correlationIDs, ","))
	if limit > 0 {
		urlquery.Set("limit", strconv.Itoa(limit))
	}
	httpReq.URL.RawQuery = urlquery.Encode()

	var docs []*actionlog.ActionDocument
	if err := c.do(httpReq, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Diagram fetches rendered dot text from the remote diagram API: path is
// e.g. "/diagram/arch?hours=24" or "/diagram/action/<id>".
func (c *Client) Diagram(ctx context.Context, path string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseurl+path, nil)
	if err != nil {
		return "", fmt.Errorf("create HTTP request: %w", err)
	}
	c.prepare(httpReq)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute HTTP request: %w", redactURL(err))
	}
	defer drain(httpResp)

	if httpResp.StatusCode == http.StatusNotFound {
		return "", actionlogdiagram.ErrNotFound
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remote status code %d", httpResp.StatusCode)
	}

	dot, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(dot), nil
}

func (c *Client) do(httpReq *http.Request, into any) error {
	c.prepare(httpReq)

	if al, ok := actionlog.Current(httpReq.Context()); ok {
		al.Tracef("⇒ %s", httpReq.URL.String())
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute HTTP request: %w", redactURL(err))
	}
	defer drain(httpResp)

	if httpResp.StatusCode == http.StatusNotFound {
		return actionlogdiagram.ErrNotFound
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote status code %d", httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// prepare sets the common headers, including the correlation headers when an
// action is bound to the request's context.
func (c *Client) prepare(httpReq *http.Request) {
	httpReq.Header.Set("accept", "application/json")
	if al, ok := actionlog.Current(httpReq.Context()); ok {
		actionlogcorr.Inject(httpReq.Header, al, c.app)
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func redactURL(err error) error {
	if urlErr := (&url.Error{}); errors.As(err, &urlErr) {
		err = fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
