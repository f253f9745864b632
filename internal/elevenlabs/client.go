package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"elevenlabs-mcp/internal/model"
	"elevenlabs-mcp/internal/protocol"
)

const defaultTimeout = 120 * time.Second

type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

func NewClient(apiKey, baseURL, version string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = protocol.DefaultBaseURL
	}
	return &Client{
		APIKey:     strings.TrimSpace(apiKey),
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		UserAgent:  "ElevenLabs-MCP/" + version,
	}
}

// request describes one API call. Exactly one of jsonBody and form is used.
type request struct {
	op       string
	method   string
	path     string
	query    url.Values
	jsonBody interface{}
	form     *multipartForm
	accept   string
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" {
		return nil, &model.ProviderError{
			Code:      "ELEVENLABS_AUTH",
			Message:   "missing ElevenLabs API key",
			Retryable: false,
		}
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.form != nil:
		raw, ct, err := r.form.encode()
		if err != nil {
			return nil, &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "failed to build " + r.op + " request body", Cause: err}
		}
		body, contentType = bytes.NewReader(raw), ct
	case r.jsonBody != nil:
		payload, err := json.Marshal(r.jsonBody)
		if err != nil {
			return nil, &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "failed to marshal " + r.op + " request", Cause: err}
		}
		body, contentType = bytes.NewReader(payload), "application/json"
	}

	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = protocol.DefaultBaseURL
	}
	reqURL := baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return nil, &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "failed to build " + r.op + " request", Cause: err}
	}
	req.Header.Set("xi-api-key", apiKey)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: r.op + " request failed", Retryable: true, Cause: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "failed to read " + r.op + " response", Retryable: true, StatusCode: resp.StatusCode, Cause: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := errorMessage(raw)
		if message == "" {
			message = fmt.Sprintf("elevenlabs %s returned status %d", r.op, resp.StatusCode)
		}
		return nil, mapProviderError(resp.StatusCode, message)
	}
	return raw, nil
}

func (c *Client) doJSON(ctx context.Context, r request, out interface{}) error {
	raw, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &model.ProviderError{Code: "ELEVENLABS_FAILED", Message: "failed to decode " + r.op + " response", Cause: err}
	}
	return nil
}

// errorMessage extracts detail.message from an API error body, falling back
// to the trimmed body.
func errorMessage(raw []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Detail) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(parsed.Detail, &detail); err == nil && detail.Message != "" {
			return detail.Message
		}
		var s string
		if err := json.Unmarshal(parsed.Detail, &s); err == nil && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(raw))
}

func mapProviderError(statusCode int, message string) error {
	pe := &model.ProviderError{
		Code:       "ELEVENLABS_FAILED",
		Message:    message,
		Retryable:  false,
		StatusCode: statusCode,
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		pe.Code = "ELEVENLABS_AUTH"
	case statusCode == http.StatusTooManyRequests:
		pe.Code = "ELEVENLABS_RATE_LIMIT"
		pe.Retryable = true
	case statusCode >= http.StatusInternalServerError:
		pe.Retryable = true
	case statusCode >= http.StatusBadRequest:
		pe.Retryable = false
	default:
		pe.Retryable = true
	}

	return pe
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

type multipartForm struct {
	fields [][2]string
	files  []formFile
}

func (f *multipartForm) field(name, value string) *multipartForm {
	f.fields = append(f.fields, [2]string{name, value})
	return f
}

func (f *multipartForm) boolField(name string, value bool) *multipartForm {
	return f.field(name, strconv.FormatBool(value))
}

func (f *multipartForm) file(field, filename string, data []byte) *multipartForm {
	f.files = append(f.files, formFile{field: field, filename: filename, data: data})
	return f
}

func (f *multipartForm) encode() ([]byte, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, kv := range f.fields {
		if err := writer.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	for _, ff := range f.files {
		part, err := writer.CreateFormFile(ff.field, ff.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(ff.data); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func pathEscape(s string) string {
	return url.PathEscape(strings.TrimSpace(s))
}
