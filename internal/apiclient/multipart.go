package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
)

// File is one file part of a multipart submission.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// DoMultipart sends req.Body as form fields plus files. The JSON content type
// is never set; the writer's boundary header takes its place.
func (c *Client) DoMultipart(ctx context.Context, req Request, files ...File) (*Response, error) {
	payload := c.withAudit(ctx, req.Body)

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, formValue(payload[k])); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := c.newRequest(ctx, method, req.Path, req.Query, buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Del("Content-Type")
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	return c.send(ctx, req, httpReq)
}

// formValue renders a payload value as a form field. Slices and maps are
// sent as JSON text.
func formValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
