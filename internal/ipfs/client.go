// Package ipfs содержит HTTP-клиент к локальной ноде Kubo (/api/v0).
package ipfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	addPath     = "/api/v0/add"
	versionPath = "/api/v0/version"

	// сколько тела ответа ноды сохраняем для логов
	maxErrorBody = 4 << 10
)

var ErrUpstream = errors.New("ipfs node request failed")

// UpstreamError описывает неудачный вызов ноды. Body только для логов,
// клиенту сервиса оно не отдаётся.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("ipfs ")
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// Receipt это ответ ноды на add.
type Receipt struct {
	Name string
	Hash string
	Size int64
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient можно подменить в тестах
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("ipfs api url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		timeout: opts.Timeout,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// Add отправляет содержимое r одним multipart-запросом к /api/v0/add.
// Тело не буферизуется целиком: multipart пишется в pipe параллельно с отправкой.
func (c *Client) Add(ctx context.Context, name string, r io.Reader) (Receipt, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if name == "" {
		name = "file"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	done := make(chan struct{})
	// закрытый pr разблокирует писателя; ждём его, чтобы r не читался после возврата
	defer func() {
		pr.Close()
		<-done
	}()

	go func() {
		defer close(done)
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	endpoint := c.baseURL + addPath + "?stream-channels=true&progress=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return Receipt{}, &UpstreamError{Op: "add", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Receipt{}, &UpstreamError{Op: "add", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Receipt{}, &UpstreamError{Op: "add", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Receipt{}, &UpstreamError{Op: "add", Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Hash == "" {
		return Receipt{}, &UpstreamError{Op: "add", Status: resp.StatusCode, Err: errors.New("response has no hash")}
	}

	c.logger.Debug("ipfs add done",
		zap.String("name", out.Name),
		zap.String("cid", out.Hash),
		zap.Int64("size", int64(out.Size)),
		zap.Duration("took", time.Since(start)),
	)
	return Receipt{Name: out.Name, Hash: out.Hash, Size: int64(out.Size)}, nil
}

// Version используется как дешёвый запрос для readiness.
func (c *Client) Version(ctx context.Context) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+versionPath, nil)
	if err != nil {
		return "", &UpstreamError{Op: "version", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &UpstreamError{Op: "version", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Op: "version", Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var out struct {
		Version string `json:"Version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &UpstreamError{Op: "version", Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Version, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// GatewayURL склеивает префикс шлюза и CID ровно через один слэш.
func GatewayURL(prefix, cid string) string {
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(cid, "/")
}

type addResponse struct {
	Name string    `json:"Name"`
	Hash string    `json:"Hash"`
	Size sizeField `json:"Size"`
}

// Kubo отдаёт Size строкой, но принимаем и число.
type sizeField int64

func (s *sizeField) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*s = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", raw, err)
	}
	*s = sizeField(n)
	return nil
}

func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(data))
}
