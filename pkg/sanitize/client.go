package sanitize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/pdfsan/annotate/pkg/annotate"
)

// MaxLogoBytes is the size cap the asset store enforces on logo uploads.
const MaxLogoBytes = 100 << 10

// ErrLogoTooLarge is returned for logo images over MaxLogoBytes.
var ErrLogoTooLarge = errors.New("logo image exceeds the 100 KB upload limit")

// ErrNothingToLoad is returned when every document of a secondary batch failed
// to download. Partial failure is not an error; total failure blocks entry
// into secondary mode.
var ErrNothingToLoad = errors.New("no secondary-batch documents could be fetched")

// Client talks to the sanitization service.
type Client struct {
	cfg Config
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) httpClient() *http.Client {
	if c.cfg.HTTPClient != nil {
		return c.cfg.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() io.Writer {
	if c.cfg.Logger == nil {
		return os.Stdout
	}
	return c.cfg.Logger
}

func (c *Client) endpoint(p string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + p
}

// Submit sends one sanitization run: the raw files, the zone descriptors, the
// index-keyed image map, the term lists, and the run settings. The session
// stays editable on failure; nothing local is mutated here.
func (c *Client) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if len(sub.Files) == 0 {
		return nil, fmt.Errorf("submission has no files")
	}

	zoneList := sub.Zones.Zones
	if zoneList == nil {
		zoneList = []annotate.ZoneDescriptor{}
	}
	zones, err := json.Marshal(zoneList)
	if err != nil {
		return nil, fmt.Errorf("encode zones: %w", err)
	}
	imgMap := sub.Zones.ImageMap
	if imgMap == nil {
		imgMap = map[int]string{}
	}
	imageMap, err := json.Marshal(imgMap)
	if err != nil {
		return nil, fmt.Errorf("encode image map: %w", err)
	}
	terms, err := json.Marshal(NormalizeTerms(sub.ManualTerms, sub.Replacements))
	if err != nil {
		return nil, fmt.Errorf("encode terms: %w", err)
	}
	replacements, err := json.Marshal(orEmptyMap(sub.Replacements))
	if err != nil {
		return nil, fmt.Errorf("encode replacements: %w", err)
	}

	for _, w := range sub.Zones.Warnings {
		fmt.Fprintf(c.logger(), "warning: %s\n", w)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range sub.Files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("add file %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write file %s: %w", f.Name, err)
		}
	}
	fields := map[string]string{
		"template_zones":    string(zones),
		"manual_names":      string(terms),
		"text_replacements": string(replacements),
		"image_map":         string(imageMap),
		"threshold":         strconv.FormatFloat(c.cfg.Threshold, 'f', -1, 64),
		"client_name":       c.cfg.ClientName,
		"device_id":         c.cfg.DeviceID,
		"secondary":         strconv.FormatBool(sub.Secondary),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/sanitize"), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit to sanitization service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sanitization service returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode service response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("sanitization failed: %s", result.Error)
	}
	return &result, nil
}

// UploadLogo submits one image to the asset store and returns its stable
// storage key. A logo placement is never submitted without this key.
func (c *Client) UploadLogo(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) > MaxLogoBytes {
		return "", fmt.Errorf("logo %s (%d bytes): %w", name, len(data), ErrLogoTooLarge)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/upload-logo"), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("upload logo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("logo upload returned %s", resp.Status)
	}
	var out struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode logo upload response: %w", err)
	}
	if out.Key == "" {
		return "", fmt.Errorf("logo upload returned no key")
	}
	return out.Key, nil
}

// SecondaryName derives the download name of a report document: path prefix
// stripped, "_sanitized" inserted before the extension.
func SecondaryName(ref string) string {
	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	ext := path.Ext(base)
	stem := base[:len(base)-len(ext)]
	if strings.HasSuffix(stem, "_sanitized") {
		return base
	}
	return stem + "_sanitized" + ext
}

// FetchSecondaryBatch downloads the documents named by a low-confidence report
// for the re-annotation pass. Individual fetch failures are skipped with a
// warning and the batch proceeds with whatever succeeded; if nothing succeeds
// the result is ErrNothingToLoad.
func (c *Client) FetchSecondaryBatch(ctx context.Context, report Report) ([]File, error) {
	var files []File
	for _, entry := range report.Entries {
		name := SecondaryName(entry.Document)
		data, err := c.download(ctx, name)
		if err != nil {
			fmt.Fprintf(c.logger(), "warning: skipping %s: %v\n", name, err)
			continue
		}
		files = append(files, File{Name: name, Data: data})
	}
	if len(files) == 0 && len(report.Entries) > 0 {
		return nil, ErrNothingToLoad
	}
	return files, nil
}

func (c *Client) download(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint("/api/download/"+url.PathEscape(name)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
