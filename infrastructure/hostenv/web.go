package hostenv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/reglet-dev/packload/domain/entities"
	domainerrors "github.com/reglet-dev/packload/domain/errors"
)

// WebHost fetches resources over HTTP. It serves both the interactive page
// and the background worker; only the worker has a script importer.
type WebHost struct {
	client        *http.Client
	baseURL       *url.URL
	logger        *slog.Logger
	importScripts ImportScriptsFunc
	scriptLoader
	env entities.Environment
}

// Environment implements ports.HostCapabilities.
func (h *WebHost) Environment() entities.Environment {
	return h.env
}

// Read fetches the resource and returns the response body as text.
func (h *WebHost) Read(ctx context.Context, locator string) (string, error) {
	data, err := h.ReadBinary(ctx, locator)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBinary performs a blocking GET and returns the response body.
func (h *WebHost) ReadBinary(ctx context.Context, locator string) ([]byte, error) {
	target, err := h.resolve(locator)
	if err != nil {
		return nil, h.fetchError(locator, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, h.fetchError(locator, 0, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, h.fetchError(locator, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, h.fetchError(locator, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, h.fetchError(locator, resp.StatusCode, err)
	}
	return body, nil
}

// Load imports the script through the worker's importer when there is one,
// otherwise fetches it and evaluates it globally.
func (h *WebHost) Load(ctx context.Context, locator string) error {
	if h.importScripts != nil {
		target, err := h.resolve(locator)
		if err != nil {
			return h.fetchError(locator, 0, err)
		}
		return h.importScripts(ctx, target)
	}
	return h.loadScript(ctx, locator)
}

// Print logs text at info level, the console of a web host.
func (h *WebHost) Print(text string) {
	h.logger.Info(text, "environment", h.env)
}

func (h *WebHost) resolve(locator string) (string, error) {
	ref, err := url.Parse(locator)
	if err != nil {
		return "", err
	}
	if h.baseURL == nil {
		return ref.String(), nil
	}
	return h.baseURL.ResolveReference(ref).String(), nil
}

func (h *WebHost) fetchError(locator string, status int, err error) error {
	return &domainerrors.FetchError{Err: err, Locator: locator, Environment: h.env, StatusCode: status}
}
