package asset

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeUnsupportedScheme = "unsupported_resource_scheme"
	ErrTypeFetchFailed       = "resource_fetch_failed"
)

// The Resource type wraps a streamable local file or remote resource.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns the last element of the resource path. Used for picking a decoder
// based on the file extension.
func (r *Resource) Name() string {
	return path.Base(r.url.Path)
}

// Returns true if the Resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open a resource data stream. If relTo is specified and pathToResource does
// not define a scheme, the resource is resolved relative to the directory
// containing relTo.
//
// http/https URLs are fetched with the default http client. The caller must
// close the returned resource.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	resURL, err := url.Parse(strings.ReplaceAll(pathToResource, `\`, `/`))
	if err != nil {
		return nil, errors.New("resource: invalid path").
			WithTag("path", pathToResource).
			Wrap(err)
	}

	if resURL.Scheme == "" && relTo != nil && !filepath.IsAbs(resURL.Path) {
		resURL, err = resolveRelative(resURL.Path, relTo)
		if err != nil {
			return nil, err
		}
	}

	var reader io.ReadCloser
	switch resURL.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(resURL.Path))
		if err != nil {
			return nil, errors.New("resource: could not open file").
				WithType(ErrTypeFetchFailed).
				WithTag("path", resURL.Path).
				Wrap(err)
		}
	case "http", "https":
		resp, err := http.Get(resURL.String())
		if err != nil {
			return nil, errors.New("resource: could not fetch url").
				WithType(ErrTypeFetchFailed).
				WithTag("url", resURL.String()).
				Wrap(err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, errors.New("resource: could not fetch url").
				WithType(ErrTypeFetchFailed).
				WithTag("url", resURL.String()).
				WithTag("status", resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, errors.New("resource: unsupported scheme").
			WithType(ErrTypeUnsupportedScheme).
			WithTag("scheme", resURL.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        resURL,
	}, nil
}

func resolveRelative(relPath string, relTo *Resource) (*url.URL, error) {
	base := *relTo.url
	if base.Scheme != "" {
		base.Path = path.Join(path.Dir(base.Path), relPath)
		return &base, nil
	}

	abs, err := filepath.Abs(base.Path)
	if err != nil {
		return nil, errors.New("resource: could not detect absolute path").
			WithTag("path", base.Path).
			Wrap(err)
	}
	return &url.URL{Path: filepath.Join(filepath.Dir(abs), relPath)}, nil
}

// Create a resource from a reader.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	resURL, err := url.Parse(name)
	if err != nil {
		resURL = &url.URL{Path: name}
	}
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        resURL,
	}
}
