package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/bonehead-labs/fmf/errs"
)

// DriveConfig configures a hierarchical remote-drive connector (the
// SharePoint/Graph-API shape): a site, a drive, a root path, and a
// bearer token used for every Graph call.
type DriveConfig struct {
	BaseURL  string // e.g. https://graph.microsoft.example/v1.0
	SiteID   string
	DriveID  string
	RootPath string
	Token    string
	HTTP     *http.Client
	Retry    RetryPolicy
}

type driveItem struct {
	Name             string `json:"name"`
	Size             int64  `json:"size"`
	ETag             string `json:"eTag"`
	LastModifiedTime string `json:"lastModifiedDateTime"`
	Folder           *struct{} `json:"folder"`
}

type driveChildren struct {
	Value []driveItem `json:"value"`
}

// Drive is a connector over a hierarchical remote-drive API (signed
// downloads, throttled children listing), generalising
// original_source's SharePoint connector.
type Drive struct {
	cfg  DriveConfig
	name string
}

// NewDrive constructs a Drive connector.
func NewDrive(name string, cfg DriveConfig) *Drive {
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Drive{cfg: cfg, name: name}
}

func (d *Drive) Name() string { return d.name }

func (d *Drive) itemURL(relPath, suffix string) string {
	base := fmt.Sprintf("%s/sites/%s/drives/%s/root", d.cfg.BaseURL, d.cfg.SiteID, d.cfg.DriveID)
	if relPath == "" {
		return base + suffix
	}
	return fmt.Sprintf("%s:/%s:%s", base, relPath, suffix)
}

func (d *Drive) doJSON(ctx context.Context, url string, out interface{}) error {
	return Do(ctx, d.cfg.Retry, Retryable, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
		resp, err := d.cfg.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return statusError{status: resp.StatusCode, url: url}
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

type statusError struct {
	status int
	url    string
}

func (e statusError) Error() string  { return fmt.Sprintf("request to %s failed with status %d", e.url, e.status) }
func (e statusError) StatusCode() int { return e.status }

func (d *Drive) listChildren(ctx context.Context, relPath string) ([]driveItem, error) {
	var children driveChildren
	url := d.itemURL(relPath, "/children")
	if err := d.doJSON(ctx, url, &children); err != nil {
		return nil, err
	}
	return children.Value, nil
}

func (d *Drive) List(ctx context.Context, selectors []string) ([]ResourceRef, error) {
	var refs []ResourceRef
	stack := []string{strings.Trim(d.cfg.RootPath, "/")}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := d.listChildren(ctx, cur)
		if err != nil {
			return nil, errs.ConnectorErrorf(err, "listing drive connector %s at %q", d.name, cur)
		}
		for _, item := range children {
			rel := item.Name
			if cur != "" {
				rel = cur + "/" + item.Name
			}
			if item.Folder != nil {
				stack = append(stack, rel)
				continue
			}
			within := strings.TrimPrefix(rel, strings.Trim(d.cfg.RootPath, "/")+"/")
			if len(selectors) > 0 && !matchesAny(selectors, within) {
				continue
			}
			refs = append(refs, ResourceRef{
				ID:   rel,
				URI:  fmt.Sprintf("sharepoint:/sites/%s/drives/%s/root:/%s", d.cfg.SiteID, d.cfg.DriveID, rel),
				Name: item.Name,
			})
		}
	}
	return refs, nil
}

func (d *Drive) Open(ctx context.Context, ref ResourceRef) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := Do(ctx, d.cfg.Retry, Retryable, func() error {
		url := d.itemURL(ref.ID, "/content")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
		resp, err := d.cfg.HTTP.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return statusError{status: resp.StatusCode, url: url}
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, errs.ConnectorErrorf(err, "opening %s", ref.URI)
	}
	return body, nil
}

func (d *Drive) Info(ctx context.Context, ref ResourceRef) (ResourceInfo, error) {
	var item driveItem
	url := d.itemURL(ref.ID, "")
	if err := d.doJSON(ctx, url, &item); err != nil {
		return ResourceInfo{}, errs.ConnectorErrorf(err, "stat %s", ref.URI)
	}
	modified, _ := time.Parse(time.RFC3339, item.LastModifiedTime)
	return ResourceInfo{
		SourceURI:  ref.URI,
		ModifiedAt: modified.UTC(),
		ETag:       item.ETag,
		Size:       item.Size,
		Extra:      map[string]string{"name": path.Base(item.Name)},
	}, nil
}

var _ Connector = (*Drive)(nil)
