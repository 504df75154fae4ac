package httpblob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"DocDB/internal/platform/objstore"
)

// Driver speaks to an HTTP blob service with S3-style semantics: one URL per
// object under a container, ETag headers as precondition tokens, If-Match
// for conditional updates and If-None-Match for create-if-absent.
type Driver struct {
	client    *resty.Client
	serverURL string
	container string
}

type listedObject struct {
	Name         string    `json:"name"`
	ETag         string    `json:"etag"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// New builds a driver for one container. The token is an opaque bearer
// credential supplied by the caller; the driver never refreshes it.
func New(serverURL, container, token string) *Driver {
	client := resty.New()
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Driver{
		client:    client,
		serverURL: serverURL,
		container: container,
	}
}

func (d *Driver) objectURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", d.serverURL, d.container, url.PathEscape(name))
}

func (d *Driver) List(ctx context.Context, prefix string) ([]objstore.ObjectInfo, error) {
	var listed []listedObject
	uri := fmt.Sprintf("%s/%s", d.serverURL, d.container)
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("prefix", prefix).
		SetResult(&listed).
		Get(uri)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, d.statusError(resp, prefix)
	}
	infos := make([]objstore.ObjectInfo, 0, len(listed))
	for _, obj := range listed {
		infos = append(infos, objstore.ObjectInfo{
			ID:           obj.Name,
			Name:         obj.Name,
			ETag:         obj.ETag,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return infos, nil
}

func (d *Driver) Read(ctx context.Context, id string) ([]byte, objstore.ObjectInfo, error) {
	resp, err := d.client.R().SetContext(ctx).Get(d.objectURL(id))
	if err != nil {
		return nil, objstore.ObjectInfo{}, err
	}
	if resp.IsError() {
		return nil, objstore.ObjectInfo{}, d.statusError(resp, id)
	}
	return resp.Body(), d.infoFromHeaders(id, resp), nil
}

func (d *Driver) Stat(ctx context.Context, id string) (objstore.ObjectInfo, error) {
	resp, err := d.client.R().SetContext(ctx).Head(d.objectURL(id))
	if err != nil {
		return objstore.ObjectInfo{}, err
	}
	if resp.IsError() {
		return objstore.ObjectInfo{}, d.statusError(resp, id)
	}
	return d.infoFromHeaders(id, resp), nil
}

func (d *Driver) Create(ctx context.Context, name string, contentType string, content []byte) (objstore.ObjectInfo, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("If-None-Match", "*").
		SetBody(content).
		Put(d.objectURL(name))
	if err != nil {
		return objstore.ObjectInfo{}, err
	}
	if resp.IsError() {
		return objstore.ObjectInfo{}, d.statusError(resp, name)
	}
	return d.infoFromHeaders(name, resp), nil
}

func (d *Driver) Update(ctx context.Context, id string, content []byte, etag string) (objstore.ObjectInfo, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("If-Match", etag).
		SetBody(content).
		Put(d.objectURL(id))
	if err != nil {
		return objstore.ObjectInfo{}, err
	}
	if resp.IsError() {
		return objstore.ObjectInfo{}, d.statusError(resp, id)
	}
	return d.infoFromHeaders(id, resp), nil
}

func (d *Driver) Delete(ctx context.Context, id string) error {
	resp, err := d.client.R().SetContext(ctx).Delete(d.objectURL(id))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return d.statusError(resp, id)
	}
	return nil
}

func (d *Driver) infoFromHeaders(id string, resp *resty.Response) objstore.ObjectInfo {
	size, _ := strconv.ParseInt(resp.Header().Get("Content-Length"), 10, 64)
	lastModified, _ := http.ParseTime(resp.Header().Get("Last-Modified"))
	return objstore.ObjectInfo{
		ID:           id,
		Name:         id,
		ETag:         resp.Header().Get("ETag"),
		Size:         size,
		LastModified: lastModified,
	}
}

func (d *Driver) statusError(resp *resty.Response, path string) error {
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return objstore.NotFoundError{Path: path}
	case http.StatusPreconditionFailed, http.StatusConflict:
		return objstore.PreconditionError{Path: path, ETag: resp.Header().Get("ETag")}
	default:
		return fmt.Errorf("objstore: %s returned status %d", path, resp.StatusCode())
	}
}
