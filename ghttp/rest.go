package ghttp

import (
	"bytes"
	"encoding/json"
	"github.com/pkg/errors"
	"io"
	"net/http"
)

type RequestOption func(req *http.Request)

type HTTPClient struct {
	MaxRead int64
	client  *http.Client
}

var DefaultClient = NewHTTPClient(nil)

func NewHTTPClient(client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPClient{
		MaxRead: 10 * 1024 * 1024,
		client:  client,
	}
}

func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		if key == "" || value == "" {
			return
		}

		req.Header.Set(key, value)
	}
}

func WithBasicAuth(username, password string) RequestOption {
	return func(req *http.Request) {
		req.SetBasicAuth(username, password)
	}
}

func (c *HTTPClient) DoGetJSON(url string, resObj interface{}, opts ...RequestOption) error {
	return c.DoJSON("GET", url, nil, resObj, opts...)
}

func (c *HTTPClient) DoPostJSON(url string, reqObj interface{}, resObj interface{}, opts ...RequestOption) error {
	return c.DoJSON("POST", url, reqObj, resObj, opts...)
}

func (c *HTTPClient) DoDeleteJSON(url string, resObj interface{}, opts ...RequestOption) error {
	return c.DoJSON("DELETE", url, nil, resObj, opts...)
}

// DoJSON sends reqObj as a JSON body when it is non-nil and decodes the
// response into resObj when it is non-nil and the response has a body.
func (c *HTTPClient) DoJSON(method, url string, reqObj interface{}, resObj interface{}, opts ...RequestOption) error {
	var body []byte
	if reqObj != nil {
		var err error
		body, err = json.Marshal(reqObj)
		if err != nil {
			return NewError(-1, nil, errors.WithStack(err))
		}
		opts = append([]RequestOption{
			WithHeader("Content-Type", "application/json"),
		}, opts...)
	}

	res, err := c.Do(method, url, body, opts...)
	if err != nil {
		return err
	}
	if resObj == nil || len(res) == 0 {
		return nil
	}
	if err := json.Unmarshal(res, resObj); err != nil {
		return NewError(-1, res, errors.WithStack(err))
	}
	return nil
}

func (c *HTTPClient) DoGet(url string, opts ...RequestOption) ([]byte, error) {
	return c.Do("GET", url, nil, opts...)
}

func (c *HTTPClient) DoPost(url string, body []byte, opts ...RequestOption) ([]byte, error) {
	return c.Do("POST", url, body, opts...)
}

func (c *HTTPClient) Do(method, url string, body []byte, opts ...RequestOption) ([]byte, error) {
	var bodyR io.Reader
	if body != nil {
		bodyR = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, bodyR)
	if err != nil {
		return nil, NewError(-1, nil, errors.WithStack(err))
	}
	return c.doReq(req, opts...)
}

func (c *HTTPClient) doReq(req *http.Request, opts ...RequestOption) ([]byte, error) {
	for _, opt := range opts {
		opt(req)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, NewError(-1, nil, errors.WithStack(err))
	}
	defer res.Body.Close()

	if res.StatusCode == 204 {
		return nil, nil
	}

	resBody, err := io.ReadAll(io.LimitReader(res.Body, c.MaxRead))
	if err != nil {
		return nil, NewError(-1, nil, errors.WithStack(err))
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, NewError(res.StatusCode, resBody, errors.Errorf("non-200 status code %d", res.StatusCode))
	}

	return resBody, nil
}
