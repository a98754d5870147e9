package sharing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPPusher appends fixes to a report through the student API.
type HTTPPusher struct {
	client  *fasthttp.Client
	url     string
	token   string
	timeout time.Duration
}

func NewHTTPPusher(baseURL, reportID, token string) *HTTPPusher {
	return &HTTPPusher{
		client:  &fasthttp.Client{Name: "surokha-locshare"},
		url:     baseURL + "/api/student/reports/" + reportID + "/locations",
		token:   token,
		timeout: 8 * time.Second,
	}
}

type pushBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p *HTTPPusher) Push(ctx context.Context, fix Fix) error {
	body, err := json.Marshal(pushBody{Latitude: fix.Latitude, Longitude: fix.Longitude})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+p.token)
	req.SetBody(body)

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := p.client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("push location: %w", err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusCreated {
		return fmt.Errorf("push location: status %d: %s", code, resp.Body())
	}
	return nil
}
