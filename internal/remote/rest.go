package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"annotator/internal/domain"
)

// RESTStore talks to the annotation web service over JSON POSTs.
type RESTStore struct {
	baseURL string
	csrf    string
	client  *http.Client
}

// apiResponse is the loose envelope the service replies with.
type apiResponse struct {
	Message  string `json:"message"`
	Status   string `json:"STATUS"`
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
	RectID   *int   `json:"rect_id"`
}

func (r apiResponse) text() string {
	if r.Message != "" {
		return r.Message
	}
	if r.Status != "" {
		return r.Status
	}
	return r.Error
}

// NewRESTStore creates a RESTStore rooted at baseURL. csrfToken is sent as
// X-CSRFToken on every request.
func NewRESTStore(baseURL, csrfToken string, timeout time.Duration) *RESTStore {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		csrf:    csrfToken,
		client: &http.Client{
			Timeout: timeout,
			// Recalibrate answers with a redirect the caller follows itself.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type pointBody struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type rectBody struct {
	ID *int `json:"rect_id,omitempty"`
	X1 int  `json:"x1"`
	Y1 int  `json:"y1"`
	X2 int  `json:"x2"`
	Y2 int  `json:"y2"`
}

func newRectBody(r domain.Rect) rectBody {
	x1, y1, x2, y2 := r.Corners()
	return rectBody{ID: r.ID, X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func (s *RESTStore) AddPoint(ctx context.Context, imageID int, p domain.Point, requestID string) error {
	_, err := s.post(ctx, fmt.Sprintf("/add_egg_to_db_point/%d/", imageID), pointBody{X: p.X, Y: p.Y}, requestID, false)
	return err
}

func (s *RESTStore) RemovePoint(ctx context.Context, imageID int, p domain.Point, requestID string) error {
	_, err := s.post(ctx, fmt.Sprintf("/remove_egg_from_db_point/%d/", imageID), pointBody{X: p.X, Y: p.Y}, requestID, false)
	return err
}

func (s *RESTStore) AddRect(ctx context.Context, imageID int, r domain.Rect, requestID string) (*int, error) {
	resp, err := s.post(ctx, fmt.Sprintf("/add_egg_to_db_rect/%d/", imageID), newRectBody(r), requestID, false)
	if err != nil {
		return nil, err
	}
	return resp.RectID, nil
}

func (s *RESTStore) RemoveRect(ctx context.Context, imageID int, r domain.Rect, requestID string) error {
	_, err := s.post(ctx, fmt.Sprintf("/remove_egg_from_db_rect/%d/", imageID), newRectBody(r), requestID, false)
	return err
}

// ToggleGridCell sends the cell's column and row as x and y.
func (s *RESTStore) ToggleGridCell(ctx context.Context, imageID int, cell domain.GridCell) error {
	_, err := s.post(ctx, fmt.Sprintf("/toggleGrid/%d/", imageID), pointBody{X: cell.Col, Y: cell.Row}, "", false)
	return err
}

func (s *RESTStore) Recalibrate(ctx context.Context, req domain.CalibrationRequest) (string, error) {
	resp, err := s.post(ctx, "/recalibrate/", req, "", true)
	if err != nil {
		return "", err
	}
	return resp.Redirect, nil
}

func (s *RESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// post sends body as JSON and decodes the reply. Transport errors and
// non-success statuses wrap domain.ErrNetworkFailure; a 404 also wraps
// domain.ErrNotFound. A 3xx is a success only when redirect is set; the
// mutation endpoints answer a redirect when the session or CSRF token has
// expired, and that must keep the operation queued.
func (s *RESTStore) post(ctx context.Context, path string, body any, requestID string, redirect bool) (*apiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.csrf != "" {
		req.Header.Set("X-CSRFToken", s.csrf)
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %v", domain.ErrNetworkFailure, path, err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	var out apiResponse
	if len(raw) > 0 {
		// Not every endpoint answers with JSON; the status code is authoritative.
		json.Unmarshal(raw, &out)
	}

	switch {
	case res.StatusCode >= 300 && res.StatusCode < 400:
		if !redirect {
			return nil, fmt.Errorf("%w: POST %s: unexpected redirect %d to %q", domain.ErrNetworkFailure, path, res.StatusCode, res.Header.Get("Location"))
		}
		out.Redirect = res.Header.Get("Location")
		return &out, nil
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: POST %s: %w: %s", domain.ErrNetworkFailure, path, domain.ErrNotFound, out.text())
	case res.StatusCode < 200 || res.StatusCode >= 300:
		return nil, fmt.Errorf("%w: POST %s: status %d: %s", domain.ErrNetworkFailure, path, res.StatusCode, out.text())
	}

	if msg := out.text(); msg != "" {
		log.Printf("remote: %s: %s", path, msg)
	}
	return &out, nil
}

// IsNotFound reports whether err says the remote annotation does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
