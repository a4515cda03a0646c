package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"

	"github.com/Alijeyrad/destek_backend/internal/model"
)

var errRESTRejected = errors.New("profile endpoint rejected the write")

// RESTWriter PUTs profiles to <base>/<uid> with a bearer token.
type RESTWriter struct {
	base  string
	token string
	http  *client.Client
}

func NewRESTWriter(baseURL, token string, timeout time.Duration) *RESTWriter {
	hc := client.New()
	hc.SetTimeout(timeout)
	return &RESTWriter{base: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

func (w *RESTWriter) Put(ctx context.Context, p *model.Profile) error {
	res, err := w.http.Put(w.base+"/"+url.PathEscape(p.ID), client.Config{
		Ctx: ctx,
		Header: map[string]string{
			"Authorization": "Bearer " + w.token,
			"Content-Type":  "application/json",
		},
		Body: p,
	})
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	defer res.Close()

	if code := res.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("%w (status=%d)", errRESTRejected, code)
	}
	return nil
}
