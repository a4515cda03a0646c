package logs

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"

	"github.com/Alijeyrad/destek_backend/config"
)

const lokiQueueSize = 1024

// lokiWriter pushes JSON log lines to Loki's push API. Lines are queued and
// sent from a single goroutine; when the queue is full the line is dropped.
type lokiWriter struct {
	endpoint string
	header   map[string]string
	labels   map[string]string
	http     *client.Client
	queue    chan lokiLine
}

type lokiLine struct {
	at   time.Time
	line string
}

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func newLokiHandler(cfg *config.Config, level slog.Level) slog.Handler {
	lc := cfg.Logging.Output.Loki
	lw := newLokiWriter(lc, map[string]string{
		"service": cfg.Observability.ServiceName,
		"env":     cfg.Server.Environment,
	})
	go lw.run()
	return slog.NewJSONHandler(lw, &slog.HandlerOptions{Level: level})
}

func newLokiWriter(lc config.LokiConfig, labels map[string]string) *lokiWriter {
	hc := client.New()
	hc.SetTimeout(3 * time.Second)

	header := map[string]string{"Content-Type": "application/json"}
	if lc.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(lc.Username + ":" + lc.Password))
		header["Authorization"] = "Basic " + cred
	}

	return &lokiWriter{
		endpoint: strings.TrimRight(lc.Endpoint, "/") + "/loki/api/v1/push",
		header:   header,
		labels:   labels,
		http:     hc,
		queue:    make(chan lokiLine, lokiQueueSize),
	}
}

// Write is called once per record by the JSON handler.
func (lw *lokiWriter) Write(p []byte) (int, error) {
	select {
	case lw.queue <- lokiLine{at: time.Now(), line: strings.TrimRight(string(p), "\n")}:
	default:
	}
	return len(p), nil
}

func (lw *lokiWriter) run() {
	for l := range lw.queue {
		if err := lw.push(l); err != nil {
			// slog would loop back here
			fmt.Fprintf(os.Stderr, "loki push failed: %v\n", err)
		}
	}
}

func (lw *lokiWriter) push(l lokiLine) error {
	body := lokiPush{Streams: []lokiStream{{
		Stream: lw.labels,
		Values: [][2]string{{strconv.FormatInt(l.at.UnixNano(), 10), l.line}},
	}}}
	res, err := lw.http.Post(lw.endpoint, client.Config{Header: lw.header, Body: body})
	if err != nil {
		return err
	}
	defer res.Close()
	if code := res.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("loki returned %d", code)
	}
	return nil
}
