package monitor

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/irtrace/internal/monitoring"
)

//go:embed templates/*
var adminTemplateFS embed.FS

var traceTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/trace.html.tmpl"))

// Info identifies the trace being served.
type Info struct {
	Driver string
	Device string
}

// AttachAdminRoutes mounts the live trace page and its event stream under
// /debug/, and the prometheus metrics at /metrics. These routes are
// accessible only over localhost/via Tailscale. A nil m skips /metrics.
func AttachAdminRoutes(mux *http.ServeMux, hub *Hub, m *Metrics, info Info) {
	debug := tsweb.Debugger(mux)
	debug.KV("Driver", info.Driver)
	debug.KV("Device", info.Device)
	debug.KVFunc("Tail subscribers", func() any { return hub.Subscribers() })
	debug.KVFunc("Tail lines dropped", func() any { return hub.Dropped() })

	debug.HandleFunc("trace", "live decoded trace", func(w http.ResponseWriter, r *http.Request) {
		buf := bytes.NewBuffer(nil)
		if err := traceTemplate.Execute(buf, info); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.Copy(w, buf)
	})

	// Server-Sent Events, one event per output line.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := hub.Subscribe()
		defer hub.Unsubscribe(id)

		// Send initial ping to establish connection
		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case line, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}
}

// Serve runs an HTTP server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler, logf monitoring.Logf) error {
	if logf == nil {
		logf = monitoring.Discard
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := server.Close(); err != nil {
			logf("HTTP server force close error: %v", err)
		}
	}
	return nil
}
