package dummy

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type ServerConfig struct {
	Port int

	// ErrorRate is the share of /error requests answered with 500.
	ErrorRate float64
}

// Handler returns the dummy target endpoints.
func Handler(cfg ServerConfig) http.Handler {
	mux := http.NewServeMux()

	// 1. OK Endpoint (1-10ms)
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(rand.Intn(10)+1) * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 2. Slow Endpoint, ?ms= overrides the 1-2s default. Good for testing timeouts.
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		delay := time.Duration(rand.Intn(1000)+1000) * time.Millisecond
		if v := r.URL.Query().Get("ms"); v != "" {
			var n int
			if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n >= 0 {
				delay = time.Duration(n) * time.Millisecond
			}
		}
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Slow response"))
	})

	// 3. Error Endpoint (Random failures)
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float64() < cfg.ErrorRate {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("500 Internal Server Error"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 4. Not Found
	mux.HandleFunc("/notfound", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	// 5. Redirect chain, /redirect?hops=N ends at /ok after N redirects
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		hops := 1
		if v := r.URL.Query().Get("hops"); v != "" {
			fmt.Sscanf(v, "%d", &hops)
		}
		if hops <= 1 {
			http.Redirect(w, r, "/ok", http.StatusFound)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/redirect?hops=%d", hops-1), http.StatusFound)
	})

	return mux
}

// Start serves the dummy endpoints in the background.
func Start(cfg ServerConfig, logger zerolog.Logger) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("👻 Dummy Server running on http://localhost%s\n", addr)
	fmt.Println("   Endpoints: /ok, /slow, /error, /notfound, /redirect")

	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Dummy server failed")
		}
	}()
	return server
}
