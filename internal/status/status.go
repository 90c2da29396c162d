// Package status serves a small read-only HTTP view of the running bot:
// a health check, the bound sessions and the scheduled jobs.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/voice"
)

// Sessions lists the bound sessions.
type Sessions interface {
	Bindings() []voice.Binding
}

// Jobs lists the scheduled background jobs.
type Jobs interface {
	List() []string
}

type session struct {
	Bot            int    `json:"bot"`
	GuildID        string `json:"guild_id"`
	State          string `json:"state"`
	TextChannelID  string `json:"text_channel_id"`
	VoiceChannelID string `json:"voice_channel_id"`
	Pending        int    `json:"pending"`
}

type Server struct {
	version  string
	started  time.Time
	sessions Sessions
	jobs     Jobs
	log      zerolog.Logger
}

func New(version string, sessions Sessions, jobs Jobs, log zerolog.Logger) *Server {
	return &Server{version: version, started: time.Now(), sessions: sessions, jobs: jobs, log: log}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": s.version,
			"uptime":  time.Since(s.started).Round(time.Second).String(),
		})
	})
	r.GET("/sessions", func(c *gin.Context) {
		bindings := s.sessions.Bindings()
		out := make([]session, 0, len(bindings))
		for _, b := range bindings {
			out = append(out, session{
				Bot:            b.Key.Bot,
				GuildID:        b.Key.GuildID,
				State:          b.State.String(),
				TextChannelID:  b.TextChannelID,
				VoiceChannelID: b.VoiceChannelID,
				Pending:        b.Pending,
			})
		}
		c.JSON(http.StatusOK, gin.H{"sessions": out})
	})
	r.GET("/jobs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"jobs": s.jobs.List()})
	})
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("status request")
	}
}

// Serve listens on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info().Str("addr", addr).Msg("status server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
