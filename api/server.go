// Package api is the HTTP control surface for a running sequencer
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go-stepseq/debug"
	"go-stepseq/scale"
	"go-stepseq/sequencer"
)

// Controller is the part of the sequencer the API drives
type Controller interface {
	Snapshot() sequencer.State
	TogglePlayback() bool
	SetTempo(bpm float64) error
	SetStepCount(n int) error
	ToggleGate(voice, step int) (bool, error)
	SetKey(k sequencer.Key)
}

type tempoRequest struct {
	BPM float64 `json:"bpm" binding:"required,gt=0"`
}

type stepsRequest struct {
	Steps int `json:"steps" binding:"required,min=1,max=16"`
}

type keyRequest struct {
	Tonic  string `json:"tonic" binding:"required"`
	Mode   string `json:"mode" binding:"required"`
	Octave *int   `json:"octave"`
}

// NewRouter builds the gin engine with every route registered
func NewRouter(ctrl Controller) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/state", func(c *gin.Context) {
			c.JSON(http.StatusOK, ctrl.Snapshot())
		})
		v1.POST("/transport/toggle", func(c *gin.Context) {
			playing := ctrl.TogglePlayback()
			c.JSON(http.StatusOK, gin.H{"playing": playing})
		})
		v1.PUT("/tempo", func(c *gin.Context) { handleTempo(c, ctrl) })
		v1.PUT("/steps", func(c *gin.Context) { handleSteps(c, ctrl) })
		v1.POST("/grid/:voice/:step/toggle", func(c *gin.Context) { handleToggleGate(c, ctrl) })
		v1.PUT("/key", func(c *gin.Context) { handleKey(c, ctrl) })
		v1.GET("/modes", listModes)
	}
	return r
}

// Serve runs the API on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, ctrl Controller) error {
	srv := &http.Server{Addr: addr, Handler: NewRouter(ctrl)}

	errc := make(chan error, 1)
	go func() {
		debug.Log("api", "listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		debug.Log("api", "%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "go-stepseq",
	})
}

func handleTempo(c *gin.Context, ctrl Controller) {
	var req tempoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := ctrl.SetTempo(req.BPM); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tempo": ctrl.Snapshot().Tempo})
}

func handleSteps(c *gin.Context, ctrl Controller) {
	var req stepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := ctrl.SetStepCount(req.Steps); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"steps": req.Steps})
}

func handleToggleGate(c *gin.Context, ctrl Controller) {
	voice, err := strconv.Atoi(c.Param("voice"))
	if err != nil {
		badRequest(c, err)
		return
	}
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		badRequest(c, err)
		return
	}
	on, err := ctrl.ToggleGate(voice, step)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voice": voice, "step": step, "gate": on})
}

func handleKey(c *gin.Context, ctrl Controller) {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	octave := scale.DefaultOctave
	if req.Octave != nil {
		octave = *req.Octave
	}
	key, err := scale.Parse(req.Tonic, req.Mode, octave)
	if err != nil {
		badRequest(c, err)
		return
	}
	ctrl.SetKey(key)
	c.JSON(http.StatusOK, gin.H{"key": key.String(), "root": key.Root})
}

func listModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modes": scale.Modes(), "tonics": scale.Tonics()})
}
