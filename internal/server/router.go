package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/wsguard/internal/metrics"
	"github.com/loykin/wsguard/internal/pstable"
	"github.com/loykin/wsguard/internal/supervisor"
)

// Router provides the resident inspection surface.
// Endpoints:
//
//	GET  {basePath}/status     live instance count and uptimes
//	POST {basePath}/reconcile  run one reconciliation on demand
//	GET  {basePath}/metrics    Prometheus metrics
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	sup      *supervisor.Supervisor
	table    pstable.Table
	basePath string
}

// NewRouter constructs a Router with configurable basePath.
func NewRouter(sup *supervisor.Supervisor, table pstable.Table, basePath string) *Router {
	return &Router{sup: sup, table: table, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.POST("/reconcile", r.handleReconcile)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

type instanceInfo struct {
	PID       int   `json:"pid"`
	StartUnix int64 `json:"start_unix,omitempty"`
}

type statusResponse struct {
	Match     string         `json:"match"`
	Count     int            `json:"count"`
	Instances []instanceInfo `json:"instances"`
}

func (r *Router) handleStatus(c *gin.Context) {
	pids, err := r.table.Pids(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := statusResponse{Match: r.table.Describe(), Count: len(pids), Instances: []instanceInfo{}}
	for _, pid := range pids {
		resp.Instances = append(resp.Instances, instanceInfo{PID: pid, StartUnix: pstable.StartUnix(pid)})
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleReconcile(c *gin.Context) {
	res, err := r.sup.Reconcile(c.Request.Context())
	if err != nil {
		if errors.Is(err, supervisor.ErrLocked) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, sup *supervisor.Supervisor, table pstable.Table) *http.Server {
	r := NewRouter(sup, table, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

func sanitizeBase(basePath string) string {
	bp := strings.TrimSpace(basePath)
	if bp == "" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}
