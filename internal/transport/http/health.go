package httptransport

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"petvision-server-go/internal/core/providers/vlllm"
	"petvision-server-go/internal/domain/eventbus"
	"petvision-server-go/internal/domain/image"
	"petvision-server-go/internal/domain/session"
	"petvision-server-go/internal/utils"
)

// HealthHandler 汇总服务运行状态
type HealthHandler struct {
	store    session.Store
	provider vlllm.Info
	counter  *eventbus.TransitionCounter
	pipeline *image.Pipeline
	logger   *utils.Logger
	started  time.Time
}

// HealthOptions configures the health handler.
type HealthOptions struct {
	Store    session.Store
	Provider vlllm.Info
	Counter  *eventbus.TransitionCounter
	Pipeline *image.Pipeline
	Logger   *utils.Logger
}

func NewHealthHandler(opts HealthOptions) *HealthHandler {
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}
	return &HealthHandler{
		store:    opts.Store,
		provider: opts.Provider,
		counter:  opts.Counter,
		pipeline: opts.Pipeline,
		logger:   opts.Logger,
		started:  time.Now(),
	}
}

// HealthStatus 健康检查返回内容
type HealthStatus struct {
	Status      string           `json:"status"`
	Uptime      string           `json:"uptime"`
	Provider    vlllm.Info       `json:"provider"`
	Sessions    map[string]any   `json:"sessions,omitempty"`
	Transitions map[string]int64 `json:"transitions,omitempty"`
	Uploads     *image.Metrics   `json:"uploads,omitempty"`
	Host        HostStats        `json:"host"`
}

// HostStats 主机资源占用
type HostStats struct {
	Goroutines    int     `json:"goroutines"`
	MemTotalMB    uint64  `json:"mem_total_mb,omitempty"`
	MemUsedMB     uint64  `json:"mem_used_mb,omitempty"`
	MemUsedPct    float64 `json:"mem_used_percent,omitempty"`
	CPUPercent    float64 `json:"cpu_percent,omitempty"`
	CPULogicalCnt int     `json:"cpu_logical,omitempty"`
}

// Register 注册健康检查路由
func (h *HealthHandler) Register(group *gin.RouterGroup) {
	group.GET("/health", h.handleHealth)
}

// handleHealth 服务状态
// @Summary 健康检查
// @Description 返回服务状态、当前模型、会话存储统计与主机资源占用
// @Tags System
// @Produce json
// @Success 200 {object} HealthStatus
// @Router /health [get]
func (h *HealthHandler) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := HealthStatus{
		Status:   "ok",
		Uptime:   time.Since(h.started).Truncate(time.Second).String(),
		Provider: h.provider,
		Host:     collectHostStats(ctx),
	}

	if h.store != nil {
		stats, err := h.store.Stats(ctx)
		if err != nil {
			h.logger.WarnTag("HTTP", "读取会话统计失败: %v", err)
			status.Status = "degraded"
		} else {
			status.Sessions = stats
		}
	}
	if h.counter != nil {
		status.Transitions = h.counter.Snapshot()
	}
	if h.pipeline != nil {
		m := h.pipeline.Metrics()
		status.Uploads = &m
	}

	RespondSuccess(c, http.StatusOK, status, "")
}

func collectHostStats(ctx context.Context) HostStats {
	stats := HostStats{Goroutines: runtime.NumGoroutine()}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemTotalMB = vm.Total / 1024 / 1024
		stats.MemUsedMB = vm.Used / 1024 / 1024
		stats.MemUsedPct = vm.UsedPercent
	}
	// interval 为 0 时与上一次调用比较，不阻塞请求
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.CPULogicalCnt = n
	}
	return stats
}
