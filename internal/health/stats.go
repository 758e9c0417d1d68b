// AngelaMos | 2026
// stats.go

package health

import (
	"database/sql"
	"net/http"
	"runtime"

	"github.com/redis/go-redis/v9"
)

type StatsSource struct {
	DB    func() sql.DBStats
	Redis func() *redis.PoolStats
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeStatus(w, http.StatusOK, StatsResponse{
		Database: h.dbStats(),
		Redis:    h.redisStats(),
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     mem.Alloc,
			NumGC:        mem.NumGC,
		},
	})
}

func (h *Handler) dbStats() *DBPoolStats {
	if h.stats.DB == nil {
		return nil
	}

	stats := h.stats.DB()
	return &DBPoolStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration.String(),
	}
}

func (h *Handler) redisStats() *RedisPoolStats {
	if h.stats.Redis == nil {
		return nil
	}

	stats := h.stats.Redis()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

type StatsResponse struct {
	Database *DBPoolStats    `json:"database,omitempty"`
	Redis    *RedisPoolStats `json:"redis,omitempty"`
	Runtime  RuntimeStats    `json:"runtime"`
}

type DBPoolStats struct {
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`
	WaitDuration    string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
